package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `id, title, description, priority, status, due_date, assigned_by, assigned_to,
	tags, recurring, recurrence_end_date, reminder, time_estimate, time_spent, notes,
	created_at, updated_at`

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts task as given. A nil id is replaced with a fresh one and the
// timestamps are set to now.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.exec(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskArgs(task)...,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("task %s already exists: %w", task.ID, ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("task references an unknown user: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := scanTask(r.db.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetForUser retrieves a task the user owns or is assigned. Tasks belonging
// to other users are reported as not found.
func (r *TaskRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.VisibleTo(userID) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	return task, nil
}

// List returns one page of the user's tasks matching filter, plus the total
// number of matches. filter must already be validated.
func (r *TaskRepository) List(ctx context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, int, error) {
	where, args := taskWhere(userID, filter)

	var total int
	if err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY ` + taskOrder(filter) + ` LIMIT ? OFFSET ?`
	tasks, err := r.queryTasks(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListAll returns every task the user owns or is assigned, oldest first
func (r *TaskRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to = ? OR assigned_by = ? ORDER BY created_at, id`,
		userID, userID,
	)
}

// ListOwned returns every task the user created, oldest first
func (r *TaskRepository) ListOwned(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_by = ? ORDER BY created_at, id`,
		userID,
	)
}

// Update writes every mutable column of task and refreshes updated_at
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	result, err := r.db.exec(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, priority = ?, status = ?, due_date = ?,
			assigned_to = ?, tags = ?, recurring = ?, recurrence_end_date = ?,
			reminder = ?, time_estimate = ?, time_spent = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.AssignedTo,
		encodeTags(task.Tags),
		task.Recurring,
		task.RecurrenceEndDate,
		task.Reminder,
		task.TimeEstimate,
		task.TimeSpent,
		task.Notes,
		task.UpdatedAt,
		task.ID,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("task references an unknown user: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", ErrNotFound)
	}
	return nil
}

// Delete removes a task together with its notifications
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.exec(ctx, `DELETE FROM notifications WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete task notifications: %w", err)
		}
		result, err := tx.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("task not found: %w", ErrNotFound)
		}
		return nil
	})
}

// Restore upserts tasks for userID in one transaction. Only tasks the user
// owns are written: documents naming another owner are skipped, as are
// existing rows owned by someone else. Ownership of an existing row is never
// changed by a restore.
func (r *TaskRepository) Restore(ctx context.Context, userID uuid.UUID, tasks []*models.Task) (models.RestoreResult, error) {
	var res models.RestoreResult
	err := r.db.WithTx(ctx, func(tx *Tx) error {
		res = models.RestoreResult{}
		now := time.Now().UTC()
		for _, task := range tasks {
			if task == nil || task.ID == uuid.Nil || task.AssignedBy != userID {
				res.Skipped++
				continue
			}

			var by uuid.UUID
			err := tx.queryRow(ctx, `SELECT assigned_by FROM tasks WHERE id = ?`, task.ID).Scan(&by)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if task.CreatedAt.IsZero() {
					task.CreatedAt = now
				}
				task.UpdatedAt = now
				if _, err := tx.exec(ctx, `INSERT INTO tasks (`+taskColumns+`)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					taskArgs(task)...,
				); err != nil {
					if isForeignKeyViolation(err) {
						return fmt.Errorf("task %s references an unknown user: %w", task.ID, ErrNotFound)
					}
					return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
				}
			case err != nil:
				return fmt.Errorf("failed to look up task %s: %w", task.ID, err)
			default:
				if by != userID {
					res.Skipped++
					continue
				}
				task.UpdatedAt = now
				if _, err := tx.exec(ctx, `
					UPDATE tasks SET
						title = ?, description = ?, priority = ?, status = ?, due_date = ?,
						assigned_to = ?, tags = ?, recurring = ?, recurrence_end_date = ?,
						reminder = ?, time_estimate = ?, time_spent = ?, notes = ?, updated_at = ?
					WHERE id = ? AND assigned_by = ?
				`,
					task.Title, task.Description, task.Priority, task.Status, task.DueDate,
					task.AssignedTo, encodeTags(task.Tags), task.Recurring, task.RecurrenceEndDate,
					task.Reminder, task.TimeEstimate, task.TimeSpent, task.Notes, task.UpdatedAt,
					task.ID, userID,
				); err != nil {
					if isForeignKeyViolation(err) {
						return fmt.Errorf("task %s references an unknown user: %w", task.ID, ErrNotFound)
					}
					return fmt.Errorf("failed to update task %s: %w", task.ID, err)
				}
			}
			res.Restored++
		}
		return nil
	})
	if err != nil {
		return models.RestoreResult{}, err
	}
	return res, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// taskWhere builds the WHERE clause for a filter. Only placeholders carry
// caller input.
func taskWhere(userID uuid.UUID, f models.TaskFilter) (string, []any) {
	clauses := []string{"(assigned_to = ? OR assigned_by = ?)"}
	args := []any{userID, userID}

	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(*f.Priority))
	}
	if f.DueDate != nil {
		clauses = append(clauses, "due_date = ?")
		args = append(args, *f.DueDate)
	}
	if f.DueBefore != nil {
		clauses = append(clauses, "due_date < ?")
		args = append(args, *f.DueBefore)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		clauses = append(clauses, `tags LIKE ? ESCAPE '\'`)
		args = append(args, "%,"+escapeLike(tag)+",%")
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses = append(clauses, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	return strings.Join(clauses, " AND "), args
}

func taskOrder(f models.TaskFilter) string {
	col := f.Sort.Column()
	dir := f.Order.Direction()
	if f.Sort == models.SortByDueDate || f.Sort == "" {
		return "(due_date IS NULL), due_date " + dir + ", created_at DESC, id"
	}
	return col + " " + dir + ", created_at DESC, id"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// encodeTags stores tags as ",a,b," so a single tag matches with LIKE '%,a,%'
func encodeTags(tags []string) string {
	tags = models.NormalizeTags(tags)
	if len(tags) == 0 {
		return ""
	}
	return "," + strings.Join(tags, ",") + ","
}

func decodeTags(s string) []string {
	s = strings.Trim(s, ",")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func taskArgs(task *models.Task) []any {
	return []any{
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.AssignedBy,
		task.AssignedTo,
		encodeTags(task.Tags),
		task.Recurring,
		task.RecurrenceEndDate,
		task.Reminder,
		task.TimeEstimate,
		task.TimeSpent,
		task.Notes,
		task.CreatedAt,
		task.UpdatedAt,
	}
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var due, end models.Date
	var tags string
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&due,
		&task.AssignedBy,
		&task.AssignedTo,
		&tags,
		&task.Recurring,
		&end,
		&task.Reminder,
		&task.TimeEstimate,
		&task.TimeSpent,
		&task.Notes,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !due.IsZero() {
		task.DueDate = &due
	}
	if !end.IsZero() {
		task.RecurrenceEndDate = &end
	}
	task.Tags = decodeTags(tags)
	return task, nil
}
