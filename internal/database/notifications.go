package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Kind == "" {
		n.Kind = models.NotificationKindSystem
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	var taskID uuid.NullUUID
	if n.TaskID != nil {
		taskID = uuid.NullUUID{UUID: *n.TaskID, Valid: true}
	}
	_, err := r.db.exec(ctx, `
		INSERT INTO notifications (id, user_id, task_id, kind, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, taskID, n.Kind, n.Message, n.Read, n.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("notification %s already exists: %w", n.ID, ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("notification references an unknown user or task: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first, with the title of
// the related task when it still exists
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT n.id, n.user_id, n.task_id, t.title, n.kind, n.message, n.is_read, n.created_at
		FROM notifications n
		LEFT JOIN tasks t ON t.id = n.task_id
		WHERE n.user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND n.is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY n.created_at DESC, n.id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		var taskID uuid.NullUUID
		var title sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &taskID, &title, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if taskID.Valid {
			id := taskID.UUID
			n.TaskID = &id
		}
		if title.Valid {
			s := title.String
			n.TaskTitle = &s
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// CountUnread returns how many unread notifications the user has
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.exec(ctx, `UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notification not found: %w", ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every notification of the user as read and returns how
// many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.exec(ctx, `UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
