// Package tasks implements task creation, editing and statistics on top of
// the task repository, expanding recurring tasks and notifying assignees.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/logger"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/notify"
	"github.com/benvon/task-manager/internal/recurrence"
	"github.com/benvon/task-manager/internal/stats"
	"github.com/benvon/task-manager/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a task does not exist or is not visible to the caller
	ErrNotFound = errors.New("task not found")
	// ErrForbidden is returned when the caller may see a task but not perform the action
	ErrForbidden = errors.New("only the task owner can do that")
	// ErrUnknownAssignee is returned when assigned_to names no user
	ErrUnknownAssignee = errors.New("assignee does not exist")
)

// ValidationError carries a message safe to show to the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Repository is the subset of the task repository the service needs
type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, int, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserLookup resolves assignees
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CreateInput is the body of a create request
type CreateInput struct {
	Title             string              `json:"title" validate:"required,max=200"`
	Description       string              `json:"description" validate:"max=10000"`
	Priority          models.TaskPriority `json:"priority" validate:"omitempty,task_priority"`
	Status            models.TaskStatus   `json:"status" validate:"omitempty,task_status"`
	DueDate           *models.Date        `json:"due_date"`
	AssignedTo        *uuid.UUID          `json:"assigned_to"`
	Tags              []string            `json:"tags" validate:"max=32,dive,max=50"`
	Recurring         models.Recurrence   `json:"recurring" validate:"omitempty,recurrence"`
	RecurrenceEndDate *models.Date        `json:"recurrence_end_date"`
	Reminder          models.Reminder     `json:"reminder" validate:"omitempty,reminder"`
	TimeEstimate      int                 `json:"time_estimate" validate:"min=0"`
	TimeSpent         int                 `json:"time_spent" validate:"min=0"`
	Notes             string              `json:"notes" validate:"max=10000"`
}

// CreateResult is the created task plus the occurrences generated for it.
// RecurrenceOK is false when a recurring task had no due date to expand from.
type CreateResult struct {
	Task          *models.Task `json:"task"`
	RecurrenceIDs []uuid.UUID  `json:"recurrence_ids"`
	RecurrenceOK  bool         `json:"recurrence_ok"`
}

// Service coordinates task writes with recurrence and notifications
type Service struct {
	repo       Repository
	users      UserLookup
	notifier   notify.Dispatcher
	expander   *recurrence.Expander
	aggregator stats.Aggregator
	loc        *time.Location
	now        func() time.Time
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewService creates a task service. notifier may be nil to disable
// assignment notifications. loc is the zone used for "today".
func NewService(repo Repository, users UserLookup, notifier notify.Dispatcher, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:       repo,
		users:      users,
		notifier:   notifier,
		expander:   recurrence.NewExpander(repo, logger),
		aggregator: stats.Aggregator{Location: loc},
		loc:        loc,
		now:        time.Now,
		tracer:     otel.Tracer("github.com/benvon/task-manager/internal/services/tasks"),
		logger:     logger,
	}
}

// Today returns the current date in the service's time zone
func (s *Service) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// Create stores a new task owned by actor. Recurring tasks are expanded
// after the parent is stored; a failed expansion never fails the create.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.create")
	defer span.End()

	in.sanitize()
	if err := validation.Validate.Struct(in); err != nil {
		return nil, &ValidationError{Message: validation.Describe(err)}
	}

	task := in.task(actor.ID)
	if task.AssignedTo != actor.ID {
		if err := s.checkAssignee(ctx, task.AssignedTo); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	result := &CreateResult{Task: task, RecurrenceIDs: []uuid.UUID{}, RecurrenceOK: true}
	if rule := recurrence.RuleOf(task); rule.Recurring() {
		result.RecurrenceIDs, result.RecurrenceOK = s.expander.ExpandAndCreate(ctx, task, rule)
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID.String()),
		attribute.Int("task.recurrences", len(result.RecurrenceIDs)),
	)

	s.logger.Info("task_created",
		zap.String("task_id", task.ID.String()),
		zap.String("title", logger.SanitizeTitle(task.Title)),
		zap.String("user_id", actor.ID.String()),
		zap.Int("recurrences", len(result.RecurrenceIDs)),
	)
	s.notifyAssignee(ctx, task, actor)
	return result, nil
}

// Get returns a task visible to actor
func (s *Service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetForUser(ctx, id, actor.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return task, nil
}

// List returns one page of actor's tasks and the total match count
func (s *Service) List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]*models.Task, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, &ValidationError{Message: err.Error()}
	}
	tasks, total, err := s.repo.List(ctx, actor.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Update applies a partial update. Both owner and assignee may edit a task;
// only the owner may hand it to someone else.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.TaskUpdate) (*models.Task, error) {
	sanitizeUpdate(&upd)
	if err := upd.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	previous := task.AssignedTo
	if upd.AssignedTo != nil && *upd.AssignedTo != previous {
		if task.AssignedBy != actor.ID {
			return nil, ErrForbidden
		}
		if *upd.AssignedTo != actor.ID {
			if err := s.checkAssignee(ctx, *upd.AssignedTo); err != nil {
				return nil, err
			}
		}
	}

	upd.Apply(task, s.now().UTC())
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, mapRepoError(err)
	}
	s.logger.Info("task_updated",
		zap.String("task_id", task.ID.String()),
		zap.String("user_id", actor.ID.String()),
	)
	if task.AssignedTo != previous {
		s.notifyAssignee(ctx, task, actor)
	}
	return task, nil
}

// Complete marks a task completed
func (s *Service) Complete(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error) {
	status := models.TaskStatusCompleted
	return s.Update(ctx, actor, id, models.TaskUpdate{Status: &status})
}

// Delete removes a task owned by actor
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if task.AssignedBy != actor.ID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("task_deleted",
		zap.String("task_id", id.String()),
		zap.String("user_id", actor.ID.String()),
	)
	return nil
}

// Stats aggregates every task visible to actor as of asOf, or today when
// asOf is nil.
func (s *Service) Stats(ctx context.Context, actor *models.User, asOf *models.Date) (*stats.Statistics, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.stats")
	defer span.End()

	day := s.Today()
	if asOf != nil && !asOf.IsZero() {
		day = *asOf
	}
	tasks, err := s.repo.ListAll(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	result := s.aggregator.Aggregate(tasks, day)
	span.SetAttributes(
		attribute.String("stats.as_of", day.String()),
		attribute.Int("stats.total", result.Total),
	)
	return &result, nil
}

func (s *Service) checkAssignee(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUnknownAssignee
		}
		return fmt.Errorf("failed to look up assignee: %w", err)
	}
	return nil
}

// notifyAssignee tells the assignee about a task someone else gave them.
// Delivery failures are logged and never fail the request.
func (s *Service) notifyAssignee(ctx context.Context, task *models.Task, actor *models.User) {
	if s.notifier == nil || task.AssignedTo == actor.ID {
		return
	}
	if err := s.notifier.Notify(ctx, notify.Assignment(task, actor.Username)); err != nil {
		s.logger.Warn("assignment_notification_failed",
			zap.String("task_id", task.ID.String()),
			zap.String("assignee_id", task.AssignedTo.String()),
			zap.Error(err),
		)
	}
}

func mapRepoError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (in *CreateInput) sanitize() {
	in.Title = validation.SanitizeLine(in.Title)
	in.Description = validation.SanitizeText(in.Description)
	in.Notes = validation.SanitizeText(in.Notes)
}

func (in *CreateInput) task(owner uuid.UUID) *models.Task {
	task := &models.Task{
		Title:             in.Title,
		Description:       in.Description,
		Priority:          in.Priority,
		Status:            in.Status,
		DueDate:           in.DueDate,
		AssignedBy:        owner,
		AssignedTo:        owner,
		Tags:              models.NormalizeTags(in.Tags),
		Recurring:         in.Recurring,
		RecurrenceEndDate: in.RecurrenceEndDate,
		Reminder:          in.Reminder,
		TimeEstimate:      in.TimeEstimate,
		TimeSpent:         in.TimeSpent,
		Notes:             in.Notes,
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Recurring == "" {
		task.Recurring = models.RecurrenceNone
	}
	if task.Reminder == "" {
		task.Reminder = models.ReminderNone
	}
	if in.AssignedTo != nil && *in.AssignedTo != uuid.Nil {
		task.AssignedTo = *in.AssignedTo
	}
	if task.DueDate != nil && task.DueDate.IsZero() {
		task.DueDate = nil
	}
	if task.RecurrenceEndDate != nil && task.RecurrenceEndDate.IsZero() {
		task.RecurrenceEndDate = nil
	}
	return task
}

func sanitizeUpdate(upd *models.TaskUpdate) {
	if upd.Title != nil {
		title := validation.SanitizeLine(*upd.Title)
		upd.Title = &title
	}
	if upd.Description != nil {
		desc := validation.SanitizeText(*upd.Description)
		upd.Description = &desc
	}
	if upd.Notes != nil {
		notes := validation.SanitizeText(*upd.Notes)
		upd.Notes = &notes
	}
}
