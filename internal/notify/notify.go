// Package notify delivers user notifications either straight to the
// database or through the job queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/benvon/task-manager/internal/stats"
)

// Dispatcher delivers a notification to its user
type Dispatcher interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Store persists notifications
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Enqueuer publishes jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// Direct writes notifications to the store in the caller's goroutine
type Direct struct {
	store Store
}

// NewDirect creates a dispatcher that writes to store
func NewDirect(store Store) *Direct {
	return &Direct{store: store}
}

// Notify implements Dispatcher
func (d *Direct) Notify(ctx context.Context, n *models.Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	if err := d.store.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// Queued publishes a notify job for the worker to persist
type Queued struct {
	queue Enqueuer
}

// NewQueued creates a dispatcher that publishes to q
func NewQueued(q Enqueuer) *Queued {
	return &Queued{queue: q}
}

// Notify implements Dispatcher
func (q *Queued) Notify(ctx context.Context, n *models.Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	if err := q.queue.Enqueue(ctx, queue.NewNotifyJob(n)); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

var (
	_ Dispatcher = (*Direct)(nil)
	_ Dispatcher = (*Queued)(nil)
)

func validate(n *models.Notification) error {
	if n == nil {
		return errors.New("notification is nil")
	}
	if strings.TrimSpace(n.Message) == "" {
		return errors.New("notification message is empty")
	}
	if n.Kind == "" {
		n.Kind = models.NotificationKindSystem
	}
	return nil
}

// Assignment builds the notification sent when assigner gives task to its assignee
func Assignment(task *models.Task, assigner string) *models.Notification {
	id := task.ID
	return &models.Notification{
		UserID:  task.AssignedTo,
		TaskID:  &id,
		Kind:    models.NotificationKindAssignment,
		Message: fmt.Sprintf("%s assigned you %q", assigner, task.Title),
	}
}

// DigestMessage summarizes the attention counts of s, for example
// "2 tasks overdue, 1 task due today, 4 tasks due this week"
func DigestMessage(s *stats.Statistics) string {
	var parts []string
	if s.Overdue > 0 {
		parts = append(parts, plural(s.Overdue, "task")+" overdue")
	}
	if s.DueToday > 0 {
		parts = append(parts, plural(s.DueToday, "task")+" due today")
	}
	if s.DueThisWeek > 0 {
		parts = append(parts, plural(s.DueThisWeek, "task")+" due this week")
	}
	if len(parts) == 0 {
		return "Nothing is due"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
