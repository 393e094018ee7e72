package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/benvon/task-manager/internal/stats"
	"github.com/google/uuid"
)

type mockStore struct {
	createFunc func(ctx context.Context, n *models.Notification) error
}

func (m *mockStore) Create(ctx context.Context, n *models.Notification) error {
	return m.createFunc(ctx, n)
}

type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	return m.enqueueFunc(ctx, job)
}

func TestDirect_Notify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		n         *models.Notification
		storeErr  error
		wantErr   bool
		wantCalls int
	}{
		{name: "stored", n: &models.Notification{UserID: uuid.New(), Message: "hi"}, wantCalls: 1},
		{name: "nil", n: nil, wantErr: true},
		{name: "blank message", n: &models.Notification{UserID: uuid.New(), Message: "  "}, wantErr: true},
		{name: "store error", n: &models.Notification{UserID: uuid.New(), Message: "hi"}, storeErr: errors.New("db down"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			store := &mockStore{createFunc: func(ctx context.Context, n *models.Notification) error {
				calls++
				if n.Kind != models.NotificationKindSystem {
					t.Errorf("Kind = %q, want default system", n.Kind)
				}
				return tt.storeErr
			}}

			err := NewDirect(store).Notify(context.Background(), tt.n)
			if (err != nil) != tt.wantErr {
				t.Errorf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("store calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestQueued_Notify(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	n := &models.Notification{
		UserID:  uuid.New(),
		TaskID:  &taskID,
		Kind:    models.NotificationKindAssignment,
		Message: "bob assigned you \"Taxes\"",
	}

	var published *queue.Job
	q := &mockEnqueuer{enqueueFunc: func(ctx context.Context, job *queue.Job) error {
		published = job
		return nil
	}}

	if err := NewQueued(q).Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if published == nil || published.Type != queue.JobTypeNotify {
		t.Fatalf("published = %+v", published)
	}
	got, err := published.Notification()
	if err != nil {
		t.Fatalf("Notification() error = %v", err)
	}
	if got.Message != n.Message || got.UserID != n.UserID || *got.TaskID != taskID {
		t.Errorf("round trip = %+v", got)
	}

	failing := &mockEnqueuer{enqueueFunc: func(context.Context, *queue.Job) error { return errors.New("closed") }}
	if err := NewQueued(failing).Notify(context.Background(), n); err == nil {
		t.Error("expected enqueue error")
	}
}

func TestAssignment(t *testing.T) {
	t.Parallel()

	task := &models.Task{ID: uuid.New(), Title: "Renew passport", AssignedTo: uuid.New(), AssignedBy: uuid.New()}
	n := Assignment(task, "alice")

	if n.UserID != task.AssignedTo {
		t.Errorf("UserID = %s, want assignee %s", n.UserID, task.AssignedTo)
	}
	if n.TaskID == nil || *n.TaskID != task.ID {
		t.Errorf("TaskID = %v", n.TaskID)
	}
	if n.Message != `alice assigned you "Renew passport"` {
		t.Errorf("Message = %q", n.Message)
	}
}

func TestDigestMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats stats.Statistics
		want  string
	}{
		{name: "nothing", stats: stats.Statistics{}, want: "Nothing is due"},
		{name: "singular", stats: stats.Statistics{Overdue: 1}, want: "1 task overdue"},
		{name: "all", stats: stats.Statistics{Overdue: 2, DueToday: 1, DueThisWeek: 4}, want: "2 tasks overdue, 1 task due today, 4 tasks due this week"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DigestMessage(&tt.stats); got != tt.want {
				t.Errorf("DigestMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
