package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/google/uuid"
)

// mockJobQueue records enqueued jobs
type mockJobQueue struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	consumeFunc func(ctx context.Context, prefetch int) (<-chan queue.MessageInterface, <-chan error, error)
	jobs        []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetch int) (<-chan queue.MessageInterface, <-chan error, error) {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, prefetch)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

func (m *mockJobQueue) enqueued() []*queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*queue.Job(nil), m.jobs...)
}

var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockMessage tracks how a message was settled
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

var _ queue.MessageInterface = (*mockMessage)(nil)

type mockNotificationStore struct {
	mu         sync.Mutex
	createFunc func(ctx context.Context, n *models.Notification) error
	created    []*models.Notification
}

func (m *mockNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return nil
}

type mockTaskLister struct {
	listAllFunc func(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

func (m *mockTaskLister) ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx, userID)
	}
	return []*models.Task{}, nil
}

type mockUserLister struct {
	listIDsFunc func(ctx context.Context) ([]uuid.UUID, error)
}

func (m *mockUserLister) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.listIDsFunc(ctx)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
