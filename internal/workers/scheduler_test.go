package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestDigestScheduler_NextRun(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		loc  *time.Location
		now  time.Time
		want time.Time
	}{
		{
			name: "before the hour runs today",
			loc:  time.UTC,
			now:  time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC),
			want: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the hour runs tomorrow",
			loc:  time.UTC,
			now:  time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
			want: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "after the hour rolls over the month",
			loc:  time.UTC,
			now:  time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC),
			want: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "uses the configured zone",
			loc:  berlin,
			now:  time.Date(2026, 5, 1, 5, 30, 0, 0, time.UTC), // 07:30 in Berlin
			want: time.Date(2026, 5, 1, 8, 0, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewDigestScheduler(&mockJobQueue{}, nil, 8, tt.loc, zap.NewNop())
			if got := s.NextRun(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestDigestScheduler_ScheduleDigestJobs(t *testing.T) {
	t.Parallel()

	user1, user2, user3 := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		users         *mockUserLister
		enqueueFunc   func(ctx context.Context, job *queue.Job) error
		wantErr       bool
		wantScheduled int
	}{
		{
			name: "one job per user",
			users: &mockUserLister{listIDsFunc: func(context.Context) ([]uuid.UUID, error) {
				return []uuid.UUID{user1, user2, user3}, nil
			}},
			wantScheduled: 3,
		},
		{
			name: "no users",
			users: &mockUserLister{listIDsFunc: func(context.Context) ([]uuid.UUID, error) {
				return nil, nil
			}},
			wantScheduled: 0,
		},
		{
			name: "listing fails",
			users: &mockUserLister{listIDsFunc: func(context.Context) ([]uuid.UUID, error) {
				return nil, errors.New("db down")
			}},
			wantErr: true,
		},
		{
			name: "enqueue failure skips one user",
			users: &mockUserLister{listIDsFunc: func(context.Context) ([]uuid.UUID, error) {
				return []uuid.UUID{user1, user2, user3}, nil
			}},
			enqueueFunc: func(ctx context.Context, job *queue.Job) error {
				if job.UserID == user2 {
					return errors.New("channel closed")
				}
				return nil
			},
			wantScheduled: 2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &mockJobQueue{enqueueFunc: tt.enqueueFunc}
			s := NewDigestScheduler(q, tt.users, 8, time.UTC, zap.NewNop())
			s.now = fixedNow(now)

			got, err := s.ScheduleDigestJobs(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScheduleDigestJobs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantScheduled {
				t.Errorf("scheduled = %d, want %d", got, tt.wantScheduled)
			}

			wantNotBefore := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
			for _, job := range q.enqueued() {
				if job.Type != queue.JobTypeDueDigest {
					t.Errorf("job type = %s", job.Type)
				}
				if job.NotBefore == nil || !job.NotBefore.Equal(wantNotBefore) {
					t.Errorf("NotBefore = %v, want %v", job.NotBefore, wantNotBefore)
				}
				if job.NotAfter == nil || !job.NotAfter.Equal(wantNotBefore.Add(DigestWindow)) {
					t.Errorf("NotAfter = %v", job.NotAfter)
				}
				asOf, err := job.AsOf(time.UTC)
				if err != nil || asOf != models.NewDate(2026, 5, 2) {
					t.Errorf("AsOf() = %v, %v", asOf, err)
				}
			}
		})
	}
}

func TestDigestScheduler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := &mockJobQueue{}
	users := &mockUserLister{listIDsFunc: func(context.Context) ([]uuid.UUID, error) {
		return []uuid.UUID{uuid.New()}, nil
	}}
	s := NewDigestScheduler(q, users, 8, time.UTC, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(q.enqueued()) == 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not schedule on start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if n := len(q.enqueued()); n != 1 {
		t.Errorf("enqueued %d jobs, want 1", n)
	}
}
