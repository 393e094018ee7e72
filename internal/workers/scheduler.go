package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserLister returns the ids of every account
type UserLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DigestWindow is how long after its scheduled hour a digest job stays valid
const DigestWindow = 12 * time.Hour

// retryInterval is how soon Run retries after failing to list users
const retryInterval = 5 * time.Minute

// DigestScheduler enqueues one due-date digest job per user for the next
// digest hour
type DigestScheduler struct {
	jobQueue queue.JobQueue
	users    UserLister
	hour     int
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewDigestScheduler creates a new digest scheduler
func NewDigestScheduler(jobQueue queue.JobQueue, users UserLister, hour int, loc *time.Location, logger *zap.Logger) *DigestScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DigestScheduler{
		jobQueue: jobQueue,
		users:    users,
		hour:     hour,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// NextRun returns the next occurrence of the digest hour strictly after now
func (s *DigestScheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, s.hour, 0, 0, 0, s.loc)
	}
	return next
}

// ScheduleDigestJobs creates a digest job for every user, due at the next
// digest hour. A failure for one user does not stop the others.
func (s *DigestScheduler) ScheduleDigestJobs(ctx context.Context) (int, error) {
	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	notBefore := s.NextRun(s.now())
	notAfter := notBefore.Add(DigestWindow)
	asOf := models.DateOf(notBefore)

	scheduled := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return scheduled, err
		}
		job := queue.NewDigestJob(userID, asOf, notBefore, notAfter)
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("failed_to_schedule_digest_job",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	s.logger.Info("scheduled_digest_jobs",
		zap.Int("user_count", len(userIDs)),
		zap.Int("scheduled", scheduled),
		zap.Time("not_before", notBefore),
	)
	return scheduled, nil
}

// Run schedules the upcoming digest right away and then again each time
// the digest hour passes, until ctx is cancelled. A target hour is never
// scheduled twice by the same process. Jobs from restarts or other workers
// may repeat a slot; the processor stores one digest per user and day.
func (s *DigestScheduler) Run(ctx context.Context) error {
	var last time.Time
	for {
		next := s.NextRun(s.now())
		if !next.Equal(last) {
			if _, err := s.ScheduleDigestJobs(ctx); err != nil {
				s.logger.Error("digest_scheduling_failed", zap.Error(err))
			} else {
				last = next
			}
		}

		wait := time.Until(next) + time.Minute
		if !next.Equal(last) && wait > retryInterval {
			wait = retryInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
