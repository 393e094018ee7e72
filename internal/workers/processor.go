package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/notify"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/benvon/task-manager/internal/stats"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskLister returns every task visible to a user
type TaskLister interface {
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

// DefaultRetryBackoff is the delay before the first retry of a failed job
const DefaultRetryBackoff = 30 * time.Second

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent job failure")

// JobProcessor handles notify and due_digest jobs
type JobProcessor struct {
	notifications notify.Store
	tasks         TaskLister
	jobQueue      queue.JobQueue
	aggregator    stats.Aggregator
	backoff       time.Duration
	logger        *zap.Logger
}

// NewJobProcessor creates a job processor. Retries are re-published to jobQueue.
func NewJobProcessor(notifications notify.Store, tasks TaskLister, jobQueue queue.JobQueue, loc *time.Location, logger *zap.Logger) *JobProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &JobProcessor{
		notifications: notifications,
		tasks:         tasks,
		jobQueue:      jobQueue,
		aggregator:    stats.Aggregator{Location: loc},
		backoff:       DefaultRetryBackoff,
		logger:        logger,
	}
}

// ProcessJob processes a message and acknowledges it. Failed jobs are
// re-published with backoff until MaxRetries, then dead-lettered.
func (p *JobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	var err error
	switch job.Type {
	case queue.JobTypeNotify:
		err = p.processNotify(ctx, job)
	case queue.JobTypeDueDigest:
		err = p.processDigest(ctx, job)
	default:
		err = fmt.Errorf("%w: unknown job type %q", errPermanent, job.Type)
	}

	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}
	return p.handleJobError(ctx, msg, job, err)
}

func (p *JobProcessor) processNotify(ctx context.Context, job *queue.Job) error {
	n, err := job.Notification()
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	if err := p.notifications.Create(ctx, n); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// user or task deleted since the job was published
			p.logger.Info("notification_target_gone",
				zap.String("job_id", job.ID.String()),
				zap.String("user_id", job.UserID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to store notification: %w", err)
	}
	p.logger.Debug("notification_stored",
		zap.String("user_id", n.UserID.String()),
		zap.String("kind", string(n.Kind)),
	)
	return nil
}

func (p *JobProcessor) processDigest(ctx context.Context, job *queue.Job) error {
	asOf, err := job.AsOf(p.aggregator.Location)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	tasks, err := p.tasks.ListAll(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	s := p.aggregator.Aggregate(tasks, asOf)
	if !s.NeedsAttention() {
		p.logger.Debug("digest_skipped_nothing_due",
			zap.String("user_id", job.UserID.String()),
			zap.String("as_of", asOf.String()),
		)
		return nil
	}

	n := &models.Notification{
		ID:      models.DigestNotificationID(job.UserID, asOf),
		UserID:  job.UserID,
		Kind:    models.NotificationKindDigest,
		Message: notify.DigestMessage(&s),
	}
	if err := p.notifications.Create(ctx, n); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil
		case errors.Is(err, database.ErrConflict):
			p.logger.Info("digest_already_sent",
				zap.String("user_id", job.UserID.String()),
				zap.String("as_of", asOf.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to store digest: %w", err)
	}

	p.logger.Info("digest_sent",
		zap.String("user_id", job.UserID.String()),
		zap.Int("overdue", s.Overdue),
		zap.Int("due_today", s.DueToday),
	)
	return nil
}

// handleJobError retries transient failures and dead-letters the rest
func (p *JobProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if !errors.Is(err, errPermanent) && job.CanRetry() && p.jobQueue != nil {
		retry := *job
		retry.RetryAfter(p.backoff)
		enqueueErr := p.jobQueue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
			}
			p.logger.Warn("job_retry_scheduled", append(fields, zap.Timep("not_before", retry.NotBefore))...)
			return err
		}
		fields = append(fields, zap.NamedError("enqueue_error", enqueueErr))
	}

	p.logger.Error("job_dead_lettered", fields...)
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	return err
}

// Run consumes jobs until ctx is cancelled or the delivery channel closes
func (p *JobProcessor) Run(ctx context.Context, prefetch int) error {
	messages, errs, err := p.jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	p.logger.Info("worker_consuming", zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("message channel closed")
			}
			if err := p.ProcessJob(ctx, msg); err != nil {
				p.logger.Debug("job_failed", zap.Error(err))
			}
		}
	}
}
