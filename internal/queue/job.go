package queue

import (
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeNotify persists a notification for a user
	JobTypeNotify JobType = "notify"
	// JobTypeDueDigest summarizes a user's overdue and due-today tasks
	JobTypeDueDigest JobType = "due_digest"
)

// DefaultMaxRetries is how often a failing job is retried before it is dead-lettered
const DefaultMaxRetries = 3

// Metadata keys
const (
	MetaKind    = "kind"
	MetaMessage = "message"
	MetaAsOf    = "as_of"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	TaskID     *uuid.UUID     `json:"task_id,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, taskID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		TaskID:     taskID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewNotifyJob wraps a notification so the worker can persist it
func NewNotifyJob(n *models.Notification) *Job {
	job := NewJob(JobTypeNotify, n.UserID, n.TaskID)
	job.Metadata[MetaKind] = string(n.Kind)
	job.Metadata[MetaMessage] = n.Message
	return job
}

// NewDigestJob creates a digest job for the user covering asOf, valid
// between notBefore and notAfter
func NewDigestJob(userID uuid.UUID, asOf models.Date, notBefore, notAfter time.Time) *Job {
	job := NewJob(JobTypeDueDigest, userID, nil)
	job.Metadata[MetaAsOf] = asOf.String()
	job.NotBefore = &notBefore
	job.NotAfter = &notAfter
	return job
}

// Notification rebuilds the notification carried by a notify job
func (j *Job) Notification() (*models.Notification, error) {
	if j.Type != JobTypeNotify {
		return nil, fmt.Errorf("job %s is %s, not %s", j.ID, j.Type, JobTypeNotify)
	}
	kind, _ := j.Metadata[MetaKind].(string)
	message, _ := j.Metadata[MetaMessage].(string)
	if message == "" {
		return nil, fmt.Errorf("notify job %s has no message", j.ID)
	}
	if kind == "" {
		kind = string(models.NotificationKindSystem)
	}
	return &models.Notification{
		UserID:  j.UserID,
		TaskID:  j.TaskID,
		Kind:    models.NotificationKind(kind),
		Message: message,
	}, nil
}

// AsOf returns the digest date of a due_digest job, falling back to the
// date of NotBefore in loc
func (j *Job) AsOf(loc *time.Location) (models.Date, error) {
	if s, ok := j.Metadata[MetaAsOf].(string); ok && s != "" {
		return models.ParseDate(s)
	}
	if j.NotBefore != nil {
		if loc == nil {
			loc = time.UTC
		}
		return models.DateOf(j.NotBefore.In(loc)), nil
	}
	return models.Date{}, fmt.Errorf("digest job %s has no date", j.ID)
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// RetryAfter schedules the job for another attempt after backoff, doubling
// the delay with each retry
func (j *Job) RetryAfter(base time.Duration) {
	j.IncrementRetry()
	at := time.Now().Add(base << (j.RetryCount - 1))
	j.NotBefore = &at
}
