package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents how important a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Recurrence is the repeat interval of a recurring task
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Reminder is advisory text shown next to a task. Nothing schedules it.
type Reminder string

const (
	ReminderNone       Reminder = "none"
	ReminderHourBefore Reminder = "hour_before"
	ReminderDayBefore  Reminder = "day_before"
	ReminderWeekBefore Reminder = "week_before"
)

// Task represents a task record
type Task struct {
	ID                uuid.UUID    `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Priority          TaskPriority `json:"priority"`
	Status            TaskStatus   `json:"status"`
	DueDate           *Date        `json:"due_date,omitempty"`
	AssignedBy        uuid.UUID    `json:"assigned_by"`
	AssignedTo        uuid.UUID    `json:"assigned_to"`
	Tags              []string     `json:"tags"`
	Recurring         Recurrence   `json:"recurring"`
	RecurrenceEndDate *Date        `json:"recurrence_end_date,omitempty"`
	Reminder          Reminder     `json:"reminder"`
	TimeEstimate      int          `json:"time_estimate"`
	TimeSpent         int          `json:"time_spent"`
	Notes             string       `json:"notes"`
	CreatedAt         time.Time    `json:"created_date"`
	UpdatedAt         time.Time    `json:"modified_date"`
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.RecurrenceEndDate != nil {
		d := *t.RecurrenceEndDate
		c.RecurrenceEndDate = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// VisibleTo reports whether the user owns or is assigned the task
func (t *Task) VisibleTo(userID uuid.UUID) bool {
	return t.AssignedTo == userID || t.AssignedBy == userID
}

// IsOpen reports whether the task still needs doing
func (t *Task) IsOpen() bool {
	return t.Status != TaskStatusCompleted
}

// NormalizeTags lower-cases, trims and de-duplicates tags, preserving order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.ReplaceAll(tag, ",", "")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseTags splits a comma separated tag list
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Valid reports whether r is a known recurrence interval
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Valid reports whether r is a known reminder option
func (r Reminder) Valid() bool {
	switch r {
	case ReminderNone, ReminderHourBefore, ReminderDayBefore, ReminderWeekBefore:
		return true
	}
	return false
}

// Label returns the text shown next to a task with this reminder
func (r Reminder) Label() string {
	switch r {
	case ReminderHourBefore:
		return "1 hour before"
	case ReminderDayBefore:
		return "1 day before"
	case ReminderWeekBefore:
		return "1 week before"
	default:
		return ""
	}
}
