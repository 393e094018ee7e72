package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field limits shared by create and update paths
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 10000
	MaxNotesLength       = 10000
	MaxTags              = 32
	MaxTagLength         = 50
)

// ErrEmptyUpdate is returned when an update names no fields
var ErrEmptyUpdate = errors.New("update contains no fields")

// TaskUpdate is a partial update. Nil fields are left unchanged.
type TaskUpdate struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Priority     *TaskPriority `json:"priority,omitempty"`
	Status       *TaskStatus   `json:"status,omitempty"`
	DueDate      *Date         `json:"due_date,omitempty"`
	ClearDueDate bool          `json:"clear_due_date,omitempty"`
	AssignedTo   *uuid.UUID    `json:"assigned_to,omitempty"`
	Tags         *[]string     `json:"tags,omitempty"`
	Reminder     *Reminder     `json:"reminder,omitempty"`
	TimeEstimate *int          `json:"time_estimate,omitempty"`
	TimeSpent    *int          `json:"time_spent,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u *TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.Status == nil && u.DueDate == nil && !u.ClearDueDate &&
		u.AssignedTo == nil && u.Tags == nil && u.Reminder == nil &&
		u.TimeEstimate == nil && u.TimeSpent == nil && u.Notes == nil
}

// Validate checks every field that is set
func (u *TaskUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Title != nil {
		n := len([]rune(strings.TrimSpace(*u.Title)))
		if n == 0 {
			return errors.New("title cannot be empty")
		}
		if n > MaxTitleLength {
			return fmt.Errorf("title exceeds %d characters", MaxTitleLength)
		}
	}
	if u.Description != nil && len([]rune(*u.Description)) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	if u.Notes != nil && len([]rune(*u.Notes)) > MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", MaxNotesLength)
	}
	if u.Priority != nil && !u.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *u.Priority)
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("invalid status %q", *u.Status)
	}
	if u.Reminder != nil && !u.Reminder.Valid() {
		return fmt.Errorf("invalid reminder %q", *u.Reminder)
	}
	if u.DueDate != nil && u.ClearDueDate {
		return errors.New("due_date and clear_due_date are mutually exclusive")
	}
	if u.DueDate != nil && u.DueDate.IsZero() {
		return errors.New("due_date must be a date; use clear_due_date to remove it")
	}
	if u.AssignedTo != nil && *u.AssignedTo == uuid.Nil {
		return errors.New("assigned_to must be a user id")
	}
	if u.TimeEstimate != nil && *u.TimeEstimate < 0 {
		return errors.New("time_estimate must be non-negative")
	}
	if u.TimeSpent != nil && *u.TimeSpent < 0 {
		return errors.New("time_spent must be non-negative")
	}
	if u.Tags != nil {
		if err := ValidateTags(*u.Tags); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the set fields onto task and bumps its modification time
func (u *TaskUpdate) Apply(task *Task, now time.Time) {
	if u.Title != nil {
		task.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.Priority != nil {
		task.Priority = *u.Priority
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.DueDate != nil {
		task.DueDate = DatePtr(*u.DueDate)
	}
	if u.ClearDueDate {
		task.DueDate = nil
	}
	if u.AssignedTo != nil {
		task.AssignedTo = *u.AssignedTo
	}
	if u.Tags != nil {
		task.Tags = NormalizeTags(*u.Tags)
	}
	if u.Reminder != nil {
		task.Reminder = *u.Reminder
	}
	if u.TimeEstimate != nil {
		task.TimeEstimate = *u.TimeEstimate
	}
	if u.TimeSpent != nil {
		task.TimeSpent = *u.TimeSpent
	}
	if u.Notes != nil {
		task.Notes = *u.Notes
	}
	task.UpdatedAt = now
}

// ValidateTags checks tag count and length before normalization
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("at most %d tags are allowed", MaxTags)
	}
	for _, tag := range tags {
		if len([]rune(strings.TrimSpace(tag))) > MaxTagLength {
			return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagLength)
		}
	}
	return nil
}
