package models

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestTaskStatus_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value TaskStatus
		valid bool
	}{
		{TaskStatusPending, true},
		{TaskStatusInProgress, true},
		{TaskStatusCompleted, true},
		{TaskStatus("Completed"), false},
		{TaskStatus(""), false},
	}

	for _, tt := range tests {
		if got := tt.value.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.value, got, tt.valid)
		}
	}
}

func TestRecurrence_Valid(t *testing.T) {
	t.Parallel()

	for _, r := range []Recurrence{RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Recurrence("hourly").Valid() {
		t.Error("hourly should not be valid")
	}
}

func TestReminder_Label(t *testing.T) {
	t.Parallel()

	if got := ReminderDayBefore.Label(); got != "1 day before" {
		t.Errorf("Label = %q", got)
	}
	if got := ReminderNone.Label(); got != "" {
		t.Errorf("none Label = %q, want empty", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := NormalizeTags([]string{" Work ", "home", "work", "", "a,b"})
	want := []string{"work", "home", "ab"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags = %v, want %v", got, want)
	}
	if got := ParseTags("  "); len(got) != 0 {
		t.Errorf("ParseTags(blank) = %v, want empty", got)
	}
	if got := ParseTags("x, Y"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("ParseTags = %v", got)
	}
}

func TestTask_CloneIsDeep(t *testing.T) {
	t.Parallel()

	due := NewDate(2024, 1, 1)
	orig := &Task{ID: uuid.New(), Title: "a", DueDate: &due, Tags: []string{"x"}}
	c := orig.Clone()
	*c.DueDate = c.DueDate.AddDays(1)
	c.Tags[0] = "y"

	if orig.DueDate.String() != "2024-01-01" {
		t.Errorf("clone shares due date with original")
	}
	if orig.Tags[0] != "x" {
		t.Errorf("clone shares tags with original")
	}
}

func TestTask_VisibleTo(t *testing.T) {
	t.Parallel()

	owner, assignee, other := uuid.New(), uuid.New(), uuid.New()
	task := &Task{AssignedBy: owner, AssignedTo: assignee}
	if !task.VisibleTo(owner) || !task.VisibleTo(assignee) {
		t.Error("owner and assignee should see the task")
	}
	if task.VisibleTo(other) {
		t.Error("unrelated user should not see the task")
	}
}
