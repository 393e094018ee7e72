package recurrence

import (
	"testing"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func datePtr(t *testing.T, s string) *models.Date {
	t.Helper()
	d := date(t, s)
	return &d
}

func parentTask(t *testing.T, due string, typ models.Recurrence) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:           uuid.New(),
		Title:        "Water plants",
		Description:  "balcony",
		Priority:     models.TaskPriorityHigh,
		Status:       models.TaskStatusPending,
		AssignedBy:   uuid.New(),
		AssignedTo:   uuid.New(),
		Tags:         []string{"home"},
		Recurring:    typ,
		Reminder:     models.ReminderDayBefore,
		TimeEstimate: 10,
		Notes:        "use rain water",
	}
	if due != "" {
		task.DueDate = datePtr(t, due)
	}
	return task
}

func TestCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  models.Recurrence
		due  string
		end  string
		want int
	}{
		{"daily default", models.RecurrenceDaily, "2024-01-01", "", 30},
		{"weekly default", models.RecurrenceWeekly, "2024-01-01", "", 12},
		{"monthly default", models.RecurrenceMonthly, "2024-01-01", "", 6},
		{"yearly default", models.RecurrenceYearly, "2024-01-01", "", 3},
		{"daily bounded", models.RecurrenceDaily, "2024-01-01", "2024-01-11", 10},
		{"daily across leap day", models.RecurrenceDaily, "2024-02-27", "2024-03-02", 4},
		{"weekly truncates", models.RecurrenceWeekly, "2024-01-01", "2024-01-20", 2},
		{"monthly ignores day", models.RecurrenceMonthly, "2024-01-31", "2024-03-31", 2},
		{"monthly across years", models.RecurrenceMonthly, "2023-11-15", "2024-02-01", 3},
		{"yearly bounded", models.RecurrenceYearly, "2024-02-29", "2027-01-01", 3},
		{"end equals due", models.RecurrenceDaily, "2024-01-01", "2024-01-01", 0},
		{"end before due", models.RecurrenceDaily, "2024-01-10", "2024-01-01", 0},
		{"monthly end before due", models.RecurrenceMonthly, "2024-05-01", "2024-01-01", 0},
		{"none", models.RecurrenceNone, "2024-01-01", "", 0},
		{"unknown", models.Recurrence("fortnightly"), "2024-01-01", "", 0},
		{"capped", models.RecurrenceDaily, "2000-01-01", "2030-01-01", MaxOccurrences},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule := Rule{Type: tt.typ}
			if tt.end != "" {
				rule.EndDate = datePtr(t, tt.end)
			}
			if got := Count(rule, date(t, tt.due)); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTruncated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  models.Recurrence
		due  string
		end  string
		want bool
	}{
		{"within cap", models.RecurrenceDaily, "2024-01-01", "2024-12-31", false},
		{"exactly at cap", models.RecurrenceDaily, "2024-01-01", "2025-05-15", false},
		{"daily beyond cap", models.RecurrenceDaily, "2024-01-01", "2025-05-16", true},
		{"weekly beyond cap", models.RecurrenceWeekly, "2000-01-01", "2030-01-01", true},
		{"no end date", models.RecurrenceDaily, "2024-01-01", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule := Rule{Type: tt.typ}
			if tt.end != "" {
				rule.EndDate = datePtr(t, tt.end)
			}
			if got := Truncated(rule, *datePtr(t, tt.due)); got != tt.want {
				t.Errorf("Truncated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_DailyDefaultHorizon(t *testing.T) {
	t.Parallel()

	parent := parentTask(t, "2024-12-20", models.RecurrenceDaily)
	got := Expand(parent, RuleOf(parent))
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	due := *parent.DueDate
	for i, child := range got {
		want := due.AddDays(i + 1)
		if !child.DueDate.Equal(want) {
			t.Errorf("occurrence %d due = %s, want %s", i+1, child.DueDate, want)
		}
	}
	if got[29].DueDate.String() != "2025-01-19" {
		t.Errorf("last occurrence = %s, want 2025-01-19", got[29].DueDate)
	}
}

func TestExpand_MonthlyClampsFromOriginalDay(t *testing.T) {
	t.Parallel()

	parent := parentTask(t, "2024-01-31", models.RecurrenceMonthly)
	rule := Rule{Type: models.RecurrenceMonthly, EndDate: datePtr(t, "2024-03-31")}
	got := Expand(parent, rule)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].DueDate.String() != "2024-02-29" {
		t.Errorf("first = %s, want 2024-02-29", got[0].DueDate)
	}
	if got[1].DueDate.String() != "2024-03-31" {
		t.Errorf("second = %s, want 2024-03-31", got[1].DueDate)
	}

	long := Expand(parent, Rule{Type: models.RecurrenceMonthly})
	want := []string{"2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31", "2024-06-30", "2024-07-31"}
	for i, w := range want {
		if long[i].DueDate.String() != w {
			t.Errorf("occurrence %d = %s, want %s", i+1, long[i].DueDate, w)
		}
	}
}

func TestExpand_YearlyLeapDay(t *testing.T) {
	t.Parallel()

	parent := parentTask(t, "2024-02-29", models.RecurrenceYearly)
	got := Expand(parent, RuleOf(parent))
	want := []string{"2025-02-28", "2026-02-28", "2027-02-28"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].DueDate.String() != w {
			t.Errorf("occurrence %d = %s, want %s", i+1, got[i].DueDate, w)
		}
	}
}

func TestExpand_CopiesParentFields(t *testing.T) {
	t.Parallel()

	parent := parentTask(t, "2024-01-01", models.RecurrenceWeekly)
	got := Expand(parent, Rule{Type: models.RecurrenceWeekly, EndDate: datePtr(t, "2024-01-15")})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	seen := map[uuid.UUID]bool{parent.ID: true}
	for i, child := range got {
		if seen[child.ID] {
			t.Errorf("occurrence %d reuses id %s", i+1, child.ID)
		}
		seen[child.ID] = true

		wantTitle := OccurrenceTitle("Water plants", i+1)
		if child.Title != wantTitle {
			t.Errorf("title = %q, want %q", child.Title, wantTitle)
		}
		if child.Description != parent.Description || child.Priority != parent.Priority ||
			child.Status != parent.Status || child.AssignedBy != parent.AssignedBy ||
			child.AssignedTo != parent.AssignedTo || child.Recurring != parent.Recurring ||
			child.Reminder != parent.Reminder || child.TimeEstimate != parent.TimeEstimate ||
			child.Notes != parent.Notes {
			t.Errorf("occurrence %d did not copy parent fields: %+v", i+1, child)
		}
		if len(child.Tags) != 1 || child.Tags[0] != "home" {
			t.Errorf("tags = %v", child.Tags)
		}
	}
	if got[0].Title != "Water plants (2)" {
		t.Errorf("first title = %q, want %q", got[0].Title, "Water plants (2)")
	}

	got[0].Tags[0] = "changed"
	if parent.Tags[0] != "home" || parent.DueDate.String() != "2024-01-01" || parent.Title != "Water plants" {
		t.Error("expansion mutated the parent")
	}
}

func TestExpand_NoInstances(t *testing.T) {
	t.Parallel()

	if got := Expand(parentTask(t, "", models.RecurrenceDaily), Rule{Type: models.RecurrenceDaily}); got != nil {
		t.Errorf("no due date: got %d instances, want nil", len(got))
	}
	if got := Expand(nil, Rule{Type: models.RecurrenceDaily}); got != nil {
		t.Errorf("nil parent: got %v", got)
	}

	parent := parentTask(t, "2024-06-01", models.RecurrenceDaily)
	if got := Expand(parent, Rule{Type: models.RecurrenceDaily, EndDate: datePtr(t, "2024-05-01")}); len(got) != 0 {
		t.Errorf("end before due: got %d instances", len(got))
	}
	if got := Expand(parent, Rule{Type: models.Recurrence("bogus")}); len(got) != 0 {
		t.Errorf("unknown type: got %d instances", len(got))
	}
}

func TestRule_Recurring(t *testing.T) {
	t.Parallel()

	if (Rule{Type: models.RecurrenceNone}).Recurring() {
		t.Error("none should not recur")
	}
	if !(Rule{Type: models.RecurrenceYearly}).Recurring() {
		t.Error("yearly should recur")
	}
}
