// Package recurrence materializes the future occurrences of a recurring task.
package recurrence

import (
	"fmt"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

// MaxOccurrences bounds a single expansion regardless of the end date
const MaxOccurrences = 500

// Default horizons used when a rule has no end date
const (
	DefaultDailyCount   = 30
	DefaultWeeklyCount  = 12
	DefaultMonthlyCount = 6
	DefaultYearlyCount  = 3
)

// Rule is a recurrence interval plus an optional last date
type Rule struct {
	Type    models.Recurrence
	EndDate *models.Date
}

// RuleOf returns the rule stored on a task
func RuleOf(t *models.Task) Rule {
	return Rule{Type: t.Recurring, EndDate: t.RecurrenceEndDate}
}

// Recurring reports whether the rule generates anything at all
func (r Rule) Recurring() bool {
	switch r.Type {
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		return true
	}
	return false
}

// Count returns how many occurrences follow a task due on due.
// With an end date it is the number of periods between the two dates: days,
// whole weeks, calendar months or calendar years. Without one it is the
// default horizon for the interval. Unknown intervals and end dates on or
// before due yield 0.
func Count(rule Rule, due models.Date) int {
	n := periods(rule, due)
	if n > MaxOccurrences {
		return MaxOccurrences
	}
	return n
}

// Truncated reports whether the rule's end date lies beyond MaxOccurrences
// periods, so that Count stops short of it.
func Truncated(rule Rule, due models.Date) bool {
	return periods(rule, due) > MaxOccurrences
}

func periods(rule Rule, due models.Date) int {
	var n int
	if rule.EndDate == nil {
		switch rule.Type {
		case models.RecurrenceDaily:
			n = DefaultDailyCount
		case models.RecurrenceWeekly:
			n = DefaultWeeklyCount
		case models.RecurrenceMonthly:
			n = DefaultMonthlyCount
		case models.RecurrenceYearly:
			n = DefaultYearlyCount
		}
	} else {
		end := *rule.EndDate
		switch rule.Type {
		case models.RecurrenceDaily:
			n = due.DaysUntil(end)
		case models.RecurrenceWeekly:
			n = due.DaysUntil(end) / 7
		case models.RecurrenceMonthly:
			n = (end.Year()-due.Year())*12 + int(end.Month()) - int(due.Month())
		case models.RecurrenceYearly:
			n = end.Year() - due.Year()
		}
	}
	if n <= 0 {
		return 0
	}
	return n
}

// OccurrenceDate returns the due date of the i-th occurrence after due.
// Month and year steps are always taken from the original date, so a task due
// on the 31st lands on the last day of short months and returns to the 31st
// afterwards.
func OccurrenceDate(typ models.Recurrence, due models.Date, i int) (models.Date, bool) {
	switch typ {
	case models.RecurrenceDaily:
		return due.AddDays(i), true
	case models.RecurrenceWeekly:
		return due.AddDays(7 * i), true
	case models.RecurrenceMonthly:
		return due.AddMonths(i), true
	case models.RecurrenceYearly:
		return due.AddYears(i), true
	default:
		return models.Date{}, false
	}
}

// OccurrenceTitle decorates the parent title for occurrence i. The parent is
// occurrence 1, so the first generated task is "(2)".
func OccurrenceTitle(title string, i int) string {
	return fmt.Sprintf("%s (%d)", title, i+1)
}

// Expand returns the occurrences that follow parent, in order. Each is a
// copy of parent with a fresh id, a shifted due date and a decorated title.
// A parent without a due date yields nil.
func Expand(parent *models.Task, rule Rule) []*models.Task {
	if parent == nil || parent.DueDate == nil {
		return nil
	}
	due := *parent.DueDate
	n := Count(rule, due)
	if n == 0 {
		return []*models.Task{}
	}

	out := make([]*models.Task, 0, n)
	for i := 1; i <= n; i++ {
		next, ok := OccurrenceDate(rule.Type, due, i)
		if !ok {
			break
		}
		child := parent.Clone()
		child.ID = uuid.New()
		child.DueDate = models.DatePtr(next)
		child.Title = OccurrenceTitle(parent.Title, i)
		out = append(out, child)
	}
	return out
}
