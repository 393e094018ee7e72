// Package stats computes dashboard statistics from a user's tasks.
package stats

import (
	"sort"
	"time"

	"github.com/benvon/task-manager/internal/models"
)

// DueSoonDays is the width of the due_this_week window after the as-of date
const DueSoonDays = 7

// Statistics is a point-in-time summary of a task set
type Statistics struct {
	AsOf                 models.Date                 `json:"as_of"`
	Total                int                         `json:"total"`
	Completed            int                         `json:"completed"`
	Pending              int                         `json:"pending"`
	InProgress           int                         `json:"in_progress"`
	PriorityHigh         int                         `json:"priority_high"`
	PriorityMedium       int                         `json:"priority_medium"`
	PriorityLow          int                         `json:"priority_low"`
	TimeSpent            int                         `json:"time_spent"`
	EstimatedTime        int                         `json:"estimated_time"`
	Overdue              int                         `json:"overdue"`
	DueToday             int                         `json:"due_today"`
	DueThisWeek          int                         `json:"due_this_week"`
	CompletionRate       float64                     `json:"completion_rate"`
	TimeEfficiency       float64                     `json:"time_efficiency"`
	TaskTrend            map[models.Date]int         `json:"task_trend"`
	StatusDistribution   map[models.TaskStatus]int   `json:"status_distribution"`
	PriorityDistribution map[models.TaskPriority]int `json:"priority_distribution"`
}

// TrendPoint is one day of the creation trend
type TrendPoint struct {
	Date  models.Date `json:"date"`
	Count int         `json:"count"`
}

// Trend returns the creation trend ordered by date
func (s *Statistics) Trend() []TrendPoint {
	out := make([]TrendPoint, 0, len(s.TaskTrend))
	for d, n := range s.TaskTrend {
		out = append(out, TrendPoint{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Aggregator buckets creation timestamps by calendar day in a fixed location
type Aggregator struct {
	Location *time.Location
}

// Aggregate computes statistics for tasks relative to asOf with creation
// dates taken in UTC.
func Aggregate(tasks []*models.Task, asOf models.Date) Statistics {
	return Aggregator{Location: time.UTC}.Aggregate(tasks, asOf)
}

// Aggregate computes statistics for tasks relative to asOf. The input is
// never modified and every call starts from zero.
func (a Aggregator) Aggregate(tasks []*models.Task, asOf models.Date) Statistics {
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}

	s := Statistics{
		AsOf:                 asOf,
		TaskTrend:            make(map[models.Date]int),
		StatusDistribution:   make(map[models.TaskStatus]int),
		PriorityDistribution: make(map[models.TaskPriority]int),
	}
	weekEnd := asOf.AddDays(DueSoonDays)

	for _, t := range tasks {
		if t == nil {
			continue
		}
		s.Total++

		switch t.Status {
		case models.TaskStatusCompleted:
			s.Completed++
		case models.TaskStatusPending:
			s.Pending++
		case models.TaskStatusInProgress:
			s.InProgress++
		}
		switch t.Priority {
		case models.TaskPriorityHigh:
			s.PriorityHigh++
		case models.TaskPriorityMedium:
			s.PriorityMedium++
		case models.TaskPriorityLow:
			s.PriorityLow++
		}
		if t.Status != "" {
			s.StatusDistribution[t.Status]++
		}
		if t.Priority != "" {
			s.PriorityDistribution[t.Priority]++
		}

		s.TimeSpent += t.TimeSpent
		s.EstimatedTime += t.TimeEstimate

		if t.Status != models.TaskStatusCompleted && t.DueDate != nil && !t.DueDate.IsZero() {
			due := *t.DueDate
			switch {
			case due.Before(asOf):
				s.Overdue++
			case due.Equal(asOf):
				s.DueToday++
			case !due.After(weekEnd):
				s.DueThisWeek++
			}
		}

		if !t.CreatedAt.IsZero() {
			s.TaskTrend[models.DateOf(t.CreatedAt.In(loc))]++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = 100 * float64(s.Completed) / float64(s.Total)
	}
	if s.EstimatedTime > 0 {
		s.TimeEfficiency = 100 * float64(s.TimeSpent) / float64(s.EstimatedTime)
	}
	return s
}

// NeedsAttention reports whether anything is overdue or due today
func (s *Statistics) NeedsAttention() bool {
	return s.Overdue > 0 || s.DueToday > 0
}
