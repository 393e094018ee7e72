package stats

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

var asOf = models.NewDate(2024, 3, 10)

func task(status models.TaskStatus, priority models.TaskPriority, due *models.Date) *models.Task {
	return &models.Task{
		ID:        uuid.New(),
		Title:     "t",
		Status:    status,
		Priority:  priority,
		DueDate:   due,
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func due(offset int) *models.Date {
	d := asOf.AddDays(offset)
	return &d
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	s := Aggregate(nil, asOf)
	if s.Total != 0 || s.CompletionRate != 0 || s.TimeEfficiency != 0 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if s.TaskTrend == nil || s.StatusDistribution == nil || s.PriorityDistribution == nil {
		t.Fatal("maps must be non-nil")
	}
	if len(s.TaskTrend) != 0 || len(s.StatusDistribution) != 0 || len(s.PriorityDistribution) != 0 {
		t.Errorf("maps must be empty: %+v", s)
	}
	if tr := s.Trend(); tr == nil || len(tr) != 0 {
		t.Errorf("Trend() = %v, want empty slice", tr)
	}
}

func TestAggregate_CompletionRate(t *testing.T) {
	t.Parallel()

	tasks := []*models.Task{
		task(models.TaskStatusCompleted, models.TaskPriorityLow, nil),
		task(models.TaskStatusCompleted, models.TaskPriorityLow, nil),
		task(models.TaskStatusCompleted, models.TaskPriorityHigh, nil),
		task(models.TaskStatusPending, models.TaskPriorityMedium, nil),
		task(models.TaskStatusPending, models.TaskPriorityMedium, nil),
	}
	s := Aggregate(tasks, asOf)

	if s.CompletionRate != 60.0 {
		t.Errorf("CompletionRate = %v, want 60", s.CompletionRate)
	}
	if s.Completed != 3 || s.Pending != 2 || s.InProgress != 0 {
		t.Errorf("status counts = %d/%d/%d", s.Completed, s.Pending, s.InProgress)
	}
	if s.PriorityHigh != 1 || s.PriorityMedium != 2 || s.PriorityLow != 2 {
		t.Errorf("priority counts = %d/%d/%d", s.PriorityHigh, s.PriorityMedium, s.PriorityLow)
	}
	wantStatus := map[models.TaskStatus]int{models.TaskStatusCompleted: 3, models.TaskStatusPending: 2}
	if !reflect.DeepEqual(s.StatusDistribution, wantStatus) {
		t.Errorf("StatusDistribution = %v, want %v", s.StatusDistribution, wantStatus)
	}
	if _, ok := s.StatusDistribution[models.TaskStatusInProgress]; ok {
		t.Error("unobserved status must not appear")
	}
}

func TestAggregate_DueBuckets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		task        *models.Task
		overdue     int
		dueToday    int
		dueThisWeek int
	}{
		{"yesterday", task(models.TaskStatusPending, models.TaskPriorityLow, due(-1)), 1, 0, 0},
		{"today", task(models.TaskStatusPending, models.TaskPriorityLow, due(0)), 0, 1, 0},
		{"tomorrow", task(models.TaskStatusInProgress, models.TaskPriorityLow, due(1)), 0, 0, 1},
		{"week boundary", task(models.TaskStatusPending, models.TaskPriorityLow, due(7)), 0, 0, 1},
		{"past week", task(models.TaskStatusPending, models.TaskPriorityLow, due(8)), 0, 0, 0},
		{"completed overdue", task(models.TaskStatusCompleted, models.TaskPriorityLow, due(-3)), 0, 0, 0},
		{"completed today", task(models.TaskStatusCompleted, models.TaskPriorityLow, due(0)), 0, 0, 0},
		{"no due date", task(models.TaskStatusPending, models.TaskPriorityLow, nil), 0, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Aggregate([]*models.Task{tt.task}, asOf)
			if s.Overdue != tt.overdue || s.DueToday != tt.dueToday || s.DueThisWeek != tt.dueThisWeek {
				t.Errorf("buckets = %d/%d/%d, want %d/%d/%d",
					s.Overdue, s.DueToday, s.DueThisWeek, tt.overdue, tt.dueToday, tt.dueThisWeek)
			}
		})
	}
}

func TestAggregate_TimeEfficiency(t *testing.T) {
	t.Parallel()

	a := task(models.TaskStatusPending, models.TaskPriorityLow, nil)
	a.TimeEstimate, a.TimeSpent = 60, 30
	b := task(models.TaskStatusPending, models.TaskPriorityLow, nil)
	b.TimeEstimate, b.TimeSpent = 20, 50

	s := Aggregate([]*models.Task{a, b}, asOf)
	if s.EstimatedTime != 80 || s.TimeSpent != 80 {
		t.Errorf("sums = %d/%d", s.EstimatedTime, s.TimeSpent)
	}
	if math.Abs(s.TimeEfficiency-100) > 1e-9 {
		t.Errorf("TimeEfficiency = %v, want 100", s.TimeEfficiency)
	}

	c := task(models.TaskStatusPending, models.TaskPriorityLow, nil)
	c.TimeSpent = 45
	if got := Aggregate([]*models.Task{c}, asOf).TimeEfficiency; got != 0 {
		t.Errorf("no estimate TimeEfficiency = %v, want 0", got)
	}
}

func TestAggregate_UnknownValues(t *testing.T) {
	t.Parallel()

	odd := task(models.TaskStatus("archived"), models.TaskPriority("urgent"), due(-1))
	s := Aggregate([]*models.Task{odd}, asOf)

	if s.Total != 1 || s.Completed+s.Pending+s.InProgress != 0 {
		t.Errorf("unknown status counted: %+v", s)
	}
	if s.PriorityHigh+s.PriorityMedium+s.PriorityLow != 0 {
		t.Errorf("unknown priority counted: %+v", s)
	}
	if s.StatusDistribution["archived"] != 1 || s.PriorityDistribution["urgent"] != 1 {
		t.Errorf("observed values should be distributed: %v %v", s.StatusDistribution, s.PriorityDistribution)
	}
	if s.Overdue != 1 {
		t.Errorf("open task with unknown status should still be overdue")
	}
}

func TestAggregate_Trend(t *testing.T) {
	t.Parallel()

	mk := func(ts time.Time) *models.Task {
		tk := task(models.TaskStatusPending, models.TaskPriorityLow, nil)
		tk.CreatedAt = ts
		return tk
	}
	tasks := []*models.Task{
		mk(time.Date(2024, 3, 2, 23, 30, 0, 0, time.UTC)),
		mk(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		mk(time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)),
	}

	s := Aggregate(tasks, asOf)
	want := []TrendPoint{
		{Date: models.NewDate(2024, 3, 1), Count: 1},
		{Date: models.NewDate(2024, 3, 2), Count: 2},
	}
	if got := s.Trend(); !reflect.DeepEqual(got, want) {
		t.Errorf("Trend() = %v, want %v", got, want)
	}

	tokyo := time.FixedZone("JST", 9*3600)
	s = Aggregator{Location: tokyo}.Aggregate(tasks, asOf)
	want = []TrendPoint{
		{Date: models.NewDate(2024, 3, 1), Count: 1},
		{Date: models.NewDate(2024, 3, 2), Count: 1},
		{Date: models.NewDate(2024, 3, 3), Count: 1},
	}
	if got := s.Trend(); !reflect.DeepEqual(got, want) {
		t.Errorf("Trend() in JST = %v, want %v", got, want)
	}
}

func TestAggregate_IdempotentAndPure(t *testing.T) {
	t.Parallel()

	tasks := []*models.Task{
		task(models.TaskStatusCompleted, models.TaskPriorityHigh, due(-2)),
		task(models.TaskStatusPending, models.TaskPriorityLow, due(0)),
		task(models.TaskStatusInProgress, models.TaskPriorityMedium, due(3)),
		nil,
	}
	before := make([]models.Task, 0, len(tasks))
	for _, tk := range tasks {
		if tk != nil {
			before = append(before, *tk)
		}
	}

	first := Aggregate(tasks, asOf)
	second := Aggregate(tasks, asOf)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if first.Total != 3 {
		t.Errorf("Total = %d, want 3 (nil entries skipped)", first.Total)
	}

	first.TaskTrend[asOf] = 99
	if third := Aggregate(tasks, asOf); third.TaskTrend[asOf] == 99 {
		t.Error("results share state between calls")
	}

	i := 0
	for _, tk := range tasks {
		if tk == nil {
			continue
		}
		if !reflect.DeepEqual(*tk, before[i]) {
			t.Errorf("task %d mutated", i)
		}
		i++
	}
}

func TestStatistics_NeedsAttention(t *testing.T) {
	t.Parallel()

	s := Aggregate([]*models.Task{task(models.TaskStatusPending, models.TaskPriorityLow, due(2))}, asOf)
	if s.NeedsAttention() {
		t.Error("due later this week should not need attention")
	}
	s = Aggregate([]*models.Task{task(models.TaskStatusPending, models.TaskPriorityLow, due(0))}, asOf)
	if !s.NeedsAttention() {
		t.Error("due today should need attention")
	}
}
