package models

import (
	"errors"
	"fmt"
)

// SortField is a column a task list can be ordered by
type SortField string

const (
	SortByDueDate     SortField = "due_date"
	SortByPriority    SortField = "priority"
	SortByStatus      SortField = "status"
	SortByTitle       SortField = "title"
	SortByCreatedDate SortField = "created_date"
)

// SortOrder is the direction of a sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Pagination bounds for task listings
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// TaskFilter selects and orders a user's tasks. Every predicate is optional.
type TaskFilter struct {
	Status    *TaskStatus
	Priority  *TaskPriority
	DueDate   *Date
	DueBefore *Date
	Tag       string
	Search    string
	Sort      SortField
	Order     SortOrder
	Limit     int
	Offset    int
}

// Column returns the SQL expression a sort field maps to. Unknown fields fall
// back to the due date so no caller-supplied text reaches a query.
func (f SortField) Column() string {
	switch f {
	case SortByPriority:
		return "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"
	case SortByStatus:
		return "status"
	case SortByTitle:
		return "title"
	case SortByCreatedDate:
		return "created_at"
	default:
		return "due_date"
	}
}

// Direction returns the SQL keyword for the order
func (o SortOrder) Direction() string {
	if o == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// Validate checks enum fields and normalizes paging
func (f *TaskFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return fmt.Errorf("invalid status %q", *f.Status)
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *f.Priority)
	}
	switch f.Sort {
	case "":
		f.Sort = SortByDueDate
	case SortByDueDate, SortByPriority, SortByStatus, SortByTitle, SortByCreatedDate:
	default:
		return fmt.Errorf("invalid sort field %q", f.Sort)
	}
	switch f.Order {
	case "":
		f.Order = SortAsc
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("invalid sort order %q", f.Order)
	}
	if f.Offset < 0 {
		return errors.New("offset must be non-negative")
	}
	if f.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return nil
}
