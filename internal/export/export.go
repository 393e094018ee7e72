// Package export renders task lists as CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/task-manager/internal/models"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Header is the CSV column order
var Header = []string{
	"id", "title", "description", "priority", "status", "due_date",
	"created_date", "modified_date", "assigned_by", "assigned_to", "tags",
	"recurring", "recurrence_end_date", "reminder", "time_estimate",
	"time_spent", "notes",
}

// ParseFormat accepts "csv" or "json" in any case, defaulting to CSV when empty
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (must be csv or json)", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for an export taken at t
func (f Format) Filename(t time.Time) string {
	return "tasks_" + t.Format("20060102150405") + "." + string(f)
}

// Write renders tasks to w in format f
func Write(w io.Writer, f Format, tasks []*models.Task) error {
	if f == FormatJSON {
		return WriteJSON(w, tasks)
	}
	return WriteCSV(w, tasks)
}

// WriteCSV writes a header row and one row per task. Tags are joined with ";".
func WriteCSV(w io.Writer, tasks []*models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("failed to write task %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteJSON writes tasks as an indented JSON array
func WriteJSON(w io.Writer, tasks []*models.Task) error {
	if tasks == nil {
		tasks = []*models.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return nil
}

func row(t *models.Task) []string {
	return []string{
		t.ID.String(),
		t.Title,
		t.Description,
		string(t.Priority),
		string(t.Status),
		dateString(t.DueDate),
		timeString(t.CreatedAt),
		timeString(t.UpdatedAt),
		t.AssignedBy.String(),
		t.AssignedTo.String(),
		strings.Join(t.Tags, ";"),
		string(t.Recurring),
		dateString(t.RecurrenceEndDate),
		string(t.Reminder),
		strconv.Itoa(t.TimeEstimate),
		strconv.Itoa(t.TimeSpent),
		t.Notes,
	}
}

func dateString(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
