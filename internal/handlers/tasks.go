package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/task-manager/internal/export"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/services/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskService is the task logic behind the task endpoints
type TaskService interface {
	Create(ctx context.Context, actor *models.User, in tasks.CreateInput) (*tasks.CreateResult, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]*models.Task, int, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.TaskUpdate) (*models.Task, error)
	Complete(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

var _ TaskService = (*tasks.Service)(nil)

// TaskHandler handles task-related requests
type TaskHandler struct {
	svc    TaskService
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(svc TaskService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/export", h.ExportTasks).Methods("GET")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists tasks visible to the authenticated user with pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	q := r.URL.Query()
	filter, err := parseTaskFilter(q)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	page, pageSize := parsePagination(q)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	list, total, err := h.svc.List(r.Context(), user, filter)
	if err != nil {
		h.writeServiceError(w, err, "Failed to retrieve tasks")
		return
	}
	if list == nil {
		list = []*models.Task{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      list,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask creates a task, expanding it when it recurs
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req tasks.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Create(r.Context(), user, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create task")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.svc.Get(r.Context(), user, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to retrieve task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.TaskUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.svc.Update(r.Context(), user, id, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task owned by the caller
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), user, id); err != nil {
		h.writeServiceError(w, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.svc.Complete(r.Context(), user, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to complete task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// ExportTasks downloads every matching task as CSV or JSON
func (h *TaskHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	filter, err := parseTaskFilter(q)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	all, err := h.collect(r.Context(), user, filter)
	if err != nil {
		h.writeServiceError(w, err, "Failed to export tasks")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(time.Now().UTC())))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, all); err != nil {
		h.logger.Error("task_export_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// collect pages through every task matching filter
func (h *TaskHandler) collect(ctx context.Context, user *models.User, filter models.TaskFilter) ([]*models.Task, error) {
	filter.Limit = models.MaxPageSize
	filter.Offset = 0
	var all []*models.Task
	for {
		page, total, err := h.svc.List(ctx, user, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
		filter.Offset += len(page)
	}
}

func (h *TaskHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *tasks.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", verr.Message)
	case errors.Is(err, tasks.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
	case errors.Is(err, tasks.ErrForbidden):
		respondJSONError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, tasks.ErrUnknownAssignee):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("task_request_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fallback)
	}
}

// parsePagination reads page and page_size, falling back to defaults on bad input
func parsePagination(q url.Values) (page, pageSize int) {
	page = 1
	if p := q.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize = models.DefaultPageSize
	if ps := q.Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = min(parsed, models.MaxPageSize)
		}
	}
	return page, pageSize
}

// parseTaskFilter reads the filter and sort query parameters
func parseTaskFilter(q url.Values) (models.TaskFilter, error) {
	var f models.TaskFilter
	if s := q.Get("status"); s != "" {
		status := models.TaskStatus(s)
		if !status.Valid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
		f.Status = &status
	}
	if p := q.Get("priority"); p != "" {
		priority := models.TaskPriority(p)
		if !priority.Valid() {
			return f, fmt.Errorf("invalid priority %q", p)
		}
		f.Priority = &priority
	}
	for key, dst := range map[string]**models.Date{"due_date": &f.DueDate, "due_before": &f.DueBefore} {
		if v := q.Get(key); v != "" {
			d, err := models.ParseDate(v)
			if err != nil {
				return f, fmt.Errorf("%s: %w", key, err)
			}
			*dst = &d
		}
	}
	f.Tag = strings.ToLower(strings.TrimSpace(q.Get("tag")))
	f.Search = strings.TrimSpace(q.Get("q"))
	f.Sort = models.SortField(q.Get("sort"))
	f.Order = models.SortOrder(strings.ToLower(q.Get("order")))
	return f, nil
}
