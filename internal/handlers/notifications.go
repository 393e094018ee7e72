package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Notification listing bounds
const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

// NotificationStore reads and updates a user's notifications
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationHandler handles the notification tray
type NotificationHandler struct {
	store  NotificationStore
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store NotificationStore, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{store: store, logger: logger}
}

// RegisterRoutes registers notification routes
// The router should already have the /notifications prefix
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListNotifications).Methods("GET")
	r.HandleFunc("/read-all", h.MarkAllRead).Methods("POST")
	r.HandleFunc("/{id}/read", h.MarkRead).Methods("POST")
}

// ListNotificationsResponse is a page of notifications plus the unread count
type ListNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
}

// ListNotifications returns the newest notifications, optionally only unread ones
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	unreadOnly, _ := strconv.ParseBool(q.Get("unread"))
	limit := DefaultNotificationLimit
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, MaxNotificationLimit)
		}
	}

	ctx := r.Context()
	list, err := h.store.ListByUser(ctx, user.ID, unreadOnly, limit)
	if err != nil {
		h.logger.Error("notification_list_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notifications")
		return
	}
	unread, err := h.store.CountUnread(ctx, user.ID)
	if err != nil {
		h.logger.Error("notification_count_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notifications")
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}
	respondJSON(w, http.StatusOK, ListNotificationsResponse{Notifications: list, Unread: unread})
}

// MarkRead marks one notification read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.MarkRead(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Notification not found")
			return
		}
		h.logger.Error("notification_mark_read_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

// MarkAllRead marks every notification of the caller read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	n, err := h.store.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("notification_mark_all_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
