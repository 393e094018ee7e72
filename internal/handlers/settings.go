package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SettingsStore keeps free-form per-user settings
type SettingsStore interface {
	Get(ctx context.Context, userID uuid.UUID) (map[string]string, error)
	Set(ctx context.Context, userID uuid.UUID, values map[string]string) error
}

// ThemeStore updates the theme on the user row
type ThemeStore interface {
	UpdateTheme(ctx context.Context, id uuid.UUID, theme models.Theme) error
}

// SettingsHandler handles user preferences
type SettingsHandler struct {
	settings SettingsStore
	themes   ThemeStore
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsStore, themes ThemeStore, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{settings: settings, themes: themes, logger: logger}
}

// RegisterRoutes registers settings routes on the API router
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.UpdateSettings).Methods("PUT")
}

// UpdateSettingsRequest changes the theme and/or upserts settings values
type UpdateSettingsRequest struct {
	Theme  *models.Theme     `json:"theme,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// GetSettings returns the caller's theme and settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	values, err := h.settings.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("settings_get_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load settings")
		return
	}
	if values == nil {
		values = map[string]string{}
	}
	respondJSON(w, http.StatusOK, models.UserSettings{Theme: user.Theme, Values: values})
}

// UpdateSettings validates and stores the request, returning the merged settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Theme == nil && len(req.Values) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "No settings to update")
		return
	}
	if req.Theme != nil {
		if err := validation.ValidateTheme(string(*req.Theme)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	keys := make([]string, 0, len(req.Values))
	for k := range req.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == models.SettingKeyTheme {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "theme is set with the theme field")
			return
		}
		if err := validation.ValidateSetting(k, req.Values[k]); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}

	ctx := r.Context()
	theme := user.Theme
	if req.Theme != nil && *req.Theme != user.Theme {
		if err := h.themes.UpdateTheme(ctx, user.ID, *req.Theme); err != nil {
			h.logger.Error("theme_update_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save settings")
			return
		}
		theme = *req.Theme
	}
	if len(req.Values) > 0 {
		if err := h.settings.Set(ctx, user.ID, req.Values); err != nil {
			h.logger.Error("settings_set_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save settings")
			return
		}
	}

	values, err := h.settings.Get(ctx, user.ID)
	if err != nil {
		h.logger.Error("settings_get_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load settings")
		return
	}
	if values == nil {
		values = map[string]string{}
	}
	respondJSON(w, http.StatusOK, models.UserSettings{Theme: theme, Values: values})
}
