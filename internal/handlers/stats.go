package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatsService computes a user's statistics
type StatsService interface {
	Stats(ctx context.Context, actor *models.User, asOf *models.Date) (*stats.Statistics, error)
}

// StatsHandler serves dashboard statistics
type StatsHandler struct {
	svc    StatsService
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc StatsService, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the stats route on the API router
func (h *StatsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stats", h.GetStats).Methods("GET")
}

// GetStats returns dashboard statistics as of ?as_of (default today)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var asOf *models.Date
	if v := r.URL.Query().Get("as_of"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		asOf = &d
	}

	s, err := h.svc.Stats(r.Context(), user, asOf)
	if err != nil {
		h.logger.Error("stats_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute statistics")
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{Statistics: s, Trend: s.Trend()})
}

// StatsResponse is the statistics plus the trend ordered by date
type StatsResponse struct {
	*stats.Statistics
	Trend []stats.TrendPoint `json:"trend"`
}
