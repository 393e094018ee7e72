package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/benvon/task-manager/internal/backup"
	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BackupService creates, lists and restores backups
type BackupService interface {
	Create(ctx context.Context, userID uuid.UUID) (*models.BackupRecord, []byte, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.BackupRecord, error)
	Restore(ctx context.Context, userID uuid.UUID, data []byte) (models.RestoreResult, error)
}

var _ BackupService = (*backup.Service)(nil)

// BackupHandler handles backup downloads and restores
type BackupHandler struct {
	svc      BackupService
	maxBytes int64
	logger   *zap.Logger
}

// NewBackupHandler creates a backup handler. Restore bodies larger than
// maxBytes are rejected.
func NewBackupHandler(svc BackupService, maxBytes int64, logger *zap.Logger) *BackupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupHandler{svc: svc, maxBytes: maxBytes, logger: logger}
}

// RegisterRoutes registers backup routes
// The router should already have the /backups prefix
func (h *BackupHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBackups).Methods("GET")
	r.HandleFunc("", h.CreateBackup).Methods("POST")
	r.HandleFunc("/restore", h.RestoreBackup).Methods("POST")
}

// CreateBackup returns a backup of the caller's tasks as a download
func (h *BackupHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	record, data, err := h.svc.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("backup_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	w.WriteHeader(http.StatusCreated)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("backup_write_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// ListBackups lists the caller's backups, newest first
func (h *BackupHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	records, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("backup_list_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list backups")
		return
	}
	if records == nil {
		records = []*models.BackupRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// RestoreBackup validates an uploaded backup and restores its tasks
func (h *BackupHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Backup exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read backup")
		return
	}

	res, err := h.svc.Restore(r.Context(), user.ID, data)
	if err != nil {
		var invalid *backup.InvalidError
		if errors.As(err, &invalid) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", invalid.Error())
			return
		}
		h.logger.Error("restore_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to restore backup")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
