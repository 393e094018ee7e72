package database

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

// BackupRepository records backups taken by users
type BackupRepository struct {
	db *DB
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Create records a backup
func (r *BackupRepository) Create(ctx context.Context, b *models.BackupRecord) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.exec(ctx, `
		INSERT INTO backups (id, user_id, filename, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.UserID, b.Filename, b.Size, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record backup: %w", err)
	}
	return nil
}

// ListByUser returns the user's backups newest first
func (r *BackupRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BackupRecord, error) {
	rows, err := r.db.query(ctx, `
		SELECT id, user_id, filename, size, created_at
		FROM backups WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	defer rows.Close()

	out := []*models.BackupRecord{}
	for rows.Next() {
		b := &models.BackupRecord{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Filename, &b.Size, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backups: %w", err)
	}
	return out, nil
}
