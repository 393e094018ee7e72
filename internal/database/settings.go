package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SettingsRepository stores per-user key/value settings
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns all settings of a user. The map is empty, never nil.
func (r *SettingsRepository) Get(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	rows, err := r.db.query(ctx, `SELECT setting_key, setting_value FROM settings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return out, nil
}

// Set upserts the given settings in one transaction
func (r *SettingsRepository) Set(ctx context.Context, userID uuid.UUID, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithTx(ctx, func(tx *Tx) error {
		for k, v := range values {
			if _, err := tx.exec(ctx, `
				INSERT INTO settings (user_id, setting_key, setting_value, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (user_id, setting_key) DO UPDATE SET
					setting_value = EXCLUDED.setting_value,
					updated_at = EXCLUDED.updated_at
			`, userID, k, v, now); err != nil {
				return fmt.Errorf("failed to set %s: %w", k, err)
			}
		}
		return nil
	})
}
