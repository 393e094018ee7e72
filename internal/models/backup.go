package models

import (
	"time"

	"github.com/google/uuid"
)

// BackupVersion is the document format written by the backup endpoint
const BackupVersion = 1

// BackupRecord describes one backup taken by a user
type BackupRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupDocument is the portable JSON form of a user's tasks
type BackupDocument struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uuid.UUID `json:"user_id"`
	Tasks     []*Task   `json:"tasks"`
}

// RestoreResult reports what a restore did
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}
