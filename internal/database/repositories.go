package database

import (
	"context"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the task operations used by services and handlers
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, int, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, userID uuid.UUID, tasks []*models.Task) (models.RestoreResult, error)
}

// UserRepositoryInterface defines the user operations used by auth and workers
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateTheme(ctx context.Context, id uuid.UUID, theme models.Theme) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// NotificationRepositoryInterface defines the notification operations
type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// SettingsRepositoryInterface defines the settings operations
type SettingsRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (map[string]string, error)
	Set(ctx context.Context, userID uuid.UUID, values map[string]string) error
}

// BackupRepositoryInterface defines the backup record operations
type BackupRepositoryInterface interface {
	Create(ctx context.Context, b *models.BackupRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BackupRecord, error)
}

// RatelimitConfigRepositoryInterface defines the rate limit config operations
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface            = (*TaskRepository)(nil)
	_ UserRepositoryInterface            = (*UserRepository)(nil)
	_ NotificationRepositoryInterface    = (*NotificationRepository)(nil)
	_ SettingsRepositoryInterface        = (*SettingsRepository)(nil)
	_ BackupRepositoryInterface          = (*BackupRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
