package database

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/task-manager/internal/models"
)

func TestSettingsRepository(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "settler")

	got, err := repo.Get(ctx, user.ID)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("Get() on empty = %#v, %v", got, err)
	}

	if err := repo.Set(ctx, user.ID, map[string]string{"language": "en", "page_size": "25"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, user.ID, map[string]string{"language": "de"}); err != nil {
		t.Fatalf("Set() upsert error = %v", err)
	}
	got, err = repo.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["language"] != "de" || got["page_size"] != "25" || len(got) != 2 {
		t.Errorf("Get() = %v", got)
	}
	if err := repo.Set(ctx, user.ID, nil); err != nil {
		t.Errorf("Set(nil) error = %v", err)
	}
}

func TestBackupRepository(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "backer")

	older := &models.BackupRecord{UserID: user.ID, Filename: "backup_20240101000000.json", Size: 10, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &models.BackupRecord{UserID: user.ID, Filename: "backup_20240102000000.json", Size: 20}
	for _, b := range []*models.BackupRecord{older, newer} {
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 2 || list[0].Filename != newer.Filename || list[1].Size != 10 {
		t.Errorf("ListByUser() = %+v", list)
	}
}

func TestRatelimitConfigRepository(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewRatelimitConfigRepository(db)
	ctx := context.Background()

	c, err := repo.Get(ctx)
	if err != nil || c != nil {
		t.Fatalf("Get() on empty = %v, %v; want nil, nil", c, err)
	}

	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "  "}); err == nil {
		t.Error("expected error for empty rate")
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "fast"}); err == nil {
		t.Error("expected error for malformed rate")
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "5-S"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "100-M"}); err != nil {
		t.Fatalf("Set() upsert error = %v", err)
	}
	c, err = repo.Get(ctx)
	if err != nil || c == nil || c.Rate != "100-M" {
		t.Errorf("Get() = %+v, %v", c, err)
	}
}
