package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/benvon/task-manager/internal/config"
	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the task-manager-configure command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "task-manager-configure",
		Short:         "Administration tool for the Task Manager API",
		Long:          "CLI tool for migrations, accounts, rate limits, backups and statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewRatelimitCmd())
	rootCmd.AddCommand(NewUsersCmd())
	rootCmd.AddCommand(NewBackupCmd())
	rootCmd.AddCommand(NewStatsCmd())
	return rootCmd
}

// openDatabase loads configuration and opens the configured database with
// its schema in place
func openDatabase(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return cfg, db, nil
}

func closeDatabase(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

// lookupUser resolves ref as a user id, falling back to a username
func lookupUser(ctx context.Context, users *database.UserRepository, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("--user is required")
	}
	var (
		user *models.User
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		user, err = users.GetByID(ctx, id)
	} else {
		user, err = users.GetByUsername(ctx, ref)
	}
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}
