package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benvon/task-manager/internal/backup"
	"github.com/benvon/task-manager/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewBackupCmd creates the backup command with export and restore subcommands
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore a user's tasks",
		Long:  "Write a user's backup document to a file, or restore one. Documents are validated against the backup schema before anything is written.",
	}
	cmd.AddCommand(newBackupExportCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	return cmd
}

func newBackupService(db *database.DB) (*backup.Service, error) {
	return backup.NewService(database.NewTaskRepository(db), database.NewBackupRepository(db), zap.NewNop())
}

func newBackupExportCmd() *cobra.Command {
	var userRef, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup document for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			user, err := lookupUser(ctx, database.NewUserRepository(db), userRef)
			if err != nil {
				return err
			}
			svc, err := newBackupService(db)
			if err != nil {
				return err
			}
			record, data, err := svc.Create(ctx, user.ID)
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if out == "" {
				out = record.Filename
			} else if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
				out = filepath.Join(out, record.Filename)
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes) for %s\n", out, record.Size, user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "Username or user id (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output file or directory, - for stdout (default: generated filename)")
	return cmd
}

func newBackupRestoreCmd() *cobra.Command {
	var userRef, in string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a backup document into a user's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			user, err := lookupUser(ctx, database.NewUserRepository(db), userRef)
			if err != nil {
				return err
			}

			var data []byte
			if in == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(in)
			}
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}

			svc, err := newBackupService(db)
			if err != nil {
				return err
			}
			res, err := svc.Restore(ctx, user.ID, data)
			if err != nil {
				var invalid *backup.InvalidError
				if errors.As(err, &invalid) {
					return fmt.Errorf("backup rejected: %s", invalid.Error())
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d tasks, skipped %d\n", res.Restored, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "Username or user id (required)")
	cmd.Flags().StringVar(&in, "in", "", "Backup file, - for stdin (required)")
	return cmd
}
