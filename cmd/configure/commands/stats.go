package commands

import (
	"encoding/json"
	"fmt"

	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/notify"
	"github.com/benvon/task-manager/internal/services/tasks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var userRef, asOf string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's task statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var day *models.Date
			if asOf != "" {
				d, err := models.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				day = &d
			}

			ctx := cmd.Context()
			cfg, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			users := database.NewUserRepository(db)
			user, err := lookupUser(ctx, users, userRef)
			if err != nil {
				return err
			}

			svc := tasks.NewService(database.NewTaskRepository(db), users,
				notify.NewDirect(database.NewNotificationRepository(db)), cfg.Location, zap.NewNop())
			result, err := svc.Stats(ctx, user, day)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "Username or user id (required)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default: today in TIMEZONE)")
	return cmd
}
