package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/benvon/task-manager/internal/auth"
	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/validation"
	"github.com/spf13/cobra"
)

// NewUsersCmd creates the users command with create and list subcommands
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersListCmd())
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var (
		username      string
		email         string
		password      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if err := validation.Validate.Var(username, "required,username"); err != nil {
				return fmt.Errorf("invalid --username %q: use 3-50 letters, digits, '.', '_' or '-'", username)
			}
			email = strings.ToLower(strings.TrimSpace(email))
			if email != "" {
				if err := validation.Validate.Var(email, "email,max=254"); err != nil {
					return fmt.Errorf("invalid --email %q", email)
				}
			}
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			_, db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			user := &models.User{Username: username, PasswordHash: hash, Theme: models.ThemeLight}
			if email != "" {
				user.Email = &email
			}
			if err := database.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
				if errors.Is(err, database.ErrConflict) {
					return fmt.Errorf("username or email already registered")
				}
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			users, err := database.NewUserRepository(db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users. Use 'users create' to add one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tLAST LOGIN")
			for _, u := range users {
				email, lastLogin := "-", "never"
				if u.Email != nil {
					email = *u.Email
				}
				if u.LastLogin != nil {
					lastLogin = u.LastLogin.UTC().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, email, lastLogin)
			}
			return tw.Flush()
		},
	}
}
