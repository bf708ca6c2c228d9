package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasky-bot/tasky/internal/config"
	"github.com/tasky-bot/tasky/internal/database"
)

// NewUsersCmd creates the users command
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Long:  "List every user known to the bot with their phone number",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			userRepo := database.NewUserRepository(db)
			users, err := userRepo.ListAll(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No users registered")
				return nil
			}

			fmt.Printf("Registered users (%d):\n", len(users))
			for _, user := range users {
				fmt.Printf("  - %s\n", user.DisplayName)
				fmt.Printf("    ID: %s\n", user.ID)
				fmt.Printf("    Phone: %s\n", user.PhoneNumber)
				fmt.Printf("    Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
