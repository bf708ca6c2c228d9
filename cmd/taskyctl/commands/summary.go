package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tasky-bot/tasky/internal/config"
	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/logger"
	"github.com/tasky-bot/tasky/internal/prompts"
	"github.com/tasky-bot/tasky/internal/services/summary"
	"github.com/tasky-bot/tasky/internal/services/whatsapp"
)

// NewSendSummaryCmd creates the send-summary command
func NewSendSummaryCmd() *cobra.Command {
	var date string
	var userID string

	cmd := &cobra.Command{
		Use:   "send-summary",
		Short: "Send daily summaries now",
		Long:  "Send the daily task summary to every user, or one user with --user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			day, err := summary.ParseDate(date)
			if err != nil {
				return err
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

			zapLogger, err := logger.NewProductionLogger(false)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = zapLogger.Sync()
			}()

			promptMgr, err := prompts.Load(cfg.PromptsFile)
			if err != nil {
				return fmt.Errorf("failed to load prompts: %w", err)
			}

			userRepo := database.NewUserRepository(db)
			taskRepo := database.NewTaskRepository(db)
			waClient := whatsapp.NewClient(cfg.GraphAPIBaseURL, cfg.GraphAPIVersion, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken, zapLogger)
			generator := summary.NewOpenAIGenerator(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel)
			svc := summary.NewService(userRepo, taskRepo, waClient, generator, promptMgr, zapLogger)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if userID != "" {
				id, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid user id: %s", userID)
				}
				if err := svc.RunForUser(ctx, id, day); err != nil {
					return fmt.Errorf("failed to send summary: %w", err)
				}
				fmt.Printf("Summary sent to user %s for %s\n", id, day.Format("2006-01-02"))
				return nil
			}

			sent, err := svc.Run(ctx, day)
			if err != nil {
				return fmt.Errorf("sent %d summaries with failures: %w", sent, err)
			}
			fmt.Printf("Sent %d summaries for %s\n", sent, day.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Summary date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&userID, "user", "", "Send to a single user by ID")

	return cmd
}
