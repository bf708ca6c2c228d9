package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tasky-bot/tasky/internal/config"
	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/queue"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and connectivity",
		Long:  "Load the configuration and probe the database, Redis and RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			fmt.Println("Configuration: OK")

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			failed := false

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				fmt.Printf("Database: FAILED (%v)\n", err)
				failed = true
			} else {
				fmt.Println("Database: OK")
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}

			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				fmt.Printf("Redis: FAILED (%v)\n", err)
				failed = true
			} else {
				client := redis.NewClient(redisOpts)
				if err := client.Ping(ctx).Err(); err != nil {
					fmt.Printf("Redis: FAILED (%v)\n", err)
					failed = true
				} else {
					fmt.Println("Redis: OK")
				}
				_ = client.Close()
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				fmt.Printf("RabbitMQ: FAILED (%v)\n", err)
				failed = true
			} else {
				if err := jobQueue.HealthCheck(ctx); err != nil {
					fmt.Printf("RabbitMQ: FAILED (%v)\n", err)
					failed = true
				} else {
					fmt.Println("RabbitMQ: OK")
				}
				_ = jobQueue.Close()
			}

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			fmt.Println("All checks passed")
			return nil
		},
	}

	return cmd
}
