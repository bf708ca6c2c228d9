package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/config"
	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/logger"
	"github.com/tasky-bot/tasky/internal/prompts"
	"github.com/tasky-bot/tasky/internal/queue"
	"github.com/tasky-bot/tasky/internal/services/summary"
	"github.com/tasky-bot/tasky/internal/services/whatsapp"
	"github.com/tasky-bot/tasky/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
		zap.String("summary_cron", cfg.SummaryCron),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)

	promptMgr, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_prompts", zap.Error(err))
	}

	waClient := whatsapp.NewClient(cfg.GraphAPIBaseURL, cfg.GraphAPIVersion, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken, zapLogger)
	summaryGen := summary.NewOpenAIGenerator(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel)
	summarySvc := summary.NewService(userRepo, taskRepo, waClient, summaryGen, promptMgr, zapLogger)

	worker := workers.NewSummaryWorker(summarySvc, jobQueue, zapLogger)
	scheduler := workers.NewScheduler(userRepo, jobQueue, cfg.SummaryCron, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(); err != nil {
		zapLogger.Fatal("failed_to_start_scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx, cfg.RabbitMQPrefetch)
	}()

	zapLogger.Info("worker_started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		}
	}

	zapLogger.Info("worker_stopped")
}
