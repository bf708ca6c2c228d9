package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/config"
	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/dedup"
	"github.com/tasky-bot/tasky/internal/handlers"
	"github.com/tasky-bot/tasky/internal/logger"
	"github.com/tasky-bot/tasky/internal/middleware"
	"github.com/tasky-bot/tasky/internal/prompts"
	"github.com/tasky-bot/tasky/internal/queue"
	"github.com/tasky-bot/tasky/internal/services/agent"
	"github.com/tasky-bot/tasky/internal/services/speech"
	"github.com/tasky-bot/tasky/internal/services/summary"
	"github.com/tasky-bot/tasky/internal/services/tasks"
	"github.com/tasky-bot/tasky/internal/services/whatsapp"
	"github.com/tasky-bot/tasky/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "tasky", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

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

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("failed_to_run_migrations", zap.Error(err))
	}
	migrateCancel()

	// Redis backs both webhook dedup and rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	dedupChecker, err := dedup.NewRedisChecker(cfg.RedisURL, dedup.DefaultTTL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := dedupChecker.Close(); err != nil {
			zapLogger.Warn("failed_to_close_dedup_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Retry the broker connection, RabbitMQ tends to start slower than we do
	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)
	sessionRepo := database.NewSessionRepository(db)

	promptMgr, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_prompts", zap.Error(err))
	}

	waClient := whatsapp.NewClient(cfg.GraphAPIBaseURL, cfg.GraphAPIVersion, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken, zapLogger)
	transcriber := speech.NewTranscriber(cfg.OpenAIKey, cfg.AIBaseURL, cfg.TranscribeModel, zapLogger)
	taskStore := tasks.NewStore(taskRepo, zapLogger)
	taskAgent := agent.New(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, taskStore, sessionRepo, promptMgr, zapLogger, debugMode)
	summaryGen := summary.NewOpenAIGenerator(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel)
	summarySvc := summary.NewService(userRepo, taskRepo, waClient, summaryGen, promptMgr, zapLogger)

	webhookHandler := handlers.NewWebhookHandler(userRepo, waClient, transcriber, taskAgent, dedupChecker, cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, zapLogger)
	summaryHandler := handlers.NewSummaryHandler(summarySvc, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	r := mux.NewRouter()

	// Middleware, outermost first
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("tasky"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	webhookHandler.RegisterRoutes(r)

	// The summary trigger is operator-facing, rate limit it
	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.SummaryRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	summaryRouter := r.PathPrefix("/daily-summary").Subrouter()
	summaryRouter.Use(middleware.ContentType)
	summaryRouter.Use(rateLimitMW)
	summaryRouter.HandleFunc("", summaryHandler.Trigger).Methods("POST")

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   125 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()

	// DLQ garbage collection, hourly sweep with a day of retention
	dlqGC := queue.NewGarbageCollector(jobQueue, 1*time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := dlqGC.Start(gcCtx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	gcCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff.
func connectQueue(amqpURL string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
