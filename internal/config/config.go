package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string

	// WhatsApp Cloud API
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string
	GraphAPIBaseURL       string
	GraphAPIVersion       string

	// AI runtime
	OpenAIKey       string
	AIModel         string
	AIBaseURL       string
	TranscribeModel string

	PromptsFile string

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	SummaryCron      string
	SummaryRateLimit string
	EnableHSTS       bool
	ServerDebugMode  bool
	WorkerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables.
// A process missing any required setting fails to start rather than
// run partially configured.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		GraphAPIBaseURL:       getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com"),
		GraphAPIVersion:       getEnv("GRAPH_API_VERSION", "v21.0"),

		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		AIModel:         getEnv("AI_MODEL", ""),
		AIBaseURL:       getEnv("AI_BASE_URL", ""),
		TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),

		PromptsFile: getEnv("PROMPTS_FILE", ""),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		SummaryCron:      getEnv("SUMMARY_CRON", "0 8 * * *"),
		SummaryRateLimit: getEnv("SUMMARY_RATE_LIMIT", "5-M"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"WHATSAPP_ACCESS_TOKEN", cfg.WhatsAppAccessToken},
		{"WHATSAPP_PHONE_NUMBER_ID", cfg.WhatsAppPhoneNumberID},
		{"WHATSAPP_VERIFY_TOKEN", cfg.WhatsAppVerifyToken},
		{"WHATSAPP_APP_SECRET", cfg.WhatsAppAppSecret},
		{"OPENAI_API_KEY", cfg.OpenAIKey},
		{"RABBITMQ_URL", cfg.RabbitMQURL},
	}
	for _, req := range required {
		if req.value == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
