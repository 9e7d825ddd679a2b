package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateNodeID creates a unique node ID using hostname and PID
func generateNodeID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "inbox"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// JWT
	JWTSecret string

	// Token encryption at rest
	EncryptionKey string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int
	LLMMaxRetries  int

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Sync
	NodeID            string
	SyncMaxTotal      int
	SyncRatePerDay    int
	SyncStalledAfter  time.Duration
	SyncSearchQuery   string
	SyncSearchDays    int
	AttachmentMaxMB   int
	ExtractionWorkers int

	// Consumer (Redis Stream)
	ConsumerBatchSize     int
	ConsumerBlockMS       int
	ConsumerMaxRetries    int
	ConsumerClaimMinIdle  time.Duration
	ConsumerRetryDelaySec int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "inbox"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Token encryption at rest
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 60),
		LLMMaxRetries:  getEnvInt("LLM_MAX_RETRIES", 3),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		// Sync
		NodeID:            getEnv("NODE_ID", generateNodeID()),
		SyncMaxTotal:      getEnvInt("SYNC_MAX_TOTAL", 500),
		SyncRatePerDay:    getEnvInt("SYNC_RATE_PER_DAY", 10),
		SyncStalledAfter:  time.Duration(getEnvInt("SYNC_STALLED_AFTER_MIN", 10)) * time.Minute,
		SyncSearchQuery:   getEnv("SYNC_SEARCH_QUERY", "(invoice OR receipt OR bill OR payment)"),
		SyncSearchDays:    getEnvInt("SYNC_SEARCH_DAYS", 90),
		AttachmentMaxMB:   getEnvInt("ATTACHMENT_MAX_MB", 10),
		ExtractionWorkers: getEnvInt("EXTRACTION_WORKERS", 4),

		// Consumer
		ConsumerBatchSize:     getEnvInt("CONSUMER_BATCH_SIZE", 10),
		ConsumerBlockMS:       getEnvInt("CONSUMER_BLOCK_MS", 5000),
		ConsumerMaxRetries:    getEnvInt("CONSUMER_MAX_RETRIES", 3),
		ConsumerClaimMinIdle:  time.Duration(getEnvInt("CONSUMER_CLAIM_MIN_IDLE_SEC", 60)) * time.Second,
		ConsumerRetryDelaySec: getEnvInt("CONSUMER_RETRY_DELAY_SEC", 5),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
