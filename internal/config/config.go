// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the WhatsApp transport, storage, availability rules and collaborators.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// WhatsApp Cloud API
	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string // Empty disables X-Hub-Signature-256 verification
	WhatsAppAPIVersion    string
	WhatsAppBaseURL       string

	// LLM Configuration
	GroqAPIKey          string
	GeminiAPIKey        string
	GroqModel           string // Empty = genai default
	GeminiModel         string // Empty = genai default
	LLMPrimaryProvider  string // "groq" or "gemini" (default: "groq")
	LLMFallbackProvider string // "groq" or "gemini" (default: "gemini")

	// Operators receive captain hand-offs and storage alerts
	OperatorPhones []string

	// Metrics Authentication
	MetricsUsername string
	MetricsPassword string // Empty = no auth

	// Observability
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64
	BetterStackToken       string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Storage Configuration
	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseURL    string // Postgres DSN, required when DatabaseDriver is postgres
	DataDir        string // Directory for the SQLite database
	RedisURL       string // Optional; enables session mirroring and shared alert dedup

	// Availability and session configuration (embedded)
	Bot BotConfig
}

// BotConfig holds dialogue-specific configuration
type BotConfig struct {
	// Timeouts
	WebhookTimeout time.Duration // Timeout for processing one inbound message

	// Availability
	BusinessTimezone string  // IANA zone for all date reasoning (default: America/Santiago)
	BufferHours      float64 // Idle time required around booked trips (default: 0)
	MinAdvanceHours  float64 // Minimum notice for a booking (default: 4)
	AvailabilityDays int     // Days scanned for a generic availability query (default: 7)

	// Session store
	SessionTTL         time.Duration // Idle expiry of in-memory conversations (default: 24h)
	SessionMaxContacts int           // LRU bound on in-memory conversations (default: 10000)

	// Rate Limits (Token Bucket Algorithm)
	UserRateLimitBurst        float64 // Maximum burst tokens per contact (default: 20)
	UserRateLimitRefillPerSec float64 // Tokens refilled per second (default: 0.5)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		WhatsAppToken:         getEnv(EnvWhatsAppToken, ""),
		WhatsAppPhoneNumberID: getEnv(EnvWhatsAppPhoneNumberID, ""),
		WhatsAppVerifyToken:   getEnv(EnvWhatsAppVerifyToken, ""),
		WhatsAppAppSecret:     getEnv(EnvWhatsAppAppSecret, ""),
		WhatsAppAPIVersion:    getEnv(EnvWhatsAppAPIVersion, "v18.0"),
		WhatsAppBaseURL:       getEnv(EnvWhatsAppBaseURL, "https://graph.facebook.com"),

		GroqAPIKey:          getEnv(EnvGroqAPIKey, ""),
		GeminiAPIKey:        getEnv(EnvGeminiAPIKey, ""),
		GroqModel:           getEnv(EnvGroqModel, ""),
		GeminiModel:         getEnv(EnvGeminiModel, ""),
		LLMPrimaryProvider:  getEnv(EnvLLMPrimaryProvider, "groq"),
		LLMFallbackProvider: getEnv(EnvLLMFallbackProvider, "gemini"),

		OperatorPhones: getListEnv(EnvOperatorPhones),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),
		BetterStackToken:       getEnv(EnvBetterStackToken, ""),

		Port:            getEnv(EnvPort, "8000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DatabaseDriver: strings.ToLower(getEnv(EnvDatabaseDriver, DriverSQLite)),
		DatabaseURL:    getEnv(EnvDatabaseURL, ""),
		DataDir:        getEnv(EnvDataDir, getDefaultDataDir()),
		RedisURL:       getEnv(EnvRedisURL, ""),

		Bot: BotConfig{
			WebhookTimeout:            WebhookProcessing,
			BusinessTimezone:          getEnv(EnvBusinessTimezone, "America/Santiago"),
			BufferHours:               getFloatEnv(EnvAvailabilityBuffer, 0),
			MinAdvanceHours:           getFloatEnv(EnvMinAdvanceHours, 4),
			AvailabilityDays:          getIntEnv(EnvAvailabilityDays, 7),
			SessionTTL:                getDurationEnv(EnvSessionTTL, SessionTTL),
			SessionMaxContacts:        getIntEnv(EnvSessionMaxContacts, 10000),
			UserRateLimitBurst:        getFloatEnv(EnvUserRateBurst, 20.0),
			UserRateLimitRefillPerSec: getFloatEnv(EnvUserRateRefill, 0.5),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.WhatsAppToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvWhatsAppToken))
	}
	if c.WhatsAppPhoneNumberID == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvWhatsAppPhoneNumberID))
	}
	if c.WhatsAppVerifyToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvWhatsAppVerifyToken))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver))
	}

	for _, p := range []string{c.LLMPrimaryProvider, c.LLMFallbackProvider} {
		if p != "groq" && p != "gemini" {
			errs = append(errs, fmt.Errorf("unknown LLM provider %q", p))
		}
	}

	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks dialogue configuration bounds
func (b BotConfig) Validate() error {
	var errs []error

	if b.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", b.WebhookTimeout))
	}
	if _, err := time.LoadLocation(b.BusinessTimezone); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvBusinessTimezone, err))
	}
	if b.BufferHours < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvAvailabilityBuffer, b.BufferHours))
	}
	if b.MinAdvanceHours < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvMinAdvanceHours, b.MinAdvanceHours))
	}
	if b.AvailabilityDays <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvAvailabilityDays, b.AvailabilityDays))
	}
	if b.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, b.SessionTTL))
	}
	if b.SessionMaxContacts <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvSessionMaxContacts, b.SessionMaxContacts))
	}
	if b.UserRateLimitBurst <= 0 || b.UserRateLimitRefillPerSec <= 0 {
		errs = append(errs, errors.New("user rate limit burst and refill must be positive"))
	}

	return errors.Join(errs...)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty entries
func getListEnv(key string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "hotboat.db")
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != ""
}

// Location returns the business time zone. Validate guarantees it loads.
func (b BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Buffer returns the availability buffer as a duration.
func (b BotConfig) Buffer() time.Duration {
	return time.Duration(b.BufferHours * float64(time.Hour))
}

// MinAdvance returns the minimum booking notice as a duration.
func (b BotConfig) MinAdvance() time.Duration {
	return time.Duration(b.MinAdvanceHours * float64(time.Hour))
}
