// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// WhatsApp Cloud API (Required)
	EnvWhatsAppToken         = "WHATSAPP_TOKEN"
	EnvWhatsAppPhoneNumberID = "WHATSAPP_PHONE_NUMBER_ID"
	EnvWhatsAppVerifyToken   = "WHATSAPP_VERIFY_TOKEN"
	EnvWhatsAppAppSecret     = "WHATSAPP_APP_SECRET"
	EnvWhatsAppAPIVersion    = "WHATSAPP_API_VERSION"
	EnvWhatsAppBaseURL       = "WHATSAPP_BASE_URL"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Storage
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvDataDir        = "DATA_DIR"
	EnvRedisURL       = "REDIS_URL"

	// Availability
	EnvBusinessTimezone   = "BUSINESS_TIMEZONE"
	EnvAvailabilityBuffer = "AVAILABILITY_BUFFER_HOURS"
	EnvMinAdvanceHours    = "MIN_ADVANCE_HOURS"
	EnvAvailabilityDays   = "AVAILABILITY_DAYS"

	// Session
	EnvSessionTTL         = "SESSION_TTL"
	EnvSessionMaxContacts = "SESSION_MAX_CONTACTS"

	// Rate Limits
	EnvUserRateBurst  = "USER_RATE_BURST"
	EnvUserRateRefill = "USER_RATE_REFILL"

	// LLM Feature
	EnvGroqAPIKey          = "GROQ_API_KEY"
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvGroqModel           = "GROQ_MODEL"
	EnvGeminiModel         = "GEMINI_MODEL"
	EnvLLMPrimaryProvider  = "LLM_PRIMARY_PROVIDER"
	EnvLLMFallbackProvider = "LLM_FALLBACK_PROVIDER"

	// Operators
	EnvOperatorPhones = "OPERATOR_PHONES"

	// Sentry Feature
	EnvSentryDSN              = "SENTRY_DSN"
	EnvSentryEnvironment      = "SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "SENTRY_RELEASE"
	EnvSentrySampleRate       = "SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken = "BETTERSTACK_TOKEN"

	// Metrics Auth Feature
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)
