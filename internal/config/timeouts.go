// Package config provides centralized timeout constants for the application.
//
// # WhatsApp Cloud API Constraints
//
// Meta expects the webhook endpoint to acknowledge every delivery quickly and
// retries deliveries that are not answered with 200 OK. Messages are therefore
// acknowledged first and processed asynchronously under WebhookProcessing.
// Replies are sent through the Graph API, not in the webhook response, so
// there is no reply token to expire.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for processing a single inbound message.
	// This covers session hydration, cart reads and writes, availability checks
	// and the AI fallback.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Meta sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Collaborator timeouts
const (
	// AIReply bounds a single free-form AI fallback reply, retries included.
	AIReply = 20 * time.Second

	// AvailabilityLiveCheck bounds the live re-verification of provisionally
	// free slots for one availability query.
	AvailabilityLiveCheck = 10 * time.Second

	// OutboundSend is the timeout for a single Graph API send.
	OutboundSend = 15 * time.Second

	// OperatorAlert bounds fire-and-forget operator notifications.
	OperatorAlert = 10 * time.Second
)

// Outbound pacing
const (
	// OutboundSendInterval is the minimum spacing between consecutive sends
	// to the Graph API from this process.
	OutboundSendInterval = 500 * time.Millisecond
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// DatabaseSlowQuery is the threshold above which queries are logged as slow.
	DatabaseSlowQuery = 100 * time.Millisecond
)

// Session store
const (
	// SessionTTL is how long an idle conversation stays in memory.
	SessionTTL = 24 * time.Hour

	// SessionSweepInterval is how often idle conversations are evicted.
	SessionSweepInterval = 5 * time.Minute

	// SessionHistoryLimit is how many messages are loaded on first touch and
	// kept per conversation afterwards.
	SessionHistoryLimit = 50

	// SessionMirrorWrite bounds the metadata write to Redis after a turn.
	SessionMirrorWrite = 2 * time.Second
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// AlertDedupWindow is the window in which one alert per error class is sent.
	AlertDedupWindow = time.Hour

	// ReadinessCheck bounds the database ping of the readiness probe.
	ReadinessCheck = 3 * time.Second

	// RedisConnect bounds the startup ping of the optional Redis server.
	RedisConnect = 5 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
