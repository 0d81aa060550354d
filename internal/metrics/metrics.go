package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Dialogue metrics
	IntentRoutedTotal   *prometheus.CounterVec
	CartOperationsTotal *prometheus.CounterVec

	// Availability metrics
	AvailabilityQueriesTotal    *prometheus.CounterVec
	AvailabilityDurationSeconds prometheus.Histogram
	LiveCheckRejectionsTotal    prometheus.Counter

	// Alert metrics
	AlertsTotal *prometheus.CounterVec

	// AI fallback metrics
	AIRequestsTotal   *prometheus.CounterVec
	AIDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterDropped    *prometheus.CounterVec
	RateLimiterActiveKeys *prometheus.GaugeVec

	// Session metrics
	ActiveSessions         prometheus.Gauge
	SingleflightDedupTotal *prometheus.CounterVec

	// Outbound metrics
	OutboundSendsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Webhook metrics
		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hotboat_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by event type",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, // Up to the 60s turn timeout
			},
			[]string{"event_type"}, // event_type: text, unsupported, status
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_webhook_requests_total",
				Help: "Total number of webhook requests by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, parse_error, verify_failed
		),

		// Dialogue metrics
		IntentRoutedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_intent_routed_total",
				Help: "Total number of inbound messages by the cascade rule that handled them",
			},
			[]string{"rule"},
		),

		CartOperationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_cart_operations_total",
				Help: "Total number of cart store operations by operation and status",
			},
			[]string{"op", "status"}, // op: get, save, add, remove, clear, flex
		),

		// Availability metrics
		AvailabilityQueriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_availability_queries_total",
				Help: "Total number of availability queries by status",
			},
			[]string{"status"}, // status: success, empty, error
		),

		AvailabilityDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hotboat_availability_duration_seconds",
				Help:    "Availability resolution duration including the live re-check",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		LiveCheckRejectionsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "hotboat_availability_live_check_rejections_total",
				Help: "Total number of provisionally free slots rejected by the live check",
			},
		),

		// Alert metrics
		AlertsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_alerts_total",
				Help: "Total number of operator alerts by error class and outcome",
			},
			[]string{"class", "outcome"}, // outcome: sent, suppressed
		),

		// AI fallback metrics
		AIRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_ai_requests_total",
				Help: "Total number of AI fallback requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, fallback
		),

		AIDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hotboat_ai_duration_seconds",
				Help:    "AI fallback request duration in seconds by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"provider"},
		),

		// Rate limiter metrics
		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user, alert
		),

		RateLimiterActiveKeys: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hotboat_rate_limiter_active_keys",
				Help: "Number of keys currently tracked by a rate limiter",
			},
			[]string{"limiter_type"},
		),

		// Session metrics
		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "hotboat_active_sessions",
				Help: "Number of conversations currently held in memory",
			},
		),

		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"}, // module: session
		),

		// Outbound metrics
		OutboundSendsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboat_outbound_sends_total",
				Help: "Total number of WhatsApp sends by message kind and status",
			},
			[]string{"kind", "status"}, // kind: text, image
		),
	}

	return m
}

// RecordWebhook records a webhook request
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordIntent records which cascade rule handled a message
func (m *Metrics) RecordIntent(rule string) {
	m.IntentRoutedTotal.WithLabelValues(rule).Inc()
}

// RecordCartOperation records a cart store operation
func (m *Metrics) RecordCartOperation(op, status string) {
	m.CartOperationsTotal.WithLabelValues(op, status).Inc()
}

// RecordAvailabilityQuery records an availability resolution
func (m *Metrics) RecordAvailabilityQuery(status string, duration float64) {
	m.AvailabilityQueriesTotal.WithLabelValues(status).Inc()
	m.AvailabilityDurationSeconds.Observe(duration)
}

// RecordLiveCheckRejection records a slot dropped by the live check
func (m *Metrics) RecordLiveCheckRejection() {
	m.LiveCheckRejectionsTotal.Inc()
}

// RecordAlert records an operator alert outcome
func (m *Metrics) RecordAlert(class, outcome string) {
	m.AlertsTotal.WithLabelValues(class, outcome).Inc()
}

// RecordAIRequest records an AI fallback request
func (m *Metrics) RecordAIRequest(provider, status string, duration float64) {
	m.AIRequestsTotal.WithLabelValues(provider, status).Inc()
	m.AIDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterActiveKeys sets the tracked key count of one limiter
func (m *Metrics) SetRateLimiterActiveKeys(limiterType string, n int) {
	m.RateLimiterActiveKeys.WithLabelValues(limiterType).Set(float64(n))
}

// SetActiveSessions sets the in-memory conversation gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordOutboundSend records a WhatsApp send
func (m *Metrics) RecordOutboundSend(kind, status string) {
	m.OutboundSendsTotal.WithLabelValues(kind, status).Inc()
}
