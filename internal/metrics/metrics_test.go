package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)
	require.NotNil(t, m)

	assert.NotNil(t, m.WebhookRequestsTotal)
	assert.NotNil(t, m.WebhookDurationSeconds)
	assert.NotNil(t, m.IntentRoutedTotal)
	assert.NotNil(t, m.CartOperationsTotal)
	assert.NotNil(t, m.AvailabilityQueriesTotal)
	assert.NotNil(t, m.LiveCheckRejectionsTotal)
	assert.NotNil(t, m.AlertsTotal)
	assert.NotNil(t, m.AIRequestsTotal)
	assert.NotNil(t, m.RateLimiterDropped)
	assert.NotNil(t, m.RateLimiterActiveKeys)
	assert.NotNil(t, m.ActiveSessions)
	assert.NotNil(t, m.OutboundSendsTotal)
}

func TestNew_SeparateRegistries(t *testing.T) {
	t.Parallel()
	// Registering twice on one registry panics, separate registries must not.
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestRecordIntent(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordIntent("faq")
	m.RecordIntent("faq")
	m.RecordIntent("welcome")

	assert.InDelta(t, 2, testutil.ToFloat64(m.IntentRoutedTotal.WithLabelValues("faq")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.IntentRoutedTotal.WithLabelValues("welcome")), 0)
}

func TestRecordAlert(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordAlert("timeout", "sent")
	for range 4 {
		m.RecordAlert("timeout", "suppressed")
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("timeout", "sent")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("timeout", "suppressed")), 0)
}

func TestRecordAvailability(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordAvailabilityQuery("success", 0.2)
	m.RecordAvailabilityQuery("error", 0.01)
	m.RecordLiveCheckRejection()

	assert.InDelta(t, 1, testutil.ToFloat64(m.AvailabilityQueriesTotal.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LiveCheckRejectionsTotal), 0)
}

func TestSetActiveSessions(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.SetActiveSessions(12)
	assert.InDelta(t, 12, testutil.ToFloat64(m.ActiveSessions), 0)
	m.SetActiveSessions(3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveSessions), 0)
}

func TestRecordMisc(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		m.RecordWebhook("text", "success", 0.3)
		m.RecordHTTPError("invalid_signature", "webhook")
		m.RecordCartOperation("add", "success")
		m.RecordAIRequest("groq", "success", 1.2)
		m.RecordRateLimiterDrop("user")
		m.RecordSingleflightDedup("session")
		m.RecordOutboundSend("image", "error")
	})
	assert.InDelta(t, 1, testutil.ToFloat64(m.OutboundSendsTotal.WithLabelValues("image", "error")), 0)

	m.SetRateLimiterActiveKeys("user", 4)
	assert.InDelta(t, 4, testutil.ToFloat64(m.RateLimiterActiveKeys.WithLabelValues("user")), 0)
}
