package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{"nil error", nil, ActionFail},
		{"context canceled", context.Canceled, ActionFail},
		{"context deadline exceeded", context.DeadlineExceeded, ActionRetry},
		{"LLMError 429", &LLMError{Err: errors.New("x"), StatusCode: http.StatusTooManyRequests}, ActionRetry},
		{"LLMError 503", &LLMError{Err: errors.New("x"), StatusCode: http.StatusServiceUnavailable}, ActionRetry},
		{"LLMError 401", &LLMError{Err: errors.New("x"), StatusCode: http.StatusUnauthorized}, ActionFail},
		{"LLMError 404", &LLMError{Err: errors.New("x"), StatusCode: http.StatusNotFound}, ActionFail},
		{"wrapped LLMError", fmt.Errorf("reply: %w", &LLMError{Err: errors.New("x"), StatusCode: 502}), ActionRetry},
		{"quota exhausted", errors.New("Quota exceeded for project"), ActionFallback},
		{"rate limit message", errors.New("rate limit reached"), ActionRetry},
		{"overloaded", errors.New("model is overloaded"), ActionRetry},
		{"connection reset", errors.New("connection reset by peer"), ActionRetry},
		{"invalid api key", errors.New("invalid api key"), ActionFail},
		{"unknown", errors.New("something odd"), ActionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ClassifyError(tt.err))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	assert.Zero(t, ParseRetryAfter(h))
	assert.Zero(t, ParseRetryAfter(nil))

	h.Set("retry-after", "2")
	assert.Equal(t, 2*time.Second, ParseRetryAfter(h))

	h.Set("retry-after-ms", "150")
	assert.Equal(t, 150*time.Millisecond, ParseRetryAfter(h))

	g := http.Header{}
	g.Set("x-ratelimit-reset-tokens", "7.5s")
	assert.Equal(t, 7500*time.Millisecond, ParseRetryAfter(g))
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "success", statusLabel(nil))
	assert.Equal(t, "timeout", statusLabel(context.DeadlineExceeded))
	assert.Equal(t, "canceled", statusLabel(context.Canceled))
	assert.Equal(t, "rate_limit", statusLabel(&LLMError{Err: errors.New("x"), StatusCode: 429}))
	assert.Equal(t, "server_error", statusLabel(&LLMError{Err: errors.New("x"), StatusCode: 500}))
	assert.Equal(t, "auth_error", statusLabel(&LLMError{Err: errors.New("x"), StatusCode: 401}))
	assert.Equal(t, "quota_exhausted", statusLabel(errors.New("billing quota")))
	assert.Equal(t, "transient_error", statusLabel(errors.New("weird")))
}

func TestLLMError(t *testing.T) {
	t.Parallel()
	base := errors.New("boom")
	err := WrapError(base, ProviderGroq, 500)
	assert.Equal(t, "boom (status: 500)", err.Error())
	assert.ErrorIs(t, err, base)
	assert.NoError(t, WrapError(nil, ProviderGroq, 500))
}
