package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

// FallbackResponder wraps a primary and fallback Responder.
// It implements two-layer fallback:
//  1. Retry with backoff (same provider)
//  2. Provider fallback (primary → fallback provider)
//
// Final failures wrap errors.ErrAIUnavailable.
type FallbackResponder struct {
	primary     Responder
	fallback    Responder
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewFallbackResponder creates a new fallback-enabled responder.
// If fallback is nil, only retry logic is applied to the primary provider.
func NewFallbackResponder(primary, fallback Responder, cfg RetryConfig, m *metrics.Metrics) *FallbackResponder {
	return &FallbackResponder{
		primary:     primary,
		fallback:    fallback,
		retryConfig: cfg,
		metrics:     m,
	}
}

// Reply tries the primary responder with retry, then falls back if needed.
func (f *FallbackResponder) Reply(ctx context.Context, message string, history []Turn, name string) (string, error) {
	if f == nil || f.primary == nil {
		return "", fmt.Errorf("responder not configured: %w", domerrors.ErrAIUnavailable)
	}

	start := time.Now()
	provider := f.primary.Provider()

	text, err := f.replyWithRetry(ctx, f.primary, message, history, name)
	f.record(provider, err, start)
	if err == nil {
		return text, nil
	}

	slog.WarnContext(ctx, "primary responder failed",
		"provider", provider,
		"error", err,
		"action", ClassifyError(err),
		"duration", time.Since(start))

	// A canceled turn or a missing fallback ends here. Permanent errors
	// still fall back: keys and models are provider specific.
	if f.fallback == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", domerrors.ErrAIUnavailable, err)
	}

	fallbackProvider := f.fallback.Provider()
	slog.InfoContext(ctx, "falling back to secondary provider",
		"from", provider,
		"to", fallbackProvider)

	fallbackStart := time.Now()
	text, err = f.replyWithRetry(ctx, f.fallback, message, history, name)
	f.record(fallbackProvider, err, fallbackStart)
	if err == nil {
		return text, nil
	}

	slog.ErrorContext(ctx, "all responders failed",
		"primary", provider,
		"fallback", fallbackProvider,
		"error", err)

	return "", fmt.Errorf("%w: all providers failed: %w", domerrors.ErrAIUnavailable, err)
}

func (f *FallbackResponder) replyWithRetry(ctx context.Context, r Responder, message string, history []Turn, name string) (string, error) {
	var text string
	onRetry := func(attempt int, delay time.Duration, err error) {
		slog.DebugContext(ctx, "retrying ai reply",
			"provider", r.Provider(),
			"attempt", attempt,
			"backoff", delay,
			"error", err)
	}
	err := WithRetry(ctx, f.retryConfig, onRetry, func() error {
		var err error
		text, err = r.Reply(ctx, message, history, name)
		return err
	})
	return text, err
}

func (f *FallbackResponder) record(p Provider, err error, start time.Time) {
	if f.metrics != nil {
		f.metrics.RecordAIRequest(string(p), statusLabel(err), time.Since(start).Seconds())
	}
}

// Provider returns the primary provider type.
func (f *FallbackResponder) Provider() Provider {
	if f == nil || f.primary == nil {
		return ""
	}
	return f.primary.Provider()
}

// Close closes both responders.
func (f *FallbackResponder) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.primary != nil {
		errs = append(errs, f.primary.Close())
	}
	if f.fallback != nil {
		errs = append(errs, f.fallback.Close())
	}
	return errors.Join(errs...)
}
