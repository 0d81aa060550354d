// Package alert notifies operators about storage failures and customer
// hand-offs. Storage alerts are limited to one per error class per window,
// per process and, when Redis is configured, across instances.
package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/ctxutil"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/ratelimit"
	"github.com/hotboat/whatsapp-bot/internal/sentry"
	"github.com/hotboat/whatsapp-bot/internal/sliceutil"
)

// ModuleName identifies the notifier in logs.
const ModuleName = "alert"

// Priority of a captain notification.
type Priority string

// Priorities.
const (
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Alert outcomes recorded in metrics.
const (
	outcomeSent       = "sent"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
)

// Sender delivers a WhatsApp text. whatsapp.Client satisfies it.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Deduper reports whether key is seen for the first time within window.
// RedisDeduper shares the answer between instances.
type Deduper interface {
	FirstInWindow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Config configures a Notifier.
type Config struct {
	OperatorPhones []string
	Window         time.Duration // default config.AlertDedupWindow
	SendTimeout    time.Duration // default config.OperatorAlert
}

// Notifier fans alerts out to the log, Sentry and operator phones.
// All notifications are fire-and-forget.
type Notifier struct {
	sender    Sender
	dedup     Deduper
	operators []string
	window    time.Duration
	timeout   time.Duration
	limiter   *ratelimit.KeyedLimiter
	logger    *logger.Logger
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier. sender, dedup and m may be nil.
func NewNotifier(cfg Config, sender Sender, dedup Deduper, log *logger.Logger, m *metrics.Metrics) *Notifier {
	if cfg.Window <= 0 {
		cfg.Window = config.AlertDedupWindow
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = config.OperatorAlert
	}
	return &Notifier{
		sender:    sender,
		dedup:     dedup,
		operators: sliceutil.Deduplicate(cfg.OperatorPhones, operatorKey),
		window:    cfg.Window,
		timeout:   cfg.SendTimeout,
		limiter: ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "alert",
			Burst:         1,
			RefillRate:    1 / cfg.Window.Seconds(),
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       m,
		}),
		logger:  log.WithModule(ModuleName),
		metrics: m,
	}
}

// StorageError reports a storage failure of the given class. Only the first
// failure of a class per window reaches operators; later ones are counted
// and dropped.
func (n *Notifier) StorageError(ctx context.Context, class string, err error) {
	log := n.logger.WithError(err).WithField("error_class", class)

	if !n.limiter.Allow(class) {
		n.record(class, outcomeSuppressed)
		log.DebugContext(ctx, "Storage alert suppressed")
		return
	}
	if n.dedup != nil {
		first, derr := n.dedup.FirstInWindow(ctx, "storage:"+class, n.window)
		if derr != nil {
			log.WithField("dedup_error", derr.Error()).WarnContext(ctx, "Alert dedup unavailable, alerting anyway")
		} else if !first {
			n.record(class, outcomeSuppressed)
			log.DebugContext(ctx, "Storage alert already sent by another instance")
			return
		}
	}

	log.ErrorContext(ctx, "Storage failure")
	sentry.CaptureExceptionWithTags(ctx, err, map[string]string{
		"error_class": class,
		"module":      "storage",
	})

	text := fmt.Sprintf("⚠️ *Alerta HotBoat Bot*\n\nError de base de datos (%s):\n%v\n\nSe silencian alertas de este tipo por %s.",
		class, err, n.window)
	n.broadcast(ctx, class, text)
}

// NotifyCaptain forwards a message to the operator phones.
func (n *Notifier) NotifyCaptain(ctx context.Context, msg string, priority Priority) {
	n.logger.WithField("priority", string(priority)).InfoContext(ctx, "Notifying captain")
	n.broadcast(ctx, "captain_"+string(priority), msg)
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Stop releases the limiter and waits for in-flight deliveries.
func (n *Notifier) Stop() {
	n.limiter.Stop()
	n.wg.Wait()
}

func (n *Notifier) broadcast(ctx context.Context, class, text string) {
	if n.sender == nil || len(n.operators) == 0 {
		n.record(class, outcomeSent)
		return
	}
	sendCtx := ctxutil.PreserveTracing(ctx)
	n.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				n.logger.WithField("panic", r).ErrorContext(sendCtx, "Panic while sending operator alert")
			}
		}()
		ctx, cancel := context.WithTimeout(sendCtx, n.timeout)
		defer cancel()

		outcome := outcomeSent
		for _, phone := range n.operators {
			if err := n.sender.SendText(ctx, phone, text); err != nil {
				outcome = outcomeFailed
				n.logger.WithError(err).WithField("operator", phone).WarnContext(ctx, "Failed to deliver operator alert")
			}
		}
		n.record(class, outcome)
	})
}

// operatorKey folds "+56 9 1234 5678" and "56912345678" together.
func operatorKey(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func (n *Notifier) record(class, outcome string) {
	if n.metrics != nil {
		n.metrics.RecordAlert(class, outcome)
	}
}
