// Package webhook receives WhatsApp Cloud API webhooks and dispatches each
// inbound message to the bot.
package webhook

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotboat/whatsapp-bot/internal/bot"
	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/ctxutil"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
)

// ModuleName identifies the webhook in logs.
const ModuleName = "webhook"

const (
	interactiveNotice = "Gracias por tu respuesta. Estamos procesando tu solicitud."
	unsupportedNotice = "Disculpa, solo puedo procesar mensajes de texto por ahora. ¿En qué puedo ayudarte?"
)

// MessageProcessor decides the reply to one text message.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, in bot.Inbound) (bot.Reply, error)
}

// Sender delivers replies over WhatsApp.
type Sender interface {
	Deliver(ctx context.Context, to, text string, items []lodging.MediaItem) error
	MarkAsRead(ctx context.Context, messageID string) error
}

// Handler handles WhatsApp webhook requests
type Handler struct {
	verifyToken string
	appSecret   string
	processor   MessageProcessor
	sender      Sender
	metrics     *metrics.Metrics
	logger      *logger.Logger
	wg          sync.WaitGroup // WaitGroup for async event processing

	maxEventsPerWebhook int
	maxBodyBytes        int64
	deliveryTimeout     time.Duration
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	VerifyToken string
	Processor   MessageProcessor
	Sender      Sender
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) *Handler {
	h := &Handler{
		verifyToken:         cfg.VerifyToken,
		processor:           cfg.Processor,
		sender:              cfg.Sender,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule(ModuleName),
		maxEventsPerWebhook: defaultMaxEvents,
		maxBodyBytes:        defaultMaxBodyBytes,
		deliveryTimeout:     config.WebhookProcessing,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Verify answers Meta's subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.WithField("mode", mode).Warn("Webhook verification rejected")
		c.Status(http.StatusForbidden)
		return
	}

	h.logger.Info("Webhook verified")
	c.String(http.StatusOK, challenge)
}

// Handle is the Gin handler for inbound notifications
func (h *Handler) Handle(c *gin.Context) {
	// 1. Read and authenticate the body
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes))
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		c.Status(http.StatusBadRequest)
		return
	}
	if h.appSecret != "" && !ValidSignature(h.appSecret, body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("Invalid webhook signature")
		h.recordWebhook("batch", "invalid_signature", 0)
		c.Status(http.StatusUnauthorized)
		return
	}

	payload, err := ParsePayload(body)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to parse webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	// 2. Return 200 OK immediately; Meta retries slow acknowledgements
	c.JSON(http.StatusOK, gin.H{"status": "ok"})

	events := payload.Events()
	if len(events) == 0 {
		h.logger.WithField("object", payload.Object).Debug("Webhook without messages")
		return
	}
	h.recordWebhook("batch", "received", 0)

	if len(events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		events = events[:h.maxEventsPerWebhook]
	}

	// 3. Process asynchronously: contacts in parallel, each contact in order
	start := time.Now()
	base := ctxutil.PreserveTracing(c.Request.Context())
	for _, group := range groupByContact(events) {
		h.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger.WithField("panic", r).Error("Panic in async event processing")
				}
			}()

			for _, ev := range group {
				h.processEvent(base, ev, start)
			}
		})
	}
}

// groupByContact splits events per sender, keeping arrival order inside
// each group and across first appearances.
func groupByContact(events []Event) [][]Event {
	index := make(map[string]int)
	var groups [][]Event
	for _, ev := range events {
		i, ok := index[ev.From]
		if !ok {
			i = len(groups)
			index[ev.From] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], ev)
	}
	return groups
}

// processEvent handles a single inbound message asynchronously
func (h *Handler) processEvent(ctx context.Context, ev Event, webhookStart time.Time) {
	eventStart := time.Now()
	ctx = ctxutil.WithRequestID(ctx, ev.MessageID)
	ctx = ctxutil.WithContactID(ctx, ev.From)
	log := h.logger.WithField("message_type", ev.Type)

	h.markAsRead(ctx, ev.MessageID)

	var reply bot.Reply
	var err error
	switch ev.Type {
	case TypeText:
		reply, err = h.processor.ProcessMessage(ctx, bot.Inbound{
			Contact:   ev.From,
			Name:      ev.Name,
			Text:      ev.Text,
			MessageID: ev.MessageID,
		})
	case TypeInteractive:
		reply = bot.Reply{Text: interactiveNotice}
	default:
		log.DebugContext(ctx, "Unsupported message type")
		reply = bot.Reply{Text: unsupportedNotice}
	}

	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).ErrorContext(ctx, "Failed to handle message")
	}
	h.recordWebhook(ev.Type, status, time.Since(eventStart).Seconds())

	if !reply.Empty() {
		sendCtx, cancel := context.WithTimeout(ctx, h.deliveryTimeout)
		defer cancel()
		if err := h.sender.Deliver(sendCtx, ev.From, reply.Text, reply.Items); err != nil {
			log.WithError(err).ErrorContext(ctx, "Failed to send reply")
			h.recordWebhook(ev.Type, "reply_error", time.Since(eventStart).Seconds())
		}
	}

	log.WithField("event_duration_ms", time.Since(eventStart).Milliseconds()).
		WithField("batch_duration_ms", time.Since(webhookStart).Milliseconds()).
		InfoContext(ctx, "Event processed")
}

func (h *Handler) markAsRead(ctx context.Context, messageID string) {
	if messageID == "" {
		return
	}
	readCtx, cancel := context.WithTimeout(ctx, config.OutboundSend)
	defer cancel()
	if err := h.sender.MarkAsRead(readCtx, messageID); err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Could not mark message as read")
	}
}

func (h *Handler) recordWebhook(eventType, status string, duration float64) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, status, duration)
	}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
