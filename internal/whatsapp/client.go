// Package whatsapp sends messages through the WhatsApp Cloud API
// (Graph API /{phone_number_id}/messages).
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hotboat/whatsapp-bot/internal/config"
	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

// ModuleName identifies the client in logs.
const ModuleName = "whatsapp"

// Send kinds recorded in metrics.
const (
	kindText  = "text"
	kindImage = "image"
	kindRead  = "read"
)

// Config configures a Client.
type Config struct {
	Token         string
	PhoneNumberID string
	APIVersion    string // e.g. "v18.0"
	BaseURL       string // default https://graph.facebook.com

	Timeout      time.Duration // per HTTP request, default config.OutboundSend
	SendInterval time.Duration // pacing between sends, default config.OutboundSendInterval
	MaxRetries   int           // retries on 429/5xx
	RetryDelay   time.Duration // initial backoff, default 1s
}

// Client is a WhatsApp Cloud API client. Sends are paced by a token
// bucket shared by all callers of the client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	pacer      *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client. m may be nil.
func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v18.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.OutboundSend
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = config.OutboundSendInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint:   fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		token:      cfg.Token,
		pacer:      rate.NewLimiter(rate.Every(cfg.SendInterval), 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     log.WithModule(ModuleName),
		metrics:    m,
	}
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type messageRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	RecipientType    string     `json:"recipient_type,omitempty"`
	To               string     `json:"to,omitempty"`
	Type             string     `json:"type,omitempty"`
	Text             *textBody  `json:"text,omitempty"`
	Image            *imageBody `json:"image,omitempty"`
	Status           string     `json:"status,omitempty"`
	MessageID        string     `json:"message_id,omitempty"`
}

// APIError is the error object returned by the Graph API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	TraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
}

// SendText sends a text message. Bodies longer than the API limit are
// split into several messages.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	for _, part := range SplitText(text, TextSafeBuffer) {
		err := c.send(ctx, kindText, messageRequest{
			MessagingProduct: "whatsapp",
			RecipientType:    "individual",
			To:               NormalizePhone(to),
			Type:             "text",
			Text:             &textBody{Body: part},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SendImage sends an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, url, caption string) error {
	return c.send(ctx, kindImage, messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               NormalizePhone(to),
		Type:             "image",
		Image:            &imageBody{Link: url, Caption: truncateRunes(caption, MaxCaptionLength)},
	})
}

// MarkAsRead marks an inbound message as read (blue ticks).
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	return c.send(ctx, kindRead, messageRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
}

func (c *Client) send(ctx context.Context, kind string, msg messageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", kind, err)
	}

	err = retryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return &permanentError{err: err}
		}
		return c.post(ctx, payload)
	})

	status := "success"
	if err != nil {
		status = "error"
		c.logger.WithError(err).
			WithField("kind", kind).
			WithField("to", msg.To).
			WarnContext(ctx, "WhatsApp send failed")
		err = fmt.Errorf("%w: %s: %w", domerrors.ErrDeliveryFailed, kind, err)
	}
	if c.metrics != nil {
		c.metrics.RecordOutboundSend(kind, status)
	}
	return err
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &permanentError{err: err}
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		apiErr = envelope.Error
		apiErr.StatusCode = resp.StatusCode
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return apiErr
	default:
		return &permanentError{err: apiErr}
	}
}

// NormalizePhone strips "+", spaces and dashes from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
