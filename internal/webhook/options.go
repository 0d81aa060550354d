package webhook

import "time"

const (
	defaultMaxEvents    = 100
	defaultMaxBodyBytes = 1 << 20
)

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithAppSecret enables X-Hub-Signature-256 checks. An empty secret keeps
// them off.
func WithAppSecret(secret string) HandlerOption {
	return func(h *Handler) {
		h.appSecret = secret
	}
}

// WithMaxEvents caps the messages processed from one request.
func WithMaxEvents(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEventsPerWebhook = n
		}
	}
}

// WithMaxBodyBytes caps how much of the request body is read.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithDeliveryTimeout bounds sending one reply, media included.
func WithDeliveryTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.deliveryTimeout = d
		}
	}
}
