package logger

import (
	"context"
	"log/slog"

	"github.com/hotboat/whatsapp-bot/internal/ctxutil"
)

// ContextHandler is a slog.Handler that extracts tracing values from the
// context (contact, request and message ids) and adds them as attributes.
// Call sites only need to use the *Context logging variants.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new ContextHandler that wraps the provided handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds contact_id, request_id and message_id when present.
// Canceling the context does not affect record processing.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if contactID := ctxutil.GetContactID(ctx); contactID != "" {
		r.AddAttrs(slog.String("contact_id", contactID))
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if messageID := ctxutil.GetMessageID(ctx); messageID != "" {
		r.AddAttrs(slog.String("message_id", messageID))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler wrapping the handler with attrs.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler wrapping the handler with the group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
