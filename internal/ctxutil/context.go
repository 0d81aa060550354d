// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	contactIDKey contextKey = "ctxutil.contactID"
	requestIDKey contextKey = "ctxutil.requestID"
	messageIDKey contextKey = "ctxutil.messageID"
)

// WithContactID adds a contact ID to the context.
// The contact ID is the sender's WhatsApp number (wa_id) and keys the
// session, the cart and rate limiting.
func WithContactID(ctx context.Context, contactID string) context.Context {
	return context.WithValue(ctx, contactIDKey, contactID)
}

// GetContactID retrieves the contact ID from the context.
// Returns the contact ID if found, empty string otherwise.
func GetContactID(ctx context.Context) string {
	if v, ok := ctx.Value(contactIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
// Request ID is generated per webhook delivery for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithMessageID adds the inbound WhatsApp message ID (wamid) to the context.
func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, messageIDKey, messageID)
}

// GetMessageID retrieves the inbound message ID from the context.
func GetMessageID(ctx context.Context) string {
	if v, ok := ctx.Value(messageIDKey).(string); ok {
		return v
	}
	return ""
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Use for async operations that must outlive the webhook request, such as
// message processing that continues after Meta receives its 200 OK.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if contactID := GetContactID(ctx); contactID != "" {
		newCtx = WithContactID(newCtx, contactID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if messageID := GetMessageID(ctx); messageID != "" {
		newCtx = WithMessageID(newCtx, messageID)
	}

	return newCtx
}
