// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrStorageUnavailable indicates the relational store failed or is not provisioned.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAIUnavailable indicates the free-form reply collaborator failed or is not configured.
	ErrAIUnavailable = errors.New("ai unavailable")

	// ErrInvalidIndex indicates an attempt to address a cart line that does not exist.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrDeliveryFailed indicates an outbound WhatsApp send failed.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// ErrorKind groups errors by how a conversation turn should react to them.
type ErrorKind int

// Error kinds, ordered from most to least specific.
const (
	KindNone ErrorKind = iota
	KindTimeout
	KindStorage
	KindAI
	KindInvalidIndex
	KindRateLimited
	KindInvalidInput
	KindNotFound
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindStorage:
		return "storage"
	case KindAI:
		return "ai"
	case KindInvalidIndex:
		return "invalid_index"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Kind classifies err against the sentinel taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorage
	case errors.Is(err, ErrAIUnavailable):
		return KindAI
	case errors.Is(err, ErrInvalidIndex):
		return KindInvalidIndex
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimited
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// Storage error classes used to deduplicate operator alerts.
const (
	ClassTimeout      = "timeout"
	ClassCanceled     = "canceled"
	ClassTableMissing = "table_missing"
	ClassConnection   = "connection"
	ClassQuery        = "query"
)

// ClassifyStorage derives the alert class of a storage failure.
// Driver messages are matched as text because sqlite and postgres report
// missing tables and refused connections differently.
func ClassifyStorage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return ClassTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return ClassTableMissing
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "bad connection"),
		strings.Contains(msg, "failed to connect"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "sql: database is closed"):
		return ClassConnection
	case strings.Contains(msg, "timeout"):
		return ClassTimeout
	default:
		return ClassQuery
	}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTableMissing reports whether err is a "storage not yet provisioned" failure.
func IsTableMissing(err error) bool {
	return err != nil && ClassifyStorage(err) == ClassTableMissing
}
