package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper provides context-aware error wrapping.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		module:    module,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Module:      w.module,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf wraps an error with formatted message.
func (w *ErrorWrapper) Wrapf(err error, userMessageFormat string, args ...any) error {
	return w.Wrap(err, fmt.Sprintf(userMessageFormat, args...))
}

// WrappedError contains both internal error details and user-facing message.
type WrappedError struct {
	Operation   string // Operation being performed (e.g., "get_cart", "available_slots")
	Module      string // Module name (e.g., "cart", "availability", "genai")
	Cause       error  // Underlying error
	UserMessage string // Copy shown to the contact, may be empty
}

func (e *WrappedError) Error() string {
	if e.UserMessage == "" {
		return fmt.Sprintf("[%s:%s] %v", e.Module, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns the first user-facing message found in the chain.
// Returns an empty string when no WrappedError carries one.
func GetUserMessage(err error) string {
	for err != nil {
		var wrapped *WrappedError
		if !errors.As(err, &wrapped) {
			return ""
		}
		if wrapped.UserMessage != "" {
			return wrapped.UserMessage
		}
		err = wrapped.Cause
	}
	return ""
}
