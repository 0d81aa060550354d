package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestContactID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if got := GetContactID(ctx); got != "" {
		t.Errorf("GetContactID() on empty context = %q, want empty", got)
	}
	ctx = WithContactID(ctx, "56912345678")
	if got := GetContactID(ctx); got != "56912345678" {
		t.Errorf("GetContactID() = %q, want 56912345678", got)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("GetRequestID() should report false on empty context")
	}
	id, ok := GetRequestID(WithRequestID(context.Background(), "req-1"))
	if !ok || id != "req-1" {
		t.Errorf("GetRequestID() = %q, %v", id, ok)
	}
}

func TestMessageID(t *testing.T) {
	t.Parallel()
	ctx := WithMessageID(context.Background(), "wamid.ABC")
	if got := GetMessageID(ctx); got != "wamid.ABC" {
		t.Errorf("GetMessageID() = %q", got)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithContactID(parent, "569")
	parent = WithRequestID(parent, "req")
	parent = WithMessageID(parent, "wamid")
	cancel()

	detached := PreserveTracing(parent)
	if detached.Err() != nil {
		t.Fatalf("detached context should not be canceled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should have no deadline")
	}
	if GetContactID(detached) != "569" || GetMessageID(detached) != "wamid" {
		t.Error("tracing values were not preserved")
	}
	if id, _ := GetRequestID(detached); id != "req" {
		t.Errorf("request id = %q, want req", id)
	}
}
