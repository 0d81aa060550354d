package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestMultiHandler_FanOut(t *testing.T) {
	t.Parallel()

	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		nil,
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if len(mh.handlers) != 2 {
		t.Fatalf("Expected nil handlers to be skipped, got %d", len(mh.handlers))
	}

	slog.New(mh.WithAttrs([]slog.Attr{slog.String("module", "bot")})).Info("info message")

	var entry map[string]any
	if err := json.Unmarshal(debugBuf.Bytes(), &entry); err != nil {
		t.Fatalf("debug handler output: %v", err)
	}
	if entry["module"] != "bot" {
		t.Errorf("module = %v, want bot", entry["module"])
	}
	if errorBuf.Len() != 0 {
		t.Error("error-level handler should not receive info records")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("handler error")
}

func TestMultiHandler_ErrorCollection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mh := NewMultiHandler(slog.NewJSONHandler(&buf, nil), failingHandler{})

	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0))
	if buf.Len() == 0 {
		t.Error("healthy handler should still write")
	}
	if err == nil || err.Error() != "handler error" {
		t.Errorf("Handle() error = %v, want handler error", err)
	}
}

type capturingHandler struct {
	mu       sync.Mutex
	messages []string
}

func (c *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, r.Message)
	return nil
}
func (c *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(string) slog.Handler      { return c }

func TestRemoteSink_FlushesOnShutdown(t *testing.T) {
	t.Parallel()

	target := &capturingHandler{}
	sink := newRemoteSink(target)
	logger := slog.New(sink)

	for range 10 {
		logger.Info("shipped")
	}
	if err := sink.shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() = %v", err)
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.messages)+int(sink.Dropped()) != 10 {
		t.Errorf("shipped %d + dropped %d, want 10", len(target.messages), sink.Dropped())
	}

	// Records after shutdown are ignored, and a second shutdown is a no-op.
	logger.Info("late")
	if err := sink.shutdown(context.Background()); err != nil {
		t.Errorf("second shutdown() = %v", err)
	}
}
