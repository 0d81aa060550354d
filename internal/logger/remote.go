package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	slogbetterstack "github.com/samber/slog-betterstack"
)

const (
	remoteQueueSize    = 1024
	remoteFlushTimeout = 5 * time.Second
)

type queuedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// shipper drains queued records into their target handler on one goroutine.
// A full queue drops records instead of blocking the caller.
type shipper struct {
	mu      sync.RWMutex
	queue   chan queuedRecord
	closed  bool
	dropped atomic.Uint64
	done    sync.WaitGroup
}

func newShipper(size int) *shipper {
	s := &shipper{queue: make(chan queuedRecord, size)}
	s.done.Go(func() {
		for q := range s.queue {
			_ = q.handler.Handle(q.ctx, q.record)
		}
	})
	return s
}

func (s *shipper) push(ctx context.Context, r slog.Record, h slog.Handler) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- queuedRecord{ctx: context.WithoutCancel(ctx), record: r, handler: h}:
	default:
		s.dropped.Add(1)
	}
}

// remoteSink is a slog.Handler that ships records asynchronously so a slow
// log ingest never stalls a conversation turn.
type remoteSink struct {
	ship    *shipper
	handler slog.Handler
}

func newRemoteSink(h slog.Handler) *remoteSink {
	return &remoteSink{ship: newShipper(remoteQueueSize), handler: h}
}

func newBetterStackSink(token string, level slog.Level) *remoteSink {
	return newRemoteSink(slogbetterstack.Option{
		Level: level,
		Token: token,
	}.NewBetterstackHandler())
}

func (r *remoteSink) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

func (r *remoteSink) Handle(ctx context.Context, rec slog.Record) error {
	if !r.handler.Enabled(ctx, rec.Level) {
		return nil
	}
	r.ship.push(ctx, rec.Clone(), r.handler)
	return nil
}

func (r *remoteSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &remoteSink{ship: r.ship, handler: r.handler.WithAttrs(attrs)}
}

func (r *remoteSink) WithGroup(name string) slog.Handler {
	return &remoteSink{ship: r.ship, handler: r.handler.WithGroup(name)}
}

// Dropped reports how many records were discarded because the queue was full.
func (r *remoteSink) Dropped() uint64 {
	return r.ship.dropped.Load()
}

func (r *remoteSink) shutdown(ctx context.Context) error {
	r.ship.mu.Lock()
	if r.ship.closed {
		r.ship.mu.Unlock()
		return nil
	}
	r.ship.closed = true
	close(r.ship.queue)
	r.ship.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, remoteFlushTimeout)
		defer cancel()
	}

	finished := make(chan struct{})
	go func() {
		r.ship.done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
