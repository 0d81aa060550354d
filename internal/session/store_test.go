package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeLoader struct {
	mu      sync.Mutex
	history map[string][]storage.Message
	err     error
	calls   int
}

func (f *fakeLoader) LoadHistory(_ context.Context, contact string, limit int) ([]storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	msgs := f.history[contact]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type fakeMirror struct {
	mu   sync.Mutex
	data map[string]Metadata
}

func (f *fakeMirror) Load(_ context.Context, contact string) (Metadata, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.data[contact]
	return m, ok, nil
}

func (f *fakeMirror) Save(_ context.Context, contact string, meta Metadata, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]Metadata{}
	}
	f.data[contact] = meta
	return nil
}

func newTestStore(t *testing.T, cfg Config, loader HistoryLoader, opts ...Option) (*Store, *clock, *metrics.Metrics) {
	t.Helper()
	c := &clock{t: time.Date(2025, time.November, 5, 10, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	var buf bytes.Buffer
	opts = append([]Option{WithClock(c.Now)}, opts...)
	return NewStore(cfg, loader, logger.NewWithWriter("error", &buf), m, opts...), c, m
}

func TestConversation_AppendKeepsLimit(t *testing.T) {
	t.Parallel()
	c := &Conversation{limit: 50}
	at := time.Now()
	for i := range 60 {
		c.Append(storage.RoleUser, string(rune('a'+i%26)), "", at)
	}
	assert.Len(t, c.Messages, 50)
	assert.Equal(t, at, c.LastInteraction)
}

func TestConversation_Helpers(t *testing.T) {
	t.Parallel()
	c := &Conversation{}
	assert.False(t, c.HasUserMessages())

	now := time.Now()
	c.Append(storage.RoleAssistant, "hola", "", now)
	assert.False(t, c.HasUserMessages())
	c.Append(storage.RoleUser, "uno", "wamid.1", now)
	c.Append(storage.RoleAssistant, "dos", "", now)
	c.Append(storage.RoleUser, "tres", "", now)

	assert.True(t, c.HasUserMessages())
	assert.Equal(t, []string{"tres", "uno"}, c.RecentByRole(storage.RoleUser, 10))
	assert.Equal(t, []string{"dos"}, c.RecentByRole(storage.RoleAssistant, 1))
	assert.Len(t, c.Recent(2), 2)
	assert.Len(t, c.Recent(0), 4)
}

func TestMetadata_ResetAndIdle(t *testing.T) {
	t.Parallel()
	m := Metadata{AwaitingPartySize: true, PendingReservation: &PendingReservation{Date: "6 de noviembre 2025", Time: "15:00"}}
	assert.False(t, m.Idle())
	m.Reset()
	assert.True(t, m.Idle())
}

func TestStore_HydratesOnce(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{history: map[string][]storage.Message{
		"569": {
			{Role: storage.RoleUser, Text: "hola"},
			{Role: storage.RoleAssistant, Text: "¡Hola!"},
		},
	}}
	s, _, _ := newTestStore(t, Config{}, loader)
	ctx := context.Background()

	conv, release, err := s.Acquire(ctx, "569", "Ana")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
	assert.True(t, conv.HasUserMessages())
	assert.Equal(t, "Ana", conv.DisplayName)
	conv.Append(storage.RoleUser, "otra", "", time.Now())
	release()
	release() // ignored

	conv, release, err = s.Acquire(ctx, "569", "")
	require.NoError(t, err)
	defer release()
	assert.Len(t, conv.Messages, 3)
	assert.Equal(t, "Ana", conv.DisplayName)
	assert.Equal(t, 1, loader.calls)
}

func TestStore_HydrationFailureStartsEmpty(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t, Config{}, &fakeLoader{err: errors.New("no such table: whatsapp_conversations")})

	conv, release, err := s.Acquire(context.Background(), "569", "")
	require.NoError(t, err)
	defer release()
	assert.Empty(t, conv.Messages)
}

func TestStore_HydrationRetriesAfterFailure(t *testing.T) {
	t.Parallel()
	earlier := time.Date(2025, time.November, 4, 18, 0, 0, 0, time.UTC)
	loader := &fakeLoader{
		err: errors.New("dial tcp 10.0.0.5:5432: connection refused"),
		history: map[string][]storage.Message{
			"569": {
				{Role: storage.RoleUser, Text: "hola", CreatedAt: earlier},
				{Role: storage.RoleAssistant, Text: "¡Hola!", CreatedAt: earlier},
			},
		},
	}
	s, clk, _ := newTestStore(t, Config{}, loader)
	ctx := context.Background()

	conv, release, err := s.Acquire(ctx, "569", "Ana")
	require.NoError(t, err)
	assert.False(t, conv.HasUserMessages())
	conv.Append(storage.RoleUser, "quiero reservar", "", clk.Now())
	release()

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	conv, release, err = s.Acquire(ctx, "569", "")
	require.NoError(t, err)
	texts := make([]string, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"hola", "¡Hola!", "quiero reservar"}, texts)
	release()

	_, release, err = s.Acquire(ctx, "569", "")
	require.NoError(t, err)
	release()

	loader.mu.Lock()
	defer loader.mu.Unlock()
	assert.Equal(t, 2, loader.calls, "a successful load is not repeated")
}

func TestMergeHistory(t *testing.T) {
	t.Parallel()
	at := func(h int) time.Time { return time.Date(2025, time.November, 5, h, 0, 0, 0, time.UTC) }
	loaded := []Message{{Text: "a", At: at(8)}, {Text: "b", At: at(9)}, {Text: "c", At: at(10)}}
	held := []Message{{Text: "c", At: at(10)}, {Text: "d", At: at(11)}}

	tests := []struct {
		name  string
		held  []Message
		limit int
		want  []string
	}{
		{"nothing held", nil, 50, []string{"a", "b", "c"}},
		{"overlap dropped", held, 50, []string{"a", "b", "c", "d"}},
		{"trimmed to limit", held, 3, []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, m := range mergeHistory(loaded, tt.held, tt.limit) {
				got = append(got, m.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_SerializesTurnsPerContact(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t, Config{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			conv, release, err := s.Acquire(ctx, "569", "")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := conv.Metadata.AwaitingFlavor
			time.Sleep(time.Millisecond)
			conv.Metadata.AwaitingFlavor = n + 1
		})
	}
	wg.Wait()

	conv, release, err := s.Acquire(ctx, "569", "")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 20, conv.Metadata.AwaitingFlavor)
}

func TestStore_AcquireHonoursContext(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t, Config{}, nil)

	_, release, err := s.Acquire(context.Background(), "569", "")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = s.Acquire(ctx, "569", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_LRUEviction(t *testing.T) {
	t.Parallel()
	s, _, m := newTestStore(t, Config{MaxContacts: 2}, nil)
	ctx := context.Background()

	touch := func(contact string) {
		_, release, err := s.Acquire(ctx, contact, "")
		require.NoError(t, err)
		release()
	}

	touch("a")
	touch("b")
	touch("a")
	touch("c") // evicts b, the least recently used

	assert.Equal(t, 2, s.Len())
	s.mu.Lock()
	_, hasA := s.entries["a"]
	_, hasB := s.entries["b"]
	s.mu.Unlock()
	assert.True(t, hasA)
	assert.False(t, hasB)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ActiveSessions), 0)
}

func TestStore_HeldEntryIsNotEvicted(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t, Config{MaxContacts: 1}, nil)
	ctx := context.Background()

	held, release, err := s.Acquire(ctx, "a", "")
	require.NoError(t, err)
	held.Metadata.AwaitingDate = true

	_, releaseB, err := s.Acquire(ctx, "b", "")
	require.NoError(t, err)
	releaseB()
	release()

	conv, release, err := s.Acquire(ctx, "a", "")
	require.NoError(t, err)
	defer release()
	assert.True(t, conv.Metadata.AwaitingDate)
}

func TestStore_SweepExpiresIdle(t *testing.T) {
	t.Parallel()
	s, c, _ := newTestStore(t, Config{TTL: 24 * time.Hour}, nil)
	ctx := context.Background()

	for _, contact := range []string{"a", "b"} {
		_, release, err := s.Acquire(ctx, contact, "")
		require.NoError(t, err)
		release()
	}

	c.Advance(23 * time.Hour)
	assert.Equal(t, 0, s.Sweep())

	_, release, err := s.Acquire(ctx, "b", "")
	require.NoError(t, err)
	release()

	c.Advance(2 * time.Hour)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestStore_MirrorResumesMetadata(t *testing.T) {
	t.Parallel()
	mirror := &fakeMirror{}
	ctx := context.Background()

	first, _, _ := newTestStore(t, Config{}, nil, WithMirror(mirror))
	conv, release, err := first.Acquire(ctx, "569", "")
	require.NoError(t, err)
	conv.Metadata.AwaitingPartySize = true
	conv.Metadata.PendingReservation = &PendingReservation{Date: "6 de noviembre 2025", DateISO: "2025-11-06", Time: "15:00"}
	release()

	second, _, _ := newTestStore(t, Config{}, nil, WithMirror(mirror))
	conv, release, err = second.Acquire(ctx, "569", "")
	require.NoError(t, err)
	defer release()
	assert.True(t, conv.Metadata.AwaitingPartySize)
	require.NotNil(t, conv.Metadata.PendingReservation)
	assert.Equal(t, "15:00", conv.Metadata.PendingReservation.Time)
}

func TestRedisMirror(t *testing.T) {
	addr := os.Getenv("HOTBOAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HOTBOAT_TEST_REDIS_ADDR not set; skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	contact := "test-" + time.Now().Format("150405.000000")
	m := NewRedisMirror(rdb)

	_, ok, err := m.Load(ctx, contact)
	require.NoError(t, err)
	assert.False(t, ok)

	meta := Metadata{AwaitingTime: true, PendingReservation: &PendingReservation{Date: "6 de noviembre 2025", DateISO: "2025-11-06"}}
	require.NoError(t, m.Save(ctx, contact, meta, time.Minute))

	got, ok, err := m.Load(ctx, contact)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta.PendingReservation.DateISO, got.PendingReservation.DateISO)

	require.NoError(t, m.Save(ctx, contact, Metadata{}, time.Minute))
	_, ok, err = m.Load(ctx, contact)
	require.NoError(t, err)
	assert.False(t, ok)
}
