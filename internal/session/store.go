package session

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

// ModuleName identifies the store in logs.
const ModuleName = "session"

// HistoryLoader reads persisted conversation history, oldest first.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, contact string, limit int) ([]storage.Message, error)
}

// MetadataMirror persists slot-filling state outside the process.
// RedisMirror implements it.
type MetadataMirror interface {
	Load(ctx context.Context, contact string) (Metadata, bool, error)
	Save(ctx context.Context, contact string, meta Metadata, ttl time.Duration) error
}

// Config bounds the store.
type Config struct {
	TTL           time.Duration // idle expiry
	MaxContacts   int           // LRU bound
	HistoryLimit  int           // messages kept per contact
	SweepInterval time.Duration
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		TTL:           config.SessionTTL,
		MaxContacts:   10000,
		HistoryLimit:  config.SessionHistoryLimit,
		SweepInterval: config.SessionSweepInterval,
	}
}

type entry struct {
	conv     *Conversation
	sem      chan struct{} // held for the whole turn
	refs     int           // guarded by Store.mu
	lastUsed time.Time     // guarded by Store.mu
	elem     *list.Element
	hydrated atomic.Bool
	tried    bool // a hydration was applied; guarded by sem
}

type hydration struct {
	messages []Message
	loaded   bool // history was read; false leaves the entry to retry
	meta     Metadata
	hasMeta  bool
}

// Store is the process-wide conversation cache.
type Store struct {
	cfg     Config
	loader  HistoryLoader
	mirror  MetadataMirror
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front is most recently used

	group singleflight.Group
}

// Option customises a Store.
type Option func(*Store)

// WithMirror externalises metadata.
func WithMirror(m MetadataMirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. loader and m may be nil.
func NewStore(cfg Config, loader HistoryLoader, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Store {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxContacts <= 0 {
		cfg.MaxContacts = def.MaxContacts
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	s := &Store{
		cfg:     cfg,
		loader:  loader,
		logger:  log.WithModule(ModuleName),
		metrics: m,
		now:     time.Now,
		entries: make(map[string]*entry),
		lru:     list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the conversation of contact locked for one turn. The
// caller must call release exactly once; extra calls are ignored. History
// is hydrated from the loader on first touch, and again on later turns
// until a load succeeds.
func (s *Store) Acquire(ctx context.Context, contact, name string) (*Conversation, func(), error) {
	e := s.checkout(contact)

	if !e.hydrated.Load() {
		h := s.hydrate(ctx, contact)
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			s.checkin(e)
			return nil, nil, fmt.Errorf("acquire session: %w", ctx.Err())
		}
		if !e.hydrated.Load() {
			s.applyHydration(e, h)
		}
	} else {
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			s.checkin(e)
			return nil, nil, fmt.Errorf("acquire session: %w", ctx.Err())
		}
	}

	if name != "" {
		e.conv.DisplayName = name
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.conv.LastInteraction = s.now()
			if s.mirror != nil {
				s.saveMirror(contact, e.conv.Metadata)
			}
			<-e.sem
			s.checkin(e)
		})
	}
	return e.conv, release, nil
}

// checkout finds or creates the entry and pins it against eviction.
func (s *Store) checkout(contact string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[contact]
	if !ok {
		e = &entry{
			conv: &Conversation{
				ContactID:       contact,
				CreatedAt:       now,
				LastInteraction: now,
				limit:           s.cfg.HistoryLimit,
			},
			sem: make(chan struct{}, 1),
		}
		e.elem = s.lru.PushFront(contact)
		s.entries[contact] = e
	} else {
		s.lru.MoveToFront(e.elem)
	}
	e.refs++
	e.lastUsed = now
	s.evictLocked()
	s.reportSizeLocked()
	return e
}

func (s *Store) checkin(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	e.lastUsed = s.now()
}

// evictLocked drops least recently used idle entries above the cap.
// Pinned entries are skipped.
func (s *Store) evictLocked() {
	for el := s.lru.Back(); el != nil && len(s.entries) > s.cfg.MaxContacts; {
		prev := el.Prev()
		contact := el.Value.(string)
		if e := s.entries[contact]; e.refs == 0 {
			s.removeLocked(contact, e)
		}
		el = prev
	}
}

func (s *Store) removeLocked(contact string, e *entry) {
	s.lru.Remove(e.elem)
	delete(s.entries, contact)
}

func (s *Store) hydrate(ctx context.Context, contact string) hydration {
	v, _, shared := s.group.Do(contact, func() (any, error) {
		h := hydration{loaded: true}
		if s.loader != nil {
			msgs, err := s.loader.LoadHistory(ctx, contact, s.cfg.HistoryLimit)
			if err != nil {
				h.loaded = false
				s.logger.WithError(err).WarnContext(ctx, "Failed to load conversation history, retrying next turn")
			}
			for _, m := range msgs {
				h.messages = append(h.messages, Message{Role: m.Role, Text: m.Text, At: m.CreatedAt, MessageID: m.MessageID})
			}
		}
		if s.mirror != nil {
			meta, ok, err := s.mirror.Load(ctx, contact)
			if err != nil {
				s.logger.WithError(err).WarnContext(ctx, "Failed to load session metadata")
			}
			h.meta, h.hasMeta = meta, ok
		}
		return h, nil
	})
	if shared && s.metrics != nil {
		s.metrics.RecordSingleflightDedup(ModuleName)
	}
	return v.(hydration)
}

// applyHydration installs loaded state. Must be called with e.sem held.
// Mirrored metadata only seeds a conversation that never ran a turn; a
// late history load goes in front of the lines this process already holds.
func (s *Store) applyHydration(e *entry, h hydration) {
	if !e.tried && h.hasMeta {
		e.conv.Metadata = h.meta
	}
	e.tried = true
	if !h.loaded {
		return
	}
	e.conv.Messages = mergeHistory(h.messages, e.conv.Messages, s.cfg.HistoryLimit)
	e.hydrated.Store(true)
}

// mergeHistory keeps the loaded lines older than the first line held in
// memory, then the memory lines, trimmed to the newest limit.
func mergeHistory(loaded, held []Message, limit int) []Message {
	if len(held) == 0 {
		return loaded
	}
	first := held[0].At
	out := make([]Message, 0, len(loaded)+len(held))
	for _, m := range loaded {
		if m.At.Before(first) {
			out = append(out, m)
		}
	}
	out = append(out, held...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Store) saveMirror(contact string, meta Metadata) {
	ctx, cancel := context.WithTimeout(context.Background(), config.SessionMirrorWrite)
	defer cancel()
	if err := s.mirror.Save(ctx, contact, meta, s.cfg.TTL); err != nil {
		s.logger.WithError(err).WithField("contact_id", contact).Warn("Failed to mirror session metadata")
	}
}

// Sweep removes conversations idle longer than the TTL and returns how many
// were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.TTL)
	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		contact := el.Value.(string)
		e := s.entries[contact]
		if e.refs == 0 && e.lastUsed.Before(cutoff) {
			s.removeLocked(contact, e)
			removed++
		}
		el = prev
	}
	s.reportSizeLocked()
	return removed
}

// Run sweeps on the configured interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debugf("Swept %d idle conversations", n)
			}
		}
	}
}

// Len returns the number of cached conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset drops one contact's cached state. A held conversation is left alone.
func (s *Store) Reset(contact string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[contact]; ok && e.refs == 0 {
		s.removeLocked(contact, e)
	}
	s.reportSizeLocked()
}

func (s *Store) reportSizeLocked() {
	if s.metrics != nil {
		s.metrics.SetActiveSessions(len(s.entries))
	}
}
