package ratelimit

import (
	"sync"
	"time"

	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name labels the limiter in metrics ("user", "alert").
	Name string

	Burst      float64 // Tokens a new key starts with
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod is how often keys with a full bucket are forgotten.
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter keeps a token bucket per key (contact phone, alert class).
// Buckets that refill completely are dropped by a background sweep.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     KeyedConfig
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter creates a per-key limiter and starts its sweep.
// Call Stop when done.
//
//	alerts := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
//	    Name:       "alert",
//	    Burst:      1,
//	    RefillRate: 1.0 / 3600, // one per hour
//	})
//	defer alerts.Stop()
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	return newKeyedLimiter(cfg, time.Now)
}

func newKeyedLimiter(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		now:     now,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token for key and reports whether the request may go
// ahead. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	kl.mu.Lock()
	now := kl.now()
	b, known := kl.buckets[key]
	if !known {
		b = newBucket(kl.cfg.Burst, now)
		kl.buckets[key] = b
	}
	allowed := b.take(now, kl.cfg.Burst, kl.cfg.RefillRate)
	active := len(kl.buckets)
	kl.mu.Unlock()

	if !known {
		kl.reportActive(active)
	}
	if !allowed && kl.cfg.Metrics != nil {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	}
	return allowed
}

// Len returns the number of keys currently tracked.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.buckets)
}

// sweep forgets every key whose bucket has refilled and returns how many
// keys remain.
func (kl *KeyedLimiter) sweep() int {
	kl.mu.Lock()
	now := kl.now()
	for key, b := range kl.buckets {
		if b.full(now, kl.cfg.Burst, kl.cfg.RefillRate) {
			delete(kl.buckets, key)
		}
	}
	active := len(kl.buckets)
	kl.mu.Unlock()

	kl.reportActive(active)
	return active
}

func (kl *KeyedLimiter) reportActive(n int) {
	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.SetRateLimiterActiveKeys(kl.cfg.Name, n)
	}
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
