// Package ratelimit limits inbound contacts and operator alerts with one
// token bucket per key.
package ratelimit

import "time"

// bucket is a token bucket holding up to burst tokens and refilling rate
// tokens per second. The owning KeyedLimiter serialises access.
type bucket struct {
	tokens float64
	last   time.Time
}

func newBucket(burst float64, now time.Time) *bucket {
	return &bucket{tokens: burst, last: now}
}

// take consumes one token if one is available at now.
func (b *bucket) take(now time.Time, burst, rate float64) bool {
	b.refill(now, burst, rate)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// full reports whether the bucket is back at burst, at which point it is
// indistinguishable from a new one.
func (b *bucket) full(now time.Time, burst, rate float64) bool {
	b.refill(now, burst, rate)
	return b.tokens >= burst
}

func (b *bucket) refill(now time.Time, burst, rate float64) {
	// A clock that steps back refills nothing.
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(burst, b.tokens+elapsed*rate)
	}
	b.last = now
}
