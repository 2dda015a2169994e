// Package server throttles inbound frames per connection so one client
// cannot monopolize the hub.
package server

import (
	"sync"
	"time"
)

// tokenBucket is the per-connection inbound throttle. Refill is continuous:
// the full burst becomes available again over one refill interval.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	perSec float64
	last   time.Time
}

// newTokenBucket builds a bucket from the configured limit. Out-of-range
// values degrade to a one-frame-per-second bucket rather than rejecting
// everything.
func newTokenBucket(cfg RateLimitConfig) *tokenBucket {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &tokenBucket{
		tokens: float64(burst),
		burst:  float64(burst),
		perSec: float64(burst) / interval.Seconds(),
		last:   time.Now(),
	}
}

// allow consumes one token if available and reports how many remain, so the
// caller can log the bucket state on rejection.
func (b *tokenBucket) allow() (bool, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+elapsed*b.perSec, b.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false, b.tokens
	}
	b.tokens--
	return true, b.tokens
}
