// rate_limiter.go - token-bucket throttle for upstream detection/translation calls.

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a simple token-bucket rate limiter. Zero value with
// maxTokens <= 0 behaves as unlimited (Wait returns immediately), so a
// disabled configuration never needs a branch at call sites.
type Limiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
}

// New creates a Limiter holding up to maxTokens, refilled one at a time every
// refillInterval. maxTokens <= 0 disables throttling entirely.
func New(maxTokens int, refillInterval time.Duration) *Limiter {
	return &Limiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.lastRefill)
	add := int(elapsed / l.refillInterval)
	if add <= 0 {
		return
	}
	l.tokens += add
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// Wait blocks until a token is available or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.maxTokens <= 0 {
		return nil
	}
	for {
		l.mu.Lock()
		l.refillLocked(time.Now())
		if l.tokens > 0 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
