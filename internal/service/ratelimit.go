package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is an in-memory per-key rate limiter backed by rate.Limiter.
// It is safe for concurrent use. Stale keys are removed by a background
// goroutine.
type TokenBucket struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewTokenBucket creates a rate limiter that allows bursts of up to capacity
// requests per key, refilling at perSecond tokens per second.
func NewTokenBucket(perSecond float64, capacity int) *TokenBucket {
	tb := &TokenBucket{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    capacity,
		now:      time.Now,
	}
	go tb.cleanup()
	return tb
}

// Allow reports whether key may proceed. Each allowed call consumes a token.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	e, ok := tb.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(tb.rate, tb.burst)}
		tb.limiters[key] = e
	}
	e.last = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.limiters)
}

// Sweep drops keys idle since before cutoff.
func (tb *TokenBucket) Sweep(cutoff time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for key, e := range tb.limiters {
		if e.last.Before(cutoff) {
			delete(tb.limiters, key)
		}
	}
}

func (tb *TokenBucket) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		tb.Sweep(tb.now().Add(-10 * time.Minute))
	}
}
