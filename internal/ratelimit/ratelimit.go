// Package ratelimit provides a keyed token-bucket limiter used to throttle
// one-time code dispatch per email address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerKey holds one token bucket per key.
type PerKey struct {
	limiters    sync.Map // map[string]*rate.Limiter
	limit       rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

// NewPerKey allows one event per interval with the given burst, per key.
func NewPerKey(interval time.Duration, burst int) *PerKey {
	return &PerKey{
		limit:       rate.Every(interval),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether an event for key may proceed now.
func (l *PerKey) Allow(key string) bool {
	limiter := l.getLimiter(key)
	allowed := limiter.Allow()
	l.maybeCleanup()
	return allowed
}

func (l *PerKey) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle limiters so ephemeral keys don't accumulate.
// A limiter with a full bucket has not been used for at least a full window.
func (l *PerKey) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
