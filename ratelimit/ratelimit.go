// Package ratelimit enforces minimum inter-request spacing per search
// engine. State is in-memory only; a restart resets all timers.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/keyseek/harvest/models"
	"golang.org/x/time/rate"
)

// Limiter spaces out consecutive requests to the same engine key.
// Different keys never block each other. Waiters for the same key are
// served FIFO by arrival: rate.Limiter hands out reservations in call
// order under its internal lock, so request start times are serialized.
type Limiter struct {
	mu       sync.Mutex
	limiters map[models.EngineKey]*rate.Limiter
	minDelay time.Duration
	burst    int
}

// New creates a Limiter with the given minimum delay between requests to
// one engine. A zero or negative delay disables waiting.
func New(minDelay time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[models.EngineKey]*rate.Limiter),
		minDelay: minDelay,
		burst:    burst,
	}
}

// Wait blocks until now - lastRequestTime[key] >= minDelay, or until the
// context is done. The engine-key map is guarded by a mutex so concurrently
// scheduled adapter calls for the same engine never race.
func (l *Limiter) Wait(ctx context.Context, key models.EngineKey) error {
	if l.minDelay <= 0 {
		return nil
	}

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.minDelay), l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.Wait(ctx)
}
