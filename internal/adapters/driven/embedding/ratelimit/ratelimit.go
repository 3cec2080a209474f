// Package ratelimit provides client-side throttling for embedding
// backends: a token bucket for sustained rate plus a backoff window
// honouring Retry-After on 429 responses.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds throttling configuration for an embedding backend.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or negative
	// disables throttling.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int
}

// Limiter paces embedding requests. The zero-config limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter. A non-positive rate yields a pass-through
// limiter.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return &Limiter{}
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Wait blocks until a request may be sent, honouring both the token
// bucket and any backoff window from a previous rate limit response.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if until := time.Until(retryAt); until > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(until):
		}
	}

	if l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Backoff opens a backoff window after a 429 response. Zero or negative
// seconds falls back to a conservative default.
func (l *Limiter) Backoff(retryAfterSeconds int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = 30
	}
	l.retryAt = time.Now().Add(time.Duration(retryAfterSeconds) * time.Second)
}
