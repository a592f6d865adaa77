// Package ratelimit bounds how many jobs a client may start per window.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimitExceeded means the client used up its quota for the window.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Decision is the result of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the window resets, at least one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Limiter counts hits per client key in a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Unlimited allows everything. It is used when rate limiting is disabled.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

type bucket struct {
	count int
	start time.Time
}

// MemoryLimiter keeps one counter per key in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// maxBuckets bounds the map before expired windows are swept
const maxBuckets = 10000

// NewMemoryLimiter allows limit hits per key per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if len(l.buckets) >= maxBuckets {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		b = &bucket{start: now}
		l.buckets[key] = b
	}

	d := Decision{Limit: l.limit, ResetAt: b.start.Add(l.window)}
	if b.count >= l.limit {
		return d, nil
	}

	b.count++
	d.Allowed = true
	d.Remaining = l.limit - b.count
	return d, nil
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
}
