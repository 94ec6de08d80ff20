package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter answers whether an action identified by key may proceed right now.
// Backing stores are pluggable: the in-memory limiter serves a single
// instance, the Redis limiter serves a shared deployment.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewMemoryLimiter allows up to perHour actions per key, with a burst of the
// same size so a fresh key is not throttled immediately.
func NewMemoryLimiter(perHour int) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perHour) / 3600.0),
		burst:   perHour,
	}
}

// Allow reports whether the action for key is within its rate
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Unlimited never throttles. Used where rate limiting is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) bool { return true }
