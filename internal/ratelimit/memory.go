package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const defaultBuckets = 10000

// MemoryLimiter is a per-process token bucket per (API key, scope). Buckets live in an LRU so
// idle keys are evicted instead of growing the table without bound.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache
	every   rate.Limit
	burst   int
	now     func() time.Time
}

// NewMemoryLimiter refills limit tokens per window with the given burst capacity.
func NewMemoryLimiter(limit int, window time.Duration, burst int) (*MemoryLimiter, error) {
	buckets, err := lru.New(defaultBuckets)
	if err != nil {
		return nil, err
	}
	if burst <= 0 {
		burst = limit
	}
	return &MemoryLimiter{
		buckets: buckets,
		every:   rate.Every(window / time.Duration(limit)),
		burst:   burst,
		now:     time.Now,
	}, nil
}

// WithClock overrides the limiter clock.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Allow(ctx context.Context, apiKey, scope string) (Decision, error) {
	bucket := m.bucket(bucketKey(apiKey, scope))
	now := m.now()

	if !bucket.AllowN(now, 1) {
		missing := 1 - bucket.TokensAt(now)
		retry := time.Duration(math.Ceil(missing / float64(m.every) * float64(time.Second)))
		return Decision{Allowed: false, Limit: m.burst, Remaining: 0, RetryAfter: retry}, nil
	}

	remaining := int(math.Floor(bucket.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: m.burst, Remaining: remaining}, nil
}

func (m *MemoryLimiter) bucket(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(m.every, m.burst)
	m.buckets.Add(key, l)
	return l
}
