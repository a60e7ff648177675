package gateway

import (
	"sync"
	"time"
)

// RateLimiter throttles requests with one token bucket per caller.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	limit   int
	period  time.Duration
}

type tokenBucket struct {
	mu          sync.Mutex
	remaining   int
	refreshedAt time.Time
}

// take refills the bucket proportionally to elapsed time, then consumes a
// token if one is available.
func (b *tokenBucket) take(limit int, period time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.refreshedAt)

	if elapsed >= period {
		b.remaining = limit
		b.refreshedAt = now
	} else if refill := int(elapsed.Nanoseconds() * int64(limit) / period.Nanoseconds()); refill > 0 {
		b.remaining = min(b.remaining+refill, limit)
		b.refreshedAt = now
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// NewRateLimiter creates a limiter allowing limit requests per period per user
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
	}
}

// Allow reports whether the given user may make another request
func (rl *RateLimiter) Allow(userID string) (bool, error) {
	return rl.bucketFor(userID).take(rl.limit, rl.period), nil
}

// Reset restores the full token allowance for a user
func (rl *RateLimiter) Reset(userID string) error {
	rl.mu.RLock()
	bucket, exists := rl.buckets[userID]
	rl.mu.RUnlock()

	if exists {
		bucket.mu.Lock()
		bucket.remaining = rl.limit
		bucket.refreshedAt = time.Now()
		bucket.mu.Unlock()
	}

	return nil
}

// GetLimits returns the remaining token count and the configured limit
func (rl *RateLimiter) GetLimits(userID string) (int, int, error) {
	bucket := rl.bucketFor(userID)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	return bucket.remaining, rl.limit, nil
}

func (rl *RateLimiter) bucketFor(userID string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[userID]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if bucket, exists := rl.buckets[userID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		remaining:   rl.limit,
		refreshedAt: time.Now(),
	}
	rl.buckets[userID] = bucket

	return bucket
}

// cleanup drops buckets that have been idle for more than a day
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)

	for userID, bucket := range rl.buckets {
		bucket.mu.Lock()
		if bucket.refreshedAt.Before(cutoff) {
			delete(rl.buckets, userID)
		}
		bucket.mu.Unlock()
	}
}

// StartCleanup starts periodic removal of idle buckets
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			rl.cleanup()
		}
	}()
}
