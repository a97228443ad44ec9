package middleware

import (
	"slices"
	"sync"
	"time"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter is a token bucket per key refilled at limit tokens per minute.
type RateLimiter struct {
	store *sync.Map // map[string]*Bucket
	limit int
	now   func() time.Time
}

type Bucket struct {
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

// NewRateLimiter returns a limiter allowing limit requests per minute per key.
// A limit of zero disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		store: &sync.Map{},
		limit: limit,
		now:   time.Now,
	}
}

// Cleanup drops buckets idle for longer than bucketIdleTTL and returns how
// many were removed.
func (rl *RateLimiter) Cleanup() int {
	now := rl.now()
	removed := 0
	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > bucketIdleTTL {
			rl.store.Delete(key)
			removed++
		}
		bucket.mu.Unlock()
		return true
	})
	return removed
}

// CleanupLoop runs Cleanup on every tick until done is closed.
func (rl *RateLimiter) CleanupLoop(done <-chan struct{}) {
	ticker := time.NewTicker(bucketIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Allow takes one token for key. When the bucket is empty it returns false
// and the time until the next token is available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	return rl.AllowAll(key)
}

// AllowRobots charges the bucket of every named robot. Callers check that
// the robots exist and may be used before charging them.
func (rl *RateLimiter) AllowRobots(names ...string) (bool, time.Duration) {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = "robot:" + name
	}
	return rl.AllowAll(keys...)
}

// AllowAll takes one token from each key's bucket, or from none of them
// when any bucket is empty. The returned wait is the longest time until every
// empty bucket has a token again.
func (rl *RateLimiter) AllowAll(keys ...string) (bool, time.Duration) {
	if rl.limit <= 0 || len(keys) == 0 {
		return true, 0
	}
	now := rl.now()
	limit := float64(rl.limit)
	refillRate := limit / 60.0 // tokens per second

	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	buckets := make([]*Bucket, len(keys))
	for i, key := range keys {
		val, _ := rl.store.LoadOrStore(key, &Bucket{
			tokens:     limit,
			lastRefill: now,
			lastAccess: now,
		})
		buckets[i] = val.(*Bucket)
	}

	// sorted keys give a fixed lock order
	for _, bucket := range buckets {
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
	}

	var wait time.Duration
	for _, bucket := range buckets {
		bucket.lastAccess = now
		if elapsed := now.Sub(bucket.lastRefill).Seconds(); elapsed > 0 {
			bucket.tokens = min(limit, bucket.tokens+elapsed*refillRate)
			bucket.lastRefill = now
		}
		if bucket.tokens < 1 {
			wait = max(wait, time.Duration((1-bucket.tokens)/refillRate*float64(time.Second)))
		}
	}
	if wait > 0 {
		return false, wait
	}

	for _, bucket := range buckets {
		bucket.tokens--
	}
	return true, 0
}
