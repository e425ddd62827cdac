package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. Each key holds up to Capacity tokens
// and regains Capacity tokens per Period.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	period   time.Duration
	now      func() time.Time

	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// Config holds token bucket configuration
type Config struct {
	// Capacity is the burst size of a key
	Capacity int
	// Period is the time to refill an empty bucket
	Period time.Duration
	// CleanupInterval is how often idle buckets are dropped, 0 disables it
	CleanupInterval time.Duration
	// Clock overrides time.Now
	Clock func() time.Time
}

// DefaultConfig allows 10 requests per minute
func DefaultConfig() Config {
	return Config{
		Capacity:        10,
		Period:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(config Config) (*TokenBucket, error) {
	if config.Capacity <= 0 {
		return nil, errors.New("capacity must be greater than 0")
	}
	if config.Period <= 0 {
		return nil, errors.New("period must be greater than 0")
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: config.Capacity,
		period:   config.Period,
		now:      config.Clock,
		done:     make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}
	return tb, nil
}

// Allow consumes one token for key
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.capacity), seen: now}
		tb.buckets[key] = b
	}

	rate := float64(tb.capacity) / float64(tb.period)
	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.tokens = min(float64(tb.capacity), b.tokens+float64(elapsed)*rate)
	}
	b.seen = now

	info := &Info{Limit: tb.capacity}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)

	// time until the next whole token
	missing := 1 - (b.tokens - float64(info.Remaining))
	info.ResetAt = now.Add(time.Duration(missing / rate))
	return info, nil
}

// Len returns the number of tracked keys
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.Sweep()
		case <-tb.done:
			return
		}
	}
}

// Sweep drops buckets that have been full for a whole period
func (tb *TokenBucket) Sweep() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.seen) > tb.period {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}
