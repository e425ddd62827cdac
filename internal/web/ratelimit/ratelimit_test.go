package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newBucket(t *testing.T, capacity int) (*TokenBucket, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tb, err := NewTokenBucket(Config{Capacity: capacity, Period: time.Minute, Clock: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { tb.Close() })
	return tb, clock
}

func TestTokenBucketAllow(t *testing.T) {
	tb, clock := newBucket(t, 3)
	ctx := context.Background()

	for i := range 3 {
		info, err := tb.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d", i)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	info, err := tb.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.WithinDuration(t, clock.Now().Add(20*time.Second), info.ResetAt, time.Millisecond)

	t.Run("other keys are independent", func(t *testing.T) {
		info, err := tb.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	})

	t.Run("refills over time", func(t *testing.T) {
		clock.Advance(21 * time.Second)
		info, err := tb.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, info.Allowed)

		info, err = tb.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, info.Allowed)
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		clock.Advance(time.Hour)
		for range 3 {
			info, _ := tb.Allow(ctx, "10.0.0.1")
			assert.True(t, info.Allowed)
		}
		info, _ := tb.Allow(ctx, "10.0.0.1")
		assert.False(t, info.Allowed)
	})
}

func TestTokenBucketSweep(t *testing.T) {
	tb, clock := newBucket(t, 2)
	ctx := context.Background()

	_, _ = tb.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = tb.Allow(ctx, "b")
	require.Equal(t, 2, tb.Len())

	clock.Advance(45 * time.Second)
	tb.Sweep()
	assert.Equal(t, 1, tb.Len(), "only a is idle for a whole period")
}

func TestTokenBucketConcurrent(t *testing.T) {
	tb, _ := newBucket(t, 50)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if info, err := tb.Allow(ctx, "k"); err == nil && info.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestNewTokenBucketValidation(t *testing.T) {
	_, err := NewTokenBucket(Config{Capacity: 0, Period: time.Minute})
	assert.EqualError(t, err, "capacity must be greater than 0")

	_, err = NewTokenBucket(Config{Capacity: 1})
	assert.EqualError(t, err, "period must be greater than 0")

	tb, err := NewTokenBucket(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tb.Close())
	assert.NoError(t, tb.Close())
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 2*time.Second, (&Info{ResetAt: now.Add(1500 * time.Millisecond)}).RetryAfter(now))
	assert.Equal(t, time.Duration(0), (&Info{ResetAt: now.Add(-time.Second)}).RetryAfter(now))
}
