// Package ratelimit throttles requests per key.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether the next request for a key may proceed
type Limiter interface {
	// Allow consumes one unit for key and reports the resulting state
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info describes the state of a key after a call to Allow
type Info struct {
	// Limit is the burst size of the key
	Limit int
	// Remaining is the number of requests left before throttling
	Remaining int
	// ResetAt is when the next unit becomes available
	ResetAt time.Time
	// Allowed reports whether the request may proceed
	Allowed bool
}

// RetryAfter returns how long a throttled caller should wait, rounded up to
// whole seconds
func (i *Info) RetryAfter(now time.Time) time.Duration {
	wait := i.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return wait.Truncate(time.Second) + time.Second
}
