// Package cache holds the byte caches that sit in front of a store: a Redis
// backend for deployments and an in-process one for tests and single nodes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL = 5 * time.Minute
	// DefaultNamespace prefixes every key
	DefaultNamespace = "ubiquits:"
)

// ErrMiss is returned when a key is not cached or has expired
var ErrMiss = errors.New("cache miss")

// Cache is a TTL byte cache keyed by entity key. A zero ttl means the
// backend default, a negative one means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Options configure a backend. Zero fields take the defaults.
type Options struct {
	TTL       time.Duration
	Namespace string
}

func (o Options) normalize() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	return o
}

// expiry resolves a per-call ttl, 0 meaning no expiry
func (o Options) expiry(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return o.TTL
	case ttl < 0:
		return 0
	}
	return ttl
}

func miss(key string) error {
	return fmt.Errorf("%w: %s", ErrMiss, key)
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// EntityKey builds the cache key of one stored entity: "<storageKey>:<id>"
func EntityKey(storageKey, id string) string {
	return storageKey + ":" + id
}
