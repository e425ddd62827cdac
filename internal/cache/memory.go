package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Cache. Expired entries are dropped when read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	opts    Options
	now     func() time.Time
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemory creates an empty in-memory cache
func NewMemory(opts Options) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		opts:    opts.normalize(),
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if ok && e.expired(m.now()) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		return nil, miss(key)
	}
	return slices.Clone(e.value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := entry{value: slices.Clone(value)}
	if d := m.opts.expiry(ttl); d > 0 {
		e.expires = m.now().Add(d)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired or not
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }
