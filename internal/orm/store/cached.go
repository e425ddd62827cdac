package store

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/ubiquits/ubiquits/internal/cache"
	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Cached is a read-through decorator. FindOne results are cached under
// "<storageKey>:<id>" with their relations; writes and deletes invalidate the
// entry. Cache failures are logged and fall through to the inner store.
type Cached struct {
	Store
	base  Base
	cache cache.Cache
	ttl   time.Duration
}

var _ Store = (*Cached)(nil)

// NewCached wraps inner with c. A zero ttl uses the cache's default.
func NewCached(inner Store, c cache.Cache, ttl time.Duration, logger logging.Logger) (*Cached, error) {
	base, err := NewBase(inner.Class(), logger, "Cached Store")
	if err != nil {
		return nil, err
	}
	return &Cached{
		Store: inner,
		base:  base,
		cache: c,
		ttl:   ttl,
	}, nil
}

// FindOne serves the entity from cache, loading it from the inner store on a miss
func (s *Cached) FindOne(ctx context.Context, id any) (*model.Model, error) {
	key, ok := s.base.LookupKey(id)
	if !ok {
		return s.Store.FindOne(ctx, id)
	}
	cacheKey := cache.EntityKey(s.base.StorageKey(), key)

	data, err := s.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		m, derr := s.decode(data)
		if derr == nil {
			return m, nil
		}
		s.base.Logger().Debug("dropping undecodable cache entry", "key", cacheKey, "error", derr)
	case !cache.IsMiss(err):
		s.base.Logger().Debug("cache read failed", "key", cacheKey, "error", err)
	}

	m, err := s.Store.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.ttl); err != nil {
			s.base.Logger().Debug("cache write failed", "key", cacheKey, "error", err)
		}
	}
	return m, nil
}

// FindMany is not cached
func (s *Cached) FindMany(ctx context.Context, query url.Values) (*model.Collection[*model.Model], error) {
	return s.Store.FindMany(ctx, query)
}

// SaveOne writes through and invalidates the cached entry
func (s *Cached) SaveOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	saved, err := s.Store.SaveOne(ctx, m)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, m)
	return saved, nil
}

// DeleteOne deletes through and invalidates the cached entry
func (s *Cached) DeleteOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	deleted, err := s.Store.DeleteOne(ctx, m)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, m)
	return deleted, nil
}

func (s *Cached) invalidate(ctx context.Context, m *model.Model) {
	key, err := s.base.Key(m)
	if err != nil {
		return
	}
	cacheKey := cache.EntityKey(s.base.StorageKey(), key)
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.base.Logger().Error("cache invalidation failed", "key", cacheKey, "error", err)
	}
}

func (s *Cached) decode(data []byte) (*model.Model, error) {
	v, err := schema.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return s.base.Hydrate(v)
}
