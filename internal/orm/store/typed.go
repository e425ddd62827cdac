package store

import (
	"context"
	"net/url"

	"github.com/ubiquits/ubiquits/internal/orm/model"
)

// Typed exposes a Store through a domain type T that wraps *model.Model
type Typed[T model.Identifiable] struct {
	store  Store
	wrap   func(*model.Model) T
	unwrap func(T) *model.Model
}

// NewTyped adapts store to T
func NewTyped[T model.Identifiable](store Store, wrap func(*model.Model) T, unwrap func(T) *model.Model) *Typed[T] {
	return &Typed[T]{store: store, wrap: wrap, unwrap: unwrap}
}

// Untyped returns the wrapped store
func (s *Typed[T]) Untyped() Store { return s.store }

// FindOne reads one entity
func (s *Typed[T]) FindOne(ctx context.Context, id any) (T, error) {
	m, err := s.store.FindOne(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.wrap(m), nil
}

// FindMany reads the collection
func (s *Typed[T]) FindMany(ctx context.Context, query url.Values) (*model.Collection[T], error) {
	col, err := s.store.FindMany(ctx, query)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, col.Len())
	for m := range col.All() {
		items = append(items, s.wrap(m))
	}
	return model.NewCollection(items...), nil
}

// SaveOne writes the entity and returns the same value
func (s *Typed[T]) SaveOne(ctx context.Context, v T) (T, error) {
	if _, err := s.store.SaveOne(ctx, s.unwrap(v)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// DeleteOne deletes the entity and returns the same value
func (s *Typed[T]) DeleteOne(ctx context.Context, v T) (T, error) {
	if _, err := s.store.DeleteOne(ctx, s.unwrap(v)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// HasOne reports whether the entity exists
func (s *Typed[T]) HasOne(ctx context.Context, v T) bool {
	return s.store.HasOne(ctx, s.unwrap(v))
}
