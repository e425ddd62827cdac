package store

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Memory keeps write payloads in process. Reads rehydrate a fresh instance,
// so callers never share state with the store. Insertion order is kept.
type Memory struct {
	Base

	mu    sync.RWMutex
	order []string
	rows  map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store for class
func NewMemory(class *schema.Class, logger logging.Logger) (*Memory, error) {
	base, err := NewBase(class, logger, "Memory Store")
	if err != nil {
		return nil, err
	}
	return &Memory{
		Base: base,
		rows: make(map[string][]byte),
	}, nil
}

// FindOne reads one entity
func (s *Memory) FindOne(ctx context.Context, id any) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, ok := s.LookupKey(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.StorageKey())
	}

	s.mu.RLock()
	row, found := s.rows[key]
	s.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.StorageKey(), key)
	}
	return s.decode(row)
}

// FindMany returns every entity in insertion order; the query is ignored
func (s *Memory) FindMany(ctx context.Context, _ url.Values) (*model.Collection[*model.Model], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := make([][]byte, 0, len(s.order))
	for _, key := range s.order {
		rows = append(rows, s.rows[key])
	}
	s.mu.RUnlock()

	items := make([]*model.Model, 0, len(rows))
	for _, row := range rows {
		m, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return model.NewCollection(items...), nil
}

// SaveOne inserts or replaces the entity
func (s *Memory) SaveOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}
	row, err := encode(m)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[key]; !exists {
		s.order = append(s.order, key)
	}
	s.rows[key] = row
	return m, nil
}

// DeleteOne removes the entity
func (s *Memory) DeleteOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[key]; !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.StorageKey(), key)
	}
	delete(s.rows, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return m, nil
}

// HasOne reports whether the entity is stored
func (s *Memory) HasOne(ctx context.Context, m *model.Model) bool {
	if ctx.Err() != nil {
		return false
	}
	key, err := s.Key(m)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.rows[key]
	return exists
}

// Len returns the number of stored entities
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Memory) decode(row []byte) (*model.Model, error) {
	v, err := schema.ParseJSON(row)
	if err != nil {
		return nil, err
	}
	return s.Hydrate(v)
}

// encode renders the write payload of m
func encode(m *model.Model) ([]byte, error) {
	payload, err := m.Payload()
	if err != nil {
		return nil, err
	}
	return payload.MarshalJSON()
}
