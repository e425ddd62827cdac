// Package store persists models. Every backend implements Store for one model
// class: the HTTP client store used by front-ends, and the memory, SQL and
// cached stores that back the server.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

var (
	// ErrNotFound is returned when no entity has the requested identifier
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write collides with an existing record
	ErrConflict = errors.New("record conflict")

	// ErrNoIdentifier is returned when an operation needs the identifier of a
	// model that has none
	ErrNoIdentifier = errors.New("model has no identifier")

	// ErrWrongClass is returned when a model of another class is passed to a store
	ErrWrongClass = errors.New("model class does not match store")
)

// Store is the CRUD facade for one model class. Query values are passed
// through to the backend untouched.
type Store interface {
	Class() *schema.Class
	FindOne(ctx context.Context, id any) (*model.Model, error)
	FindMany(ctx context.Context, query url.Values) (*model.Collection[*model.Model], error)
	// SaveOne writes the full model and returns the same reference
	SaveOne(ctx context.Context, m *model.Model) (*model.Model, error)
	// DeleteOne removes the model and returns the same reference
	DeleteOne(ctx context.Context, m *model.Model) (*model.Model, error)
	// HasOne reports whether the model exists; failures read as false
	HasOne(ctx context.Context, m *model.Model) bool
}

// Base carries what every store needs: the class it serves, its metadata and
// a logger scoped to the store.
type Base struct {
	class *schema.Class
	meta  *schema.Metadata
	log   logging.Logger
}

// NewBase resolves the metadata of class. Log entries go to the named source
// of logger; a nil logger discards them.
func NewBase(class *schema.Class, logger logging.Logger, source string) (Base, error) {
	if class == nil {
		return Base{}, &schema.ConfigurationError{Class: "<nil>", Reason: "store needs a model class"}
	}
	meta, err := class.Metadata()
	if err != nil {
		return Base{}, err
	}
	if meta.StorageKey == "" {
		return Base{}, &schema.ConfigurationError{Class: class.Name(), Reason: "abstract classes cannot be stored"}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return Base{
		class: class,
		meta:  meta,
		log:   logger.Source(source),
	}, nil
}

// Class returns the class served by the store
func (b Base) Class() *schema.Class { return b.class }

// StorageKey returns the collection name of the served class
func (b Base) StorageKey() string { return b.meta.StorageKey }

// Logger returns the store's scoped logger
func (b Base) Logger() logging.Logger { return b.log }

// Hydrate builds one model of the served class from a decoded payload
func (b Base) Hydrate(raw schema.Value) (*model.Model, error) {
	return model.New(b.class, raw)
}

// HydrateMany builds a collection from a decoded array payload, in order
func (b Base) HydrateMany(raw schema.Value) (*model.Collection[*model.Model], error) {
	items, ok := raw.AsSequence()
	if !ok {
		return nil, &schema.ShapeMismatchError{Field: b.meta.StorageKey, Expected: schema.KindSequence, Actual: raw.Kind()}
	}

	out := make([]*model.Model, 0, len(items))
	for i, item := range items {
		m, err := b.Hydrate(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", b.meta.StorageKey, i, err)
		}
		out = append(out, m)
	}
	return model.NewCollection(out...), nil
}

// Key returns the identifier key of m, checking that m belongs to the served class
func (b Base) Key(m *model.Model) (string, error) {
	if m == nil || !m.Class().Is(b.class) {
		return "", ErrWrongClass
	}
	id, _ := m.Identifier()
	key, ok := model.IdentifierKey(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoIdentifier, b.class.Name())
	}
	return key, nil
}

// LookupKey renders a requested identifier the way hydration stores it, by
// running it through the primary field's coercion first. Identifiers the
// coercion rejects are used as given. ok is false when id is undefined.
func (b Base) LookupKey(id any) (string, bool) {
	if coerce := b.meta.Primary.Coerce; coerce != nil && id != nil {
		if raw, err := schema.ValueOf(id); err == nil {
			if v, err := coerce(raw); err == nil {
				id = v
			}
		}
	}
	return model.IdentifierKey(id)
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
