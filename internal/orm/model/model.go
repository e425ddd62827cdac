// Package model hydrates raw payloads into relation-aware model instances
// using the metadata registered in package schema.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/ubiquits/ubiquits/internal/orm/relationships"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

var (
	// ErrUnknownField is returned when a field name is not declared on the class
	ErrUnknownField = errors.New("unknown field")

	// ErrRelationValue is returned when a relation field is assigned a value of the wrong type
	ErrRelationValue = errors.New("invalid relation value")

	// ErrCycle is returned when serializing a model graph that references itself
	ErrCycle = errors.New("model graph contains a cycle")
)

// Model is a hydrated entity. It is plain data: not safe for concurrent
// mutation, and persistence is the job of a store.
type Model struct {
	class  *schema.Class
	meta   *schema.Metadata
	values map[string]any
}

// New hydrates an instance of class from raw. A chooser installed on class may
// pick a subclass. Unknown keys in raw are ignored.
func New(class *schema.Class, raw schema.Value) (*Model, error) {
	if !raw.IsMissing() && raw.Kind() != schema.KindMapping {
		return nil, &schema.ShapeMismatchError{Field: class.Name(), Expected: schema.KindMapping, Actual: raw.Kind()}
	}

	concrete, err := class.Concrete(raw)
	if err != nil {
		return nil, err
	}
	meta, err := concrete.Metadata()
	if err != nil {
		return nil, err
	}

	m := &Model{
		class:  concrete,
		meta:   meta,
		values: make(map[string]any, len(meta.Fields)),
	}

	for _, f := range meta.Fields {
		if err := m.hydrateField(f, raw.Get(f.Name)); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Hydrate is New for plain Go data such as a decoded map[string]any
func Hydrate(class *schema.Class, raw map[string]any) (*Model, error) {
	v, err := schema.ValueOf(raw)
	if err != nil {
		return nil, err
	}
	return New(class, v)
}

// Build creates a new, not yet persisted entity with only its defaults set
func Build(class *schema.Class) (*Model, error) {
	return New(class, schema.Value{})
}

// MustNew is New for fixtures; it panics on error
func MustNew(class *schema.Class, raw schema.Value) *Model {
	m, err := New(class, raw)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) hydrateField(f *schema.Field, raw schema.Value) error {
	if f.IsRelation() {
		res, ok, err := relationships.Resolve[*Model](f, raw, New)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if res.Kind == schema.ToMany {
			m.values[f.Name] = NewCollection(res.Many...)
		} else {
			m.values[f.Name] = res.One
		}
		return nil
	}

	switch {
	case raw.IsUndefined():
		if f.HasDefault {
			m.values[f.Name] = f.DefaultValue()
		}
	case raw.IsNull():
		m.values[f.Name] = nil
	case f.Coerce != nil:
		v, err := f.Coerce(raw)
		if err != nil {
			return &schema.CoercionError{Field: f.Name, Raw: raw, Err: err}
		}
		m.values[f.Name] = v
	default:
		m.values[f.Name] = raw.Interface()
	}
	return nil
}

// Class returns the concrete class of the instance
func (m *Model) Class() *schema.Class { return m.class }

// Metadata returns the metadata of the concrete class
func (m *Model) Metadata() *schema.Metadata { return m.meta }

// Identifier returns the value of the primary field. ok is false while the
// entity has no identifier, e.g. before it is persisted.
func (m *Model) Identifier() (any, bool) {
	v, ok := m.values[m.meta.Primary.Name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// SetIdentifier assigns the primary field
func (m *Model) SetIdentifier(id any) {
	m.values[m.meta.Primary.Name] = id
}

// Get returns the value of a set field
func (m *Model) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether the field is set
func (m *Model) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Set assigns a declared field. Relation fields accept *Model (to-one) or
// *Collection[*Model] (to-many); nil clears the relation.
func (m *Model) Set(name string, v any) error {
	f, ok := m.meta.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.class.Name(), name)
	}

	if f.IsRelation() && v != nil {
		switch f.Relation.Kind {
		case schema.ToOne:
			if _, ok := v.(*Model); !ok {
				return fmt.Errorf("%w: %s expects *Model, got %T", ErrRelationValue, name, v)
			}
		case schema.ToMany:
			if _, ok := v.(*Collection[*Model]); !ok {
				return fmt.Errorf("%w: %s expects *Collection[*Model], got %T", ErrRelationValue, name, v)
			}
		}
	}

	if f.IsRelation() && v == nil {
		delete(m.values, name)
		return nil
	}
	m.values[name] = v
	return nil
}

// Unset removes a field value
func (m *Model) Unset(name string) {
	delete(m.values, name)
}

// GetString returns a field as a string, or "" when unset or not a string
func (m *Model) GetString(name string) string {
	switch v := m.values[name].(type) {
	case string:
		return v
	case UUID:
		return string(v)
	default:
		return ""
	}
}

// GetTime returns a coerced date field
func (m *Model) GetTime(name string) (time.Time, bool) {
	t, ok := m.values[name].(time.Time)
	return t, ok
}

// One returns a to-one relation
func (m *Model) One(name string) (*Model, bool) {
	v, ok := m.values[name].(*Model)
	return v, ok
}

// Many returns a to-many relation
func (m *Model) Many(name string) (*Collection[*Model], bool) {
	v, ok := m.values[name].(*Collection[*Model])
	return v, ok
}

// Payload returns the write payload: every set primitive field in
// declaration order. Relations are never included.
func (m *Model) Payload() (schema.Value, error) {
	out := schema.NewMapping()
	for _, f := range m.meta.Attributes() {
		v, ok := m.values[f.Name]
		if !ok {
			continue
		}
		pv, err := schema.ValueOf(v)
		if err != nil {
			return schema.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out.Set(f.Name, pv)
	}
	return schema.MappingValue(out), nil
}

// Graph returns the full representation of the instance including nested relations
func (m *Model) Graph() (schema.Value, error) {
	return m.graph(make(map[*Model]bool))
}

func (m *Model) graph(visiting map[*Model]bool) (schema.Value, error) {
	if visiting[m] {
		return schema.Value{}, fmt.Errorf("%w at %s", ErrCycle, m.class.Name())
	}
	visiting[m] = true
	defer delete(visiting, m)

	out := schema.NewMapping()
	for _, f := range m.meta.Fields {
		v, ok := m.values[f.Name]
		if !ok {
			continue
		}

		var (
			pv  schema.Value
			err error
		)
		switch rel := v.(type) {
		case *Model:
			pv, err = rel.graph(visiting)
		case *Collection[*Model]:
			items := make([]schema.Value, 0, rel.Len())
			for item := range rel.All() {
				iv, ierr := item.graph(visiting)
				if ierr != nil {
					return schema.Value{}, ierr
				}
				items = append(items, iv)
			}
			pv = schema.SequenceValue(items...)
		default:
			pv, err = schema.ValueOf(v)
		}
		if err != nil {
			return schema.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out.Set(f.Name, pv)
	}
	return schema.MappingValue(out), nil
}

// MarshalJSON encodes the full representation, relations included
func (m *Model) MarshalJSON() ([]byte, error) {
	v, err := m.Graph()
	if err != nil {
		return nil, err
	}
	return v.MarshalJSON()
}
