// Package schema provides the metadata registry for models: field descriptors,
// relation descriptors, value coercion and the process-wide class registry that
// hydration and the stores read from.
package schema

import (
	"fmt"
	"reflect"

	"github.com/jinzhu/inflection"
)

// RelationKind represents the cardinality of a relation
type RelationKind int

const (
	// ToOne yields a single related model
	ToOne RelationKind = iota
	// ToMany yields an ordered collection of related models
	ToMany
)

// String returns the string representation of the relation kind
func (k RelationKind) String() string {
	switch k {
	case ToOne:
		return "has_one"
	case ToMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Relation describes an association from one model class to another.
// Target is invoked lazily during hydration so that classes may reference
// each other regardless of declaration order.
type Relation struct {
	Kind      RelationKind
	Target    func() *Class
	FieldName string
}

// Resolve invokes the deferred target reference
func (r *Relation) Resolve() (*Class, error) {
	if r.Target == nil {
		return nil, &ConfigurationError{Class: r.FieldName, Reason: "relation has no target"}
	}
	target := r.Target()
	if target == nil {
		return nil, &ConfigurationError{Class: r.FieldName, Reason: "relation target resolved to nil"}
	}
	return target, nil
}

// Coercion converts a present, non-null raw value into its canonical in-memory form
type Coercion func(Value) (any, error)

// Field describes a single declared model field
type Field struct {
	Name        string
	Primary     bool
	Coerce      Coercion
	Default     any
	HasDefault  bool
	DefaultFunc func() any // builds the default of each instance when set
	Relation    *Relation
}

// DefaultValue returns the default for a new instance. Maps and slices are
// copied, so instances never share a mutable default.
func (f *Field) DefaultValue() any {
	if f.DefaultFunc != nil {
		return f.DefaultFunc()
	}
	if f.Default == nil {
		return nil
	}
	return clone(reflect.ValueOf(f.Default)).Interface()
}

func clone(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(clone(v.Elem()))
		return out
	}
	return v
}

// IsRelation returns true if the field is a relation rather than a primitive
func (f *Field) IsRelation() bool {
	return f.Relation != nil
}

// FieldOption configures a Field
type FieldOption func(*Field)

// Default declares the value assigned when the payload omits the field
func Default(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

// DefaultFunc declares a constructor called once per instance whose payload
// omits the field
func DefaultFunc(fn func() any) FieldOption {
	return func(f *Field) {
		f.DefaultFunc = fn
		f.HasDefault = true
	}
}

// Coerce declares the transform applied to present raw values
func Coerce(fn Coercion) FieldOption {
	return func(f *Field) {
		f.Coerce = fn
	}
}

// Class is a registered model type. Identity is the pointer: two classes with
// the same name are still distinct.
type Class struct {
	name       string
	parent     *Class
	storageKey string
	abstract   bool
	chooser    func(Value) (*Class, error)
	registry   *Registry
}

// Name returns the class name
func (c *Class) Name() string { return c.name }

// Parent returns the class this one extends, if any
func (c *Class) Parent() *Class { return c.parent }

// StorageKey returns the stable collection name of the class
func (c *Class) StorageKey() string { return c.storageKey }

// IsAbstract reports whether the class only exists to be extended
func (c *Class) IsAbstract() bool { return c.abstract }

// Registry returns the registry the class was defined in
func (c *Class) Registry() *Registry { return c.registry }

// Metadata returns the assembled metadata of the class
func (c *Class) Metadata() (*Metadata, error) {
	return c.registry.Metadata(c)
}

// Is reports whether c is other or extends it
func (c *Class) Is(other *Class) bool {
	for k := c; k != nil; k = k.parent {
		if k == other {
			return true
		}
	}
	return false
}

// Concrete returns the class to instantiate for raw. Without a chooser this is
// always c; a chooser may select a subclass of c.
func (c *Class) Concrete(raw Value) (*Class, error) {
	if c.chooser == nil {
		return c, nil
	}
	chosen, err := c.chooser(raw)
	if err != nil {
		return nil, &ConfigurationError{Class: c.name, Reason: "cannot choose concrete class", Err: err}
	}
	if chosen == nil {
		return c, nil
	}
	if !chosen.Is(c) {
		return nil, &ConfigurationError{
			Class:  c.name,
			Reason: fmt.Sprintf("chosen class %s does not extend %s", chosen.name, c.name),
		}
	}
	return chosen, nil
}

// String returns the class name
func (c *Class) String() string { return c.name }

// Metadata is the assembled, read-only description of a class
type Metadata struct {
	Class      *Class
	StorageKey string
	Primary    *Field
	Fields     []*Field
}

// Field returns the descriptor for name
func (m *Metadata) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Relations returns the relation fields in declaration order
func (m *Metadata) Relations() []*Field {
	out := make([]*Field, 0)
	for _, f := range m.Fields {
		if f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// Attributes returns the primitive fields in declaration order
func (m *Metadata) Attributes() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if !f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// defaultStorageKey derives the plural snake_case storage key from a class name
func defaultStorageKey(name string) string {
	return inflection.Plural(toSnakeCase(name))
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			// boundaries: "handModel" -> "hand_model", "HTTPServer" -> "http_server"
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
