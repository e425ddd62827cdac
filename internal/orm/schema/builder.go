package schema

// Option configures a class passed to Define
type Option func(*definition)

type definition struct {
	fields     []*Field
	parent     *Class
	storageKey string
	abstract   bool
	chooser    func(Value) (*Class, error)
}

// Primary declares the identifier field
func Primary(name string, opts ...FieldOption) Option {
	return func(d *definition) {
		f := &Field{Name: name, Primary: true}
		for _, opt := range opts {
			opt(f)
		}
		d.fields = append(d.fields, f)
	}
}

// Attr declares a primitive field
func Attr(name string, opts ...FieldOption) Option {
	return func(d *definition) {
		f := &Field{Name: name}
		for _, opt := range opts {
			opt(f)
		}
		d.fields = append(d.fields, f)
	}
}

// HasOne declares a to-one relation. target is only called during hydration.
func HasOne(name string, target func() *Class) Option {
	return relation(name, ToOne, target)
}

// HasMany declares a to-many relation. target is only called during hydration.
func HasMany(name string, target func() *Class) Option {
	return relation(name, ToMany, target)
}

func relation(name string, kind RelationKind, target func() *Class) Option {
	return func(d *definition) {
		d.fields = append(d.fields, &Field{
			Name: name,
			Relation: &Relation{
				Kind:      kind,
				Target:    target,
				FieldName: name,
			},
		})
	}
}

// Extends makes the class inherit every field of parent
func Extends(parent *Class) Option {
	return func(d *definition) {
		d.parent = parent
	}
}

// StorageKey overrides the derived storage key
func StorageKey(key string) Option {
	return func(d *definition) {
		d.storageKey = key
	}
}

// Abstract marks a class that is only extended, never stored; it needs
// neither a primary field nor a storage key.
func Abstract() Option {
	return func(d *definition) {
		d.abstract = true
	}
}

// Concrete installs a chooser that picks the class to instantiate from the
// raw payload. Returning nil keeps the requested class.
func Concrete(chooser func(Value) (*Class, error)) Option {
	return func(d *definition) {
		d.chooser = chooser
	}
}
