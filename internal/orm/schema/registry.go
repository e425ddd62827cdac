package schema

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultRegistry is the process-wide registry used by Define.
// Populate it during startup; it is read-only once the first model is hydrated.
var DefaultRegistry = NewRegistry()

// Registry manages the field declarations and assembled metadata of model classes
type Registry struct {
	classes  []*Class
	fields   map[*Class][]*Field
	byKey    map[string]*Class
	metadata map[*Class]*Metadata
	frozen   bool
	mu       sync.RWMutex
}

// NewRegistry creates a new, empty registry
func NewRegistry() *Registry {
	return &Registry{
		fields:   make(map[*Class][]*Field),
		byKey:    make(map[string]*Class),
		metadata: make(map[*Class]*Metadata),
	}
}

// Define registers a new model class in the default registry
func Define(name string, opts ...Option) (*Class, error) {
	return DefaultRegistry.Define(name, opts...)
}

// MustDefine is Define for package-level declarations; it panics on configuration errors
func MustDefine(name string, opts ...Option) *Class {
	return DefaultRegistry.MustDefine(name, opts...)
}

// MustDefine is Define that panics on configuration errors
func (r *Registry) MustDefine(name string, opts ...Option) *Class {
	class, err := r.Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return class
}

// Define registers a new model class with its fields and relations.
// The class is validated immediately: a concrete class without exactly one
// primary field, or with a storage key already in use, is rejected.
func (r *Registry) Define(name string, opts ...Option) (*Class, error) {
	def := &definition{}
	for _, opt := range opts {
		opt(def)
	}

	if strings.TrimSpace(name) == "" {
		return nil, &ConfigurationError{Class: "<anonymous>", Reason: "class name is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, &ConfigurationError{Class: name, Reason: "cannot define class", Err: ErrFrozen}
	}

	if def.parent != nil && def.parent.registry != r {
		return nil, &ConfigurationError{Class: name, Reason: fmt.Sprintf("parent %s belongs to another registry", def.parent.name)}
	}

	key := def.storageKey
	if key == "" && !def.abstract {
		key = defaultStorageKey(name)
	}
	if key != "" {
		if existing, taken := r.byKey[key]; taken {
			return nil, &ConfigurationError{
				Class:  name,
				Reason: fmt.Sprintf("storage key %q is already used by %s", key, existing.name),
			}
		}
	}

	class := &Class{
		name:       name,
		parent:     def.parent,
		storageKey: key,
		abstract:   def.abstract,
		chooser:    def.chooser,
		registry:   r,
	}

	r.fields[class] = nil
	for _, f := range def.fields {
		r.registerLocked(class, f)
	}

	// Fail fast: a concrete class must assemble before anyone can use it
	if !def.abstract {
		if _, err := r.assembleLocked(class); err != nil {
			delete(r.fields, class)
			delete(r.metadata, class)
			return nil, err
		}
	}

	r.classes = append(r.classes, class)
	if key != "" {
		r.byKey[key] = class
	}

	return class, nil
}

// Register adds a field declaration to a class. Registering a field name the
// class already declares is a no-op, so repeated class loading is harmless.
func (r *Registry) Register(class *Class, fieldName string, field Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return &ConfigurationError{Class: class.name, Reason: "cannot register field " + fieldName, Err: ErrFrozen}
	}
	if _, known := r.fields[class]; !known {
		return &ConfigurationError{Class: class.name, Reason: "class is not registered"}
	}

	field.Name = fieldName
	if field.Relation != nil && field.Relation.FieldName == "" {
		field.Relation.FieldName = fieldName
	}
	r.registerLocked(class, &field)

	// Assembled metadata of the class and its descendants is stale now
	for memo := range r.metadata {
		if memo.Is(class) {
			delete(r.metadata, memo)
		}
	}
	return nil
}

func (r *Registry) registerLocked(class *Class, field *Field) {
	for _, existing := range r.fields[class] {
		if existing.Name == field.Name {
			return
		}
	}
	r.fields[class] = append(r.fields[class], field)
}

// Metadata returns the assembled metadata of class: ancestor fields first, in
// declaration order, followed by the class's own. The result is memoized.
func (r *Registry) Metadata(class *Class) (*Metadata, error) {
	r.mu.RLock()
	md, ok := r.metadata[class]
	r.mu.RUnlock()
	if ok {
		return md, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assembleLocked(class)
}

func (r *Registry) assembleLocked(class *Class) (*Metadata, error) {
	if md, ok := r.metadata[class]; ok {
		return md, nil
	}
	if _, known := r.fields[class]; !known {
		return nil, &ConfigurationError{Class: class.name, Reason: "class is not registered"}
	}

	// Walk from the root ancestor down to class
	var chain []*Class
	for k := class; k != nil; k = k.parent {
		chain = append([]*Class{k}, chain...)
	}

	fields := make([]*Field, 0)
	position := make(map[string]int)
	for _, k := range chain {
		for _, f := range r.fields[k] {
			if i, seen := position[f.Name]; seen {
				// A subclass redeclaring a field overrides it in place
				fields[i] = f
				continue
			}
			position[f.Name] = len(fields)
			fields = append(fields, f)
		}
	}

	var primaries []*Field
	for _, f := range fields {
		if f.Primary {
			primaries = append(primaries, f)
		}
	}
	switch {
	case len(primaries) == 0:
		return nil, &ConfigurationError{Class: class.name, Reason: "no primary field declared"}
	case len(primaries) > 1:
		names := make([]string, len(primaries))
		for i, f := range primaries {
			names[i] = f.Name
		}
		return nil, &ConfigurationError{
			Class:  class.name,
			Reason: fmt.Sprintf("multiple primary fields declared: %s", strings.Join(names, ", ")),
		}
	}
	if primaries[0].IsRelation() {
		return nil, &ConfigurationError{Class: class.name, Reason: "primary field cannot be a relation"}
	}

	md := &Metadata{
		Class:      class,
		StorageKey: class.storageKey,
		Primary:    primaries[0],
		Fields:     fields,
	}
	r.metadata[class] = md
	return md, nil
}

// Freeze rejects any further definitions or registrations
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether the registry has been frozen
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Classes returns all classes in definition order
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Class, len(r.classes))
	copy(out, r.classes)
	return out
}

// Lookup finds a class by storage key
func (r *Registry) Lookup(storageKey string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	class, ok := r.byKey[storageKey]
	return class, ok
}
