package schema

import "sort"

// Mapping is an insertion-ordered string-keyed map of values
type Mapping struct {
	keys   []string
	values map[string]Value
}

// NewMapping creates an empty mapping
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// Set stores a value, keeping the original position of an existing key
func (m *Mapping) Set(key string, v Value) *Mapping {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Get returns the value for key, or undefined
func (m *Mapping) Get(key string) Value {
	if m == nil {
		return Value{}
	}
	return m.values[key]
}

// Lookup returns the value for key and whether the key is present
func (m *Mapping) Lookup(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes a key
func (m *Mapping) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a shallow copy
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
