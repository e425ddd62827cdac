package model

import (
	"encoding/json"
	"iter"
)

// Identifiable is anything with an identifier
type Identifiable interface {
	Identifier() (any, bool)
}

// Collection is an ordered list of models. Lookups scan the current members,
// so there is no index to go stale after mutation.
type Collection[T Identifiable] struct {
	items []T
}

// NewCollection creates a collection holding items in order
func NewCollection[T Identifiable](items ...T) *Collection[T] {
	c := &Collection[T]{items: make([]T, 0, len(items))}
	c.items = append(c.items, items...)
	return c
}

// Len returns the number of members
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the member at index i; it panics when i is out of range
func (c *Collection[T]) At(i int) T { return c.items[i] }

// Items returns a copy of the members
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// All iterates the members in order. The sequence can be ranged over any
// number of times.
func (c *Collection[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range c.items {
			if !yield(item) {
				return
			}
		}
	}
}

// FindByIdentifier returns the first member whose identifier matches id
func (c *Collection[T]) FindByIdentifier(id any) (T, bool) {
	for _, item := range c.items {
		if current, ok := item.Identifier(); ok && SameIdentifier(current, id) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Append adds members to the end
func (c *Collection[T]) Append(items ...T) {
	c.items = append(c.items, items...)
}

// Remove deletes the member at index i and returns it
func (c *Collection[T]) Remove(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(c.items) {
		return zero, false
	}
	item := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	return item, true
}

// MarshalJSON encodes the members as a JSON array
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.items)
}
