// Package relationships resolves declared model relations: it turns nested raw
// payloads into related model instances and analyses the relation graph of a registry.
package relationships

import (
	"fmt"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Hydrator builds an instance of class from a raw mapping payload
type Hydrator[T any] func(class *schema.Class, raw schema.Value) (T, error)

// Resolved holds the outcome of resolving one relation field
type Resolved[T any] struct {
	Kind schema.RelationKind
	One  T
	Many []T
}

// Resolve hydrates the raw value of a relation field. ok is false when the
// payload carries no value for the relation (absent or null), in which case the
// field stays unset. An empty sequence is an explicit empty result.
func Resolve[T any](field *schema.Field, raw schema.Value, hydrate Hydrator[T]) (Resolved[T], bool, error) {
	var res Resolved[T]

	if field.Relation == nil {
		return res, false, fmt.Errorf("%w: %s", ErrNotARelation, field.Name)
	}
	res.Kind = field.Relation.Kind

	if raw.IsMissing() {
		return res, false, nil
	}

	switch field.Relation.Kind {
	case schema.ToOne:
		if raw.Kind() != schema.KindMapping {
			return res, false, &schema.ShapeMismatchError{Field: field.Name, Expected: schema.KindMapping, Actual: raw.Kind()}
		}
		target, err := field.Relation.Resolve()
		if err != nil {
			return res, false, err
		}
		one, err := hydrate(target, raw)
		if err != nil {
			return res, false, fmt.Errorf("relation %s: %w", field.Name, err)
		}
		res.One = one
		return res, true, nil

	case schema.ToMany:
		items, ok := raw.AsSequence()
		if !ok {
			return res, false, &schema.ShapeMismatchError{Field: field.Name, Expected: schema.KindSequence, Actual: raw.Kind()}
		}
		target, err := field.Relation.Resolve()
		if err != nil {
			return res, false, err
		}
		res.Many = make([]T, 0, len(items))
		for i, item := range items {
			if item.Kind() != schema.KindMapping {
				return res, false, &schema.ShapeMismatchError{
					Field:    fmt.Sprintf("%s[%d]", field.Name, i),
					Expected: schema.KindMapping,
					Actual:   item.Kind(),
				}
			}
			one, err := hydrate(target, item)
			if err != nil {
				return res, false, fmt.Errorf("relation %s[%d]: %w", field.Name, i, err)
			}
			res.Many = append(res.Many, one)
		}
		return res, true, nil

	default:
		return res, false, fmt.Errorf("%w: %s", ErrInvalidRelationType, field.Relation.Kind)
	}
}
