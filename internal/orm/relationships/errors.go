package relationships

import "errors"

var (
	// ErrNotARelation is returned when a primitive field is resolved as a relation
	ErrNotARelation = errors.New("field is not a relation")

	// ErrInvalidRelationType is returned when an invalid relationship type is encountered
	ErrInvalidRelationType = errors.New("invalid relationship type")
)
