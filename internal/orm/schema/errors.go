package schema

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned when a frozen registry is asked to change
var ErrFrozen = errors.New("registry is frozen")

// ConfigurationError reports a model declaration that cannot be used:
// a missing primary field, a duplicate storage key, an unresolvable relation target.
type ConfigurationError struct {
	Class  string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("model %s: %s", e.Class, e.Reason)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error { return e.Err }

// CoercionError reports a raw field value that could not be converted to its canonical type
type CoercionError struct {
	Field string
	Raw   Value
	Err   error
}

// Error implements the error interface
func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce field %s from %s: %v", e.Field, e.Raw, e.Err)
}

// Unwrap returns the underlying error
func (e *CoercionError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a payload whose shape disagrees with the declared relation kind
type ShapeMismatchError struct {
	Field    string
	Expected Kind
	Actual   Kind
}

// Error implements the error interface
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("field %s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsHydrationError returns true if err stems from payload data that does not
// match the declared schema
func IsHydrationError(err error) bool {
	var coercion *CoercionError
	var shape *ShapeMismatchError
	return errors.As(err, &coercion) || errors.As(err, &shape)
}
