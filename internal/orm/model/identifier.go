package model

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// UUID is a string-backed identifier. Equality is plain string equality, so
// UUIDs work as map keys and compare equal to their text.
type UUID string

// NewUUID generates a random (version 4) UUID
func NewUUID() UUID {
	return UUID(uuid.NewString())
}

// ParseUUID validates s and returns its canonical lower-case form
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	return UUID(u.String()), nil
}

// String returns the UUID text
func (u UUID) String() string { return string(u) }

// CastUUID is a coercion that validates a string identifier
func CastUUID(v schema.Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("expected string, got %s", v.Kind())
	}
	return ParseUUID(s)
}

// IdentifierKey renders an identifier as the path segment and lookup key used
// by stores. ok is false when the identifier is undefined.
func IdentifierKey(id any) (string, bool) {
	var key string
	switch v := id.(type) {
	case nil:
		return "", false
	case string:
		key = v
	case UUID:
		key = string(v)
	case float64:
		key = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		key = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		key = strconv.Itoa(v)
	case int64:
		key = strconv.FormatInt(v, 10)
	case fmt.Stringer:
		key = v.String()
	default:
		key = fmt.Sprint(v)
	}
	return key, key != ""
}

// SameIdentifier compares two identifiers by their string value
func SameIdentifier(a, b any) bool {
	ka, ok := IdentifierKey(a)
	if !ok {
		return false
	}
	kb, ok := IdentifierKey(b)
	return ok && ka == kb
}
