package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// maxEpochMillis bounds millisecond timestamps to +/-100,000,000 days around the epoch
const maxEpochMillis = 8.64e15

// CastDate converts an ISO-8601 string, or a millisecond epoch number, to a time.Time.
// RFC 3339 is tried first; anything else goes through the layouts known to jinzhu/now.
func CastDate(v Value) (any, error) {
	if ms, ok := v.AsNumber(); ok {
		if math.IsNaN(ms) || math.Abs(ms) > maxEpochMillis || ms != math.Trunc(ms) {
			return nil, fmt.Errorf("timestamp out of range: %v", ms)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("expected string or number, got %s", v.Kind())
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty date string")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := utcParser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("unparsable date %q", s)
	}
	return t, nil
}

// utcParser reads zone-less layouts as UTC rather than the host's zone
var utcParser = &now.Config{TimeLocation: time.UTC}

// CastDecimal converts a number or numeric string to a decimal.Decimal without
// passing through float64
func CastDecimal(v Value) (any, error) {
	text, ok := v.NumberText()
	if !ok {
		text, ok = v.AsString()
	}
	if !ok {
		return nil, fmt.Errorf("expected number or string, got %s", v.Kind())
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CastInt converts an integral number or numeric string to int64
func CastInt(v Value) (any, error) {
	text, ok := v.NumberText()
	if !ok {
		text, ok = v.AsString()
	}
	if !ok {
		return nil, fmt.Errorf("expected number or string, got %s", v.Kind())
	}
	i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", text)
	}
	return i, nil
}

// CastFloat converts a number or numeric string to float64
func CastFloat(v Value) (any, error) {
	if f, ok := v.AsNumber(); ok {
		return f, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("expected number or string, got %s", v.Kind())
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// CastBool accepts booleans and the strings understood by strconv.ParseBool
func CastBool(v Value) (any, error) {
	if b, ok := v.AsBool(); ok {
		return b, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("expected bool or string, got %s", v.Kind())
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not a boolean: %q", s)
	}
	return b, nil
}

// CastString accepts strings, and renders numbers and booleans as text
func CastString(v Value) (any, error) {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s, nil
	case KindNumber:
		s, _ := v.NumberText()
		return s, nil
	case KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), nil
	default:
		return nil, fmt.Errorf("expected scalar, got %s", v.Kind())
	}
}
