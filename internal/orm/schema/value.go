package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind identifies the variant held by a Value
type Kind int

const (
	// KindUndefined is the zero Kind: the key was not present at all
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a semi-structured payload value. The zero Value is undefined,
// which is how a missing mapping key reads.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	seq  []Value
	m    *Mapping
}

// NullValue returns an explicit null
func NullValue() Value { return Value{kind: KindNull} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps a float
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

// IntValue wraps an integer without going through float64
func IntValue(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// SequenceValue wraps an ordered list of values
func SequenceValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// MappingValue wraps a mapping; a nil mapping becomes an empty one
func MappingValue(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}
	return Value{kind: KindMapping, m: m}
}

// Kind reports which variant the value holds
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether the value is absent
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull reports whether the value is an explicit null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMissing reports whether the value is undefined or null
func (v Value) IsMissing() bool { return v.kind == KindUndefined || v.kind == KindNull }

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload as a float
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// NumberText returns the literal text of a number, preserving precision
func (v Value) NumberText() (string, bool) { return string(v.num), v.kind == KindNumber }

// AsSequence returns the items of a sequence
func (v Value) AsSequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }

// AsMapping returns the mapping payload
func (v Value) AsMapping() (*Mapping, bool) { return v.m, v.kind == KindMapping }

// Get reads a key of a mapping value; any other kind yields undefined
func (v Value) Get(key string) Value {
	if v.kind != KindMapping {
		return Value{}
	}
	return v.m.Get(key)
}

// Interface converts the value to plain Go data: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, _ := v.AsNumber()
		return f
	case KindString:
		return v.str
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.keys {
			out[k] = v.m.values[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders the value as JSON text, for messages
func (v Value) String() string {
	if v.kind == KindUndefined {
		return "undefined"
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}

// MarshalJSON encodes the value; mapping keys keep their insertion order.
// Undefined encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindUndefined, KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(string(v.num))
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, k := range v.m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.m.values[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes JSON text into the value
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseJSON decodes a single JSON document
func ParseJSON(data []byte) (Value, error) {
	return DecodeJSON(bytes.NewReader(data))
}

// DecodeJSON decodes a single JSON document from r, keeping object key order
func DecodeJSON(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("unexpected data after JSON document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return Value{kind: KindNumber, num: t}, nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return SequenceValue(items...), nil
		case '{':
			m := NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("invalid object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return MappingValue(m), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// ValueOf converts plain Go data into a Value. Types outside the JSON data
// model are converted through their JSON encoding.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case *Mapping:
		return MappingValue(t), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case float64:
		return NumberValue(t), nil
	case json.Number:
		return Value{kind: KindNumber, num: t}, nil
	case []Value:
		return SequenceValue(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return SequenceValue(items...), nil
	case map[string]any:
		m := NewMapping()
		for _, k := range sortedKeys(t) {
			v, err := ValueOf(t[k])
			if err != nil {
				return Value{}, err
			}
			m.Set(k, v)
		}
		return MappingValue(m), nil
	}

	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("cannot convert %T to a payload value: %w", x, err)
	}
	return ParseJSON(b)
}

// MustValueOf is ValueOf for literals in tests and fixtures
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}
