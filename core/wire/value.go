package wire

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Value holds the fields of one message keyed by field name.
// Canonical Go types are string, uint64 and bool. A missing key means the
// field holds its zero value.
type Value map[string]any

// String returns a string field, or "" when absent or not a string.
func (v Value) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Uint64 returns an unsigned integer field, or 0 when absent.
func (v Value) Uint64(name string) uint64 {
	n, _ := v[name].(uint64)
	return n
}

// Bool returns a boolean field, or false when absent.
func (v Value) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Clone returns a shallow copy; values are immutable scalars.
func (v Value) Clone() Value {
	out := make(Value, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Normalize converts v into canonical form: every schema field present with
// its canonical Go type. It rejects unknown keys and values that do not fit.
// The input is never modified.
func (s MessageSchema) Normalize(v Value) (Value, error) {
	for key := range v {
		if _, ok := s.byName[key]; !ok {
			return nil, &FieldError{Message: s.name, Field: key, Err: ErrUnknownField}
		}
	}

	out := make(Value, len(s.fields))
	for _, f := range s.fields {
		raw, ok := v[f.Name]
		if !ok || raw == nil {
			out[f.Name] = f.Kind.Zero()
			continue
		}
		x, err := canonical(f.Kind, raw)
		if err != nil {
			return nil, s.fieldError(f, err)
		}
		out[f.Name] = x
	}
	return out, nil
}

func (s MessageSchema) fieldError(f FieldSchema, err error) error {
	if fe, ok := err.(*FieldError); ok {
		fe.Message, fe.Field = s.name, f.Name
		return fe
	}
	return &FieldError{Message: s.name, Field: f.Name, Err: err}
}

// canonical converts a typed Go value to the kind's canonical type.
func canonical(k Kind, raw any) (any, error) {
	switch k {
	case KindString:
		str, ok := raw.(string)
		if !ok {
			return nil, &FieldError{Err: ErrFieldType, Detail: typeName(raw) + " is not a string"}
		}
		if !utf8.ValidString(str) {
			return nil, &FieldError{Err: ErrFieldType, Detail: "string is not valid UTF-8"}
		}
		return str, nil
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, &FieldError{Err: ErrFieldType, Detail: typeName(raw) + " is not a bool"}
		}
		return b, nil
	case KindUint64:
		return toUint64(raw)
	}
	return nil, &FieldError{Err: ErrFieldType, Detail: "unsupported kind " + string(k)}
}

// toUint64 accepts every Go integer type and integral floats.
func toUint64(raw any) (uint64, error) {
	neg := func() (uint64, error) {
		return 0, &FieldError{Err: ErrFieldRange, Detail: "negative value for unsigned field"}
	}
	switch n := raw.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case int:
		if n < 0 {
			return neg()
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return neg()
		}
		return uint64(n), nil
	case int32:
		if n < 0 {
			return neg()
		}
		return uint64(n), nil
	case int16:
		if n < 0 {
			return neg()
		}
		return uint64(n), nil
	case int8:
		if n < 0 {
			return neg()
		}
		return uint64(n), nil
	case float64:
		return floatToUint64(n)
	case float32:
		return floatToUint64(float64(n))
	}
	return 0, &FieldError{Err: ErrFieldType, Detail: typeName(raw) + " is not an unsigned integer"}
}

func floatToUint64(f float64) (uint64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, &FieldError{Err: ErrFieldRange, Detail: "not a finite number"}
	case f < 0:
		return 0, &FieldError{Err: ErrFieldRange, Detail: "negative value for unsigned field"}
	case f != math.Trunc(f):
		return 0, &FieldError{Err: ErrFieldRange, Detail: "fractional value for integer field"}
	case f >= math.MaxUint64:
		return 0, &FieldError{Err: ErrFieldRange, Detail: "value exceeds 64 bits"}
	}
	return uint64(f), nil
}

func typeName(x any) string {
	switch x.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, float32:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", x)
}
