package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// ToText returns the flat name→value mapping of v, omitting zero-valued
// fields like Encode does. Unsigned integers are rendered as decimal strings
// so they survive JSON transports without precision loss.
func (s MessageSchema) ToText(v Value) (map[string]any, error) {
	nv, err := s.Normalize(v)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		switch x := nv[f.Name].(type) {
		case string:
			if x != "" {
				out[f.Name] = x
			}
		case uint64:
			if x != 0 {
				out[f.Name] = strconv.FormatUint(x, 10)
			}
		case bool:
			if x {
				out[f.Name] = true
			}
		}
	}
	return out, nil
}

// FromText builds a Value from a JSON-like mapping. Every field is filled;
// fields missing from t take their zero value. A field is matched by its
// schema name or the snake_case form used by REST gateways. Keys the schema
// does not declare are ignored.
func (s MessageSchema) FromText(t map[string]any) (Value, error) {
	v := s.Zero()
	for _, f := range s.fields {
		raw, ok := t[f.Name]
		if !ok {
			raw, ok = t[snakeCase(f.Name)]
		}
		if !ok || raw == nil {
			continue
		}
		x, err := textToKind(f.Kind, raw)
		if err != nil {
			return nil, s.fieldError(f, err)
		}
		v[f.Name] = x
	}
	return v, nil
}

// MarshalJSON renders v through ToText.
func (s MessageSchema) MarshalJSON(v Value) ([]byte, error) {
	t, err := s.ToText(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

// UnmarshalJSON parses a JSON object through FromText. Numbers are decoded
// exactly, never via float64.
func (s MessageSchema) UnmarshalJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var t map[string]any
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%s: parse json: %w", s.name, err)
	}
	return s.FromText(t)
}

func textToKind(k Kind, raw any) (any, error) {
	switch k {
	case KindString:
		switch x := raw.(type) {
		case string:
			return canonical(k, x)
		case json.Number:
			return x.String(), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	case KindUint64:
		switch x := raw.(type) {
		case string:
			return parseDecimal(x)
		case json.Number:
			return parseDecimal(x.String())
		}
		return toUint64(raw)
	case KindBool:
		switch x := raw.(type) {
		case string:
			if x == "" {
				return false, nil
			}
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, &FieldError{Err: ErrFieldType, Detail: fmt.Sprintf("%q is not a bool", x)}
			}
			return b, nil
		}
	}
	return canonical(k, raw)
}

// parseDecimal parses decimal text into a uint64. "" is zero.
func parseDecimal(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return n, nil
	}

	// Distinguish "not a number" from "does not fit".
	r, ok := new(big.Rat).SetString(s)
	switch {
	case !ok:
		return 0, &FieldError{Err: ErrFieldType, Detail: fmt.Sprintf("%q is not a decimal integer", s)}
	case r.Sign() < 0:
		return 0, &FieldError{Err: ErrFieldRange, Detail: "negative value for unsigned field"}
	case !r.IsInt():
		return 0, &FieldError{Err: ErrFieldRange, Detail: "fractional value for integer field"}
	}
	return 0, &FieldError{Err: ErrFieldRange, Detail: fmt.Sprintf("%s exceeds 64 bits", s)}
}

// snakeCase converts lowerCamel names ("partnerId") to "partner_id".
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
