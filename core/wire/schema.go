package wire

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind is the primitive type of a field.
type Kind string

const (
	KindString Kind = "string" // length-delimited UTF-8
	KindUint64 Kind = "uint64" // varint
	KindBool   Kind = "bool"   // varint 0 or 1
)

// kindAliases maps alternative spellings accepted in schema files.
var kindAliases = map[string]Kind{
	"string":        KindString,
	"uint64":        KindUint64,
	"varint_uint64": KindUint64,
	"bool":          KindBool,
}

// ParseKind resolves a kind name, including accepted aliases.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidSchema, s)
	}
	return k, nil
}

// WireType returns the wire type written in the field's tag.
func (k Kind) WireType() protowire.Type {
	if k == KindString {
		return protowire.BytesType
	}
	return protowire.VarintType
}

// Zero returns the zero value of the kind.
func (k Kind) Zero() any {
	switch k {
	case KindUint64:
		return uint64(0)
	case KindBool:
		return false
	default:
		return ""
	}
}

// FieldSchema describes one field of a message.
// Field numbers are part of the wire contract and must never be reused.
type FieldSchema struct {
	Number int32
	Name   string
	Kind   Kind
}

// MessageSchema describes one message variant. It is immutable once
// constructed; the zero value is not usable.
type MessageSchema struct {
	name     string
	fields   []FieldSchema
	byNumber map[protowire.Number]int
	byName   map[string]int
}

// NewMessageSchema validates fields and returns a schema with fields sorted
// by number.
func NewMessageSchema(name string, fields ...FieldSchema) (MessageSchema, error) {
	var errs []string

	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		errs = append(errs, "message name is required")
	}

	sorted := make([]FieldSchema, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	s := MessageSchema{
		name:     name,
		fields:   sorted,
		byNumber: make(map[protowire.Number]int, len(sorted)),
		byName:   make(map[string]int, len(sorted)),
	}

	for i, f := range sorted {
		num := protowire.Number(f.Number)
		if !num.IsValid() {
			errs = append(errs, fmt.Sprintf("field %q: invalid field number %d", f.Name, f.Number))
		}
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("field %d: name is required", f.Number))
		}
		switch f.Kind {
		case KindString, KindUint64, KindBool:
		default:
			errs = append(errs, fmt.Sprintf("field %q: unsupported kind %q", f.Name, f.Kind))
		}
		if prev, dup := s.byNumber[num]; dup {
			errs = append(errs, fmt.Sprintf("field %q: number %d already used by %q", f.Name, f.Number, sorted[prev].Name))
		}
		if prev, dup := s.byName[f.Name]; dup {
			errs = append(errs, fmt.Sprintf("field %q: name already used by field %d", f.Name, sorted[prev].Number))
		}
		s.byNumber[num] = i
		s.byName[f.Name] = i
	}

	if len(errs) > 0 {
		return MessageSchema{}, fmt.Errorf("%w: %s:\n  - %s", ErrInvalidSchema, name, strings.Join(errs, "\n  - "))
	}
	return s, nil
}

// Name returns the fully qualified message name.
func (s MessageSchema) Name() string { return s.name }

// TypeURL returns the name in Any type URL form ("/" + name).
func (s MessageSchema) TypeURL() string { return "/" + s.name }

// Fields returns a copy of the fields in ascending number order.
func (s MessageSchema) Fields() []FieldSchema {
	out := make([]FieldSchema, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s MessageSchema) Field(name string) (FieldSchema, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSchema{}, false
	}
	return s.fields[i], true
}

// Zero returns a Value with every field at its zero value.
func (s MessageSchema) Zero() Value {
	v := make(Value, len(s.fields))
	for _, f := range s.fields {
		v[f.Name] = f.Kind.Zero()
	}
	return v
}
