package wire

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decode parses b into a fully populated Value. Fields absent from b hold
// their zero value. Known fields are read according to their declared kind
// regardless of the wire type in the tag; unknown fields are skipped using
// the tag's wire type. The first error aborts decoding and no value is
// returned.
func (s MessageSchema) Decode(b []byte) (Value, error) {
	v := s.Zero()
	off := 0

	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, s.decodeError(off, "tag", n)
		}
		tagOff := off
		off += n

		i, known := s.byNumber[num]
		if !known {
			m, err := skipField(num, typ, b[off:])
			if err != nil {
				return nil, &DecodeError{Message: s.name, Offset: off, Reason: fmt.Sprintf("field %d: %v", num, err)}
			}
			off += m
			continue
		}

		f := s.fields[i]
		switch f.Kind {
		case KindString:
			raw, m := protowire.ConsumeBytes(b[off:])
			if m < 0 {
				return nil, s.decodeError(off, f.Name, m)
			}
			if !utf8.Valid(raw) {
				return nil, &DecodeError{Message: s.name, Offset: off, Reason: f.Name + ": invalid UTF-8"}
			}
			v[f.Name] = string(raw)
			off += m
		case KindUint64:
			x, m := protowire.ConsumeVarint(b[off:])
			if m < 0 {
				return nil, s.decodeError(off, f.Name, m)
			}
			v[f.Name] = x
			off += m
		case KindBool:
			x, m := protowire.ConsumeVarint(b[off:])
			if m < 0 {
				return nil, s.decodeError(off, f.Name, m)
			}
			v[f.Name] = protowire.DecodeBool(x)
			off += m
		default:
			return nil, &DecodeError{Message: s.name, Offset: tagOff, Reason: "unsupported kind " + string(f.Kind)}
		}
	}

	return v, nil
}

// skipField consumes the value of an unknown field. Groups are not part of
// the supported format and are rejected.
func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch typ {
	case protowire.VarintType, protowire.Fixed32Type, protowire.Fixed64Type, protowire.BytesType:
		n := protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported wire type %d", typ)
}

func (s MessageSchema) decodeError(off int, what string, code int) error {
	return &DecodeError{Message: s.name, Offset: off, Reason: fmt.Sprintf("%s: %v", what, protowire.ParseError(code))}
}
