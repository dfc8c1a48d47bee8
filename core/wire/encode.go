package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes v in ascending field order, omitting zero values.
// The value is validated in full before any byte is produced, so a failed
// Encode never returns partial output.
func (s MessageSchema) Encode(v Value) ([]byte, error) {
	nv, err := s.Normalize(v)
	if err != nil {
		return nil, err
	}

	var b []byte
	for _, f := range s.fields {
		b = appendField(b, f, nv[f.Name])
	}
	return b, nil
}

// Size returns the encoded length of v without allocating the output.
func (s MessageSchema) Size(v Value) (int, error) {
	nv, err := s.Normalize(v)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, f := range s.fields {
		num := protowire.Number(f.Number)
		switch x := nv[f.Name].(type) {
		case string:
			if x != "" {
				n += protowire.SizeTag(num) + protowire.SizeBytes(len(x))
			}
		case uint64:
			if x != 0 {
				n += protowire.SizeTag(num) + protowire.SizeVarint(x)
			}
		case bool:
			if x {
				n += protowire.SizeTag(num) + 1
			}
		}
	}
	return n, nil
}

// appendField writes one canonical field value; zero values write nothing.
func appendField(b []byte, f FieldSchema, x any) []byte {
	num := protowire.Number(f.Number)
	switch x := x.(type) {
	case string:
		if x == "" {
			return b
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendString(b, x)
	case uint64:
		if x == 0 {
			return b
		}
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, x)
	case bool:
		if !x {
			return b
		}
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(x))
	}
	return b
}
