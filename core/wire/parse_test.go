package wire

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchemas = `
package: rewardchain.rewardchain
messages:
  - name: MsgSwap
    fields:
      - { number: 1, name: creator,   kind: string }
      - { number: 2, name: partnerId, kind: varint_uint64 }
      - { number: 3, name: route,     kind: string }
      - { number: 4, name: points,    kind: string }
  - name: MsgCreatePartnerResponse
    fields:
      - { number: 1, name: id, kind: string }
`

func TestParseSchemas(t *testing.T) {
	schemas, err := ParseSchemas([]byte(testSchemas))
	if err != nil {
		t.Fatalf("ParseSchemas() error = %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("len(schemas) = %d, want 2", len(schemas))
	}

	s := schemas[0]
	if s.Name() != "rewardchain.rewardchain.MsgSwap" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.TypeURL() != "/rewardchain.rewardchain.MsgSwap" {
		t.Errorf("TypeURL() = %q", s.TypeURL())
	}
	f, ok := s.Field("partnerId")
	if !ok {
		t.Fatal("Field(partnerId) not found")
	}
	if f.Kind != KindUint64 || f.Number != 2 {
		t.Errorf("Field(partnerId) = %+v", f)
	}
}

func TestParseSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	if err := os.WriteFile(path, []byte(testSchemas), 0o644); err != nil {
		t.Fatal(err)
	}
	schemas, err := ParseSchemaFile(path)
	if err != nil {
		t.Fatalf("ParseSchemaFile() error = %v", err)
	}
	if len(schemas) != 2 {
		t.Errorf("len(schemas) = %d, want 2", len(schemas))
	}

	if _, err := ParseSchemaFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("ParseSchemaFile() should fail for a missing file")
	}
}

func TestParseSchemas_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"no messages", "package: x\n", "no messages"},
		{"bad yaml", "messages: [", "parse yaml"},
		{"unknown kind", `
messages:
  - name: M
    fields:
      - { number: 1, name: a, kind: float }
`, "unknown kind"},
		{"duplicate number", `
messages:
  - name: M
    fields:
      - { number: 1, name: a, kind: string }
      - { number: 1, name: b, kind: string }
`, "already used"},
		{"duplicate name", `
messages:
  - name: M
    fields:
      - { number: 1, name: a, kind: string }
      - { number: 2, name: a, kind: uint64 }
`, "name already used"},
		{"zero number", `
messages:
  - name: M
    fields:
      - { number: 0, name: a, kind: string }
`, "invalid field number"},
		{"reserved number", `
messages:
  - name: M
    fields:
      - { number: 19000, name: a, kind: string }
`, "invalid field number"},
		{"duplicate message", `
messages:
  - name: M
    fields: [{ number: 1, name: a, kind: string }]
  - name: M
    fields: [{ number: 1, name: a, kind: string }]
`, "declared twice"},
		{"missing message name", `
messages:
  - fields: [{ number: 1, name: a, kind: string }]
`, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchemas([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("ParseSchemas() error = %v, want ErrInvalidSchema", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestNewMessageSchema_FieldsCopied(t *testing.T) {
	fields := []FieldSchema{{Number: 1, Name: "a", Kind: KindString}}
	s, err := NewMessageSchema("/pkg.M", fields...)
	if err != nil {
		t.Fatalf("NewMessageSchema() error = %v", err)
	}
	if s.Name() != "pkg.M" {
		t.Errorf("Name() = %q, want pkg.M", s.Name())
	}

	fields[0].Name = "changed"
	got := s.Fields()
	if got[0].Name != "a" {
		t.Errorf("schema shares caller slice: %q", got[0].Name)
	}
	got[0].Name = "mutated"
	if f, _ := s.Field("a"); f.Name != "a" {
		t.Error("Fields() exposes internal slice")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"string": KindString, "UINT64": KindUint64, "varint_uint64": KindUint64, " bool ": KindBool} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("bytes"); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("ParseKind(bytes) error = %v", err)
	}
}
