package wire

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a schema file.
type Document struct {
	// Package prefixes every message name ("rewardchain.rewardchain").
	Package  string            `yaml:"package"`
	Messages []MessageDocument `yaml:"messages"`
}

// MessageDocument declares one message.
type MessageDocument struct {
	Name   string          `yaml:"name"`
	Fields []FieldDocument `yaml:"fields"`
}

// FieldDocument declares one field.
type FieldDocument struct {
	Number int32  `yaml:"number"`
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
}

// ParseSchemaFile parses schemas from a YAML file.
func ParseSchemaFile(path string) ([]MessageSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return ParseSchemas(data)
}

// ParseSchemas parses and validates every message in a YAML document.
func ParseSchemas(data []byte) ([]MessageSchema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidSchema, err)
	}
	return doc.Schemas()
}

// Schemas converts the document into validated message schemas.
func (d Document) Schemas() ([]MessageSchema, error) {
	if len(d.Messages) == 0 {
		return nil, fmt.Errorf("%w: document declares no messages", ErrInvalidSchema)
	}

	pkg := strings.Trim(strings.TrimSpace(d.Package), ".")
	seen := make(map[string]bool, len(d.Messages))
	out := make([]MessageSchema, 0, len(d.Messages))

	for i, m := range d.Messages {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: messages[%d]: name is required", ErrInvalidSchema, i)
		}
		name := m.Name
		if pkg != "" {
			name = pkg + "." + m.Name
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: message %q declared twice", ErrInvalidSchema, name)
		}
		seen[name] = true

		fields := make([]FieldSchema, 0, len(m.Fields))
		for _, fd := range m.Fields {
			kind, err := ParseKind(fd.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, fd.Name, err)
			}
			fields = append(fields, FieldSchema{Number: fd.Number, Name: fd.Name, Kind: kind})
		}

		s, err := NewMessageSchema(name, fields...)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
