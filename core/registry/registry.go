// Package registry maps message type names to their wire schemas.
// It is built once at startup and frozen before concurrent use; after
// Freeze, lookups take no locks.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/artpar/rewardctl/core/wire"
)

// Registry error kinds.
var (
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("duplicate message type")

	// ErrUnknownType is returned when resolving an unregistered type name.
	ErrUnknownType = errors.New("unknown message type")

	// ErrFrozen is returned by Register after Freeze.
	ErrFrozen = errors.New("registry is frozen")
)

// Phase is the lifecycle state of a Registry.
type Phase int

const (
	// Building accepts registrations. Lookups are allowed but serialized.
	Building Phase = iota
	// Frozen rejects registrations and serves lock-free lookups.
	Frozen
)

func (p Phase) String() string {
	if p == Frozen {
		return "frozen"
	}
	return "building"
}

// Registry manages the message schemas the client understands.
type Registry struct {
	mu     sync.RWMutex
	frozen atomic.Bool

	// schemas by fully qualified type name (no leading slash)
	schemas map[string]wire.MessageSchema
}

// New creates an empty registry in the Building phase.
func New() *Registry {
	return &Registry{
		schemas: make(map[string]wire.MessageSchema),
	}
}

// Register adds a schema under typeName. The first registration of a name
// always wins; a second call fails with ErrDuplicateType.
func (r *Registry) Register(typeName string, s wire.MessageSchema) error {
	key := normalize(typeName)
	if key == "" {
		return fmt.Errorf("register: empty type name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return fmt.Errorf("register %q: %w", key, ErrFrozen)
	}
	if _, exists := r.schemas[key]; exists {
		return fmt.Errorf("register %q: %w", key, ErrDuplicateType)
	}

	r.schemas[key] = s
	return nil
}

// RegisterSchemas registers each schema under its own name.
func (r *Registry) RegisterSchemas(schemas ...wire.MessageSchema) error {
	for _, s := range schemas {
		if err := r.Register(s.Name(), s); err != nil {
			return err
		}
	}
	return nil
}

// LoadSchemas parses a YAML schema document and registers every message.
func (r *Registry) LoadSchemas(data []byte) error {
	schemas, err := wire.ParseSchemas(data)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	return r.RegisterSchemas(schemas...)
}

// Freeze ends the Building phase. It is safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Phase reports the current lifecycle phase.
func (r *Registry) Phase() Phase {
	if r.frozen.Load() {
		return Frozen
	}
	return Building
}

// Resolve returns the schema registered for typeName. A leading "/" (type
// URL form) is accepted.
func (r *Registry) Resolve(typeName string) (wire.MessageSchema, error) {
	key := normalize(typeName)

	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	s, ok := r.schemas[key]
	if !ok {
		return wire.MessageSchema{}, fmt.Errorf("resolve %q: %w", key, ErrUnknownType)
	}
	return s, nil
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	_, err := r.Resolve(typeName)
	return err == nil
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns all registered schemas sorted by name.
func (r *Registry) Schemas() []wire.MessageSchema {
	names := r.Types()
	out := make([]wire.MessageSchema, 0, len(names))
	for _, name := range names {
		s, err := r.Resolve(name)
		if err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Encode resolves typeName and encodes v.
func (r *Registry) Encode(typeName string, v wire.Value) ([]byte, error) {
	s, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return s.Encode(v)
}

// Decode resolves typeName and decodes b.
func (r *Registry) Decode(typeName string, b []byte) (wire.Value, error) {
	s, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return s.Decode(b)
}

// ToText resolves typeName and renders v as a text mapping.
func (r *Registry) ToText(typeName string, v wire.Value) (map[string]any, error) {
	s, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return s.ToText(v)
}

// FromText resolves typeName and builds a value from a text mapping.
func (r *Registry) FromText(typeName string, t map[string]any) (wire.Value, error) {
	s, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return s.FromText(t)
}

func normalize(typeName string) string {
	return strings.TrimPrefix(strings.TrimSpace(typeName), "/")
}
