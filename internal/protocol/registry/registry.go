// Package registry maps envelope type codes to decoder factories and decides
// which values a serializer owns.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownType   = errors.New("registry: unknown type code")
	ErrDuplicateType = errors.New("registry: duplicate type code")
	ErrInvalidEntry  = errors.New("registry: invalid entry")
)

// DecoderFactory returns a fresh, empty instance for a decoder to fill.
type DecoderFactory func() schema.Message

// Predicate reports whether a registration owns v.
type Predicate func(v any) bool

// Entry is one registered message type.
type Entry struct {
	TypeCode uint16
	Schema   *schema.StructSchema
	New      DecoderFactory
	Owns     Predicate
	// Schemes limits the payload schemes accepted for this type. Empty means
	// every scheme.
	Schemes []codec.Scheme
}

func (e Entry) SupportsScheme(s codec.Scheme) bool {
	return len(e.Schemes) == 0 || slices.Contains(e.Schemes, s)
}

// Locator is the read side shared by Registry and Scoped.
type Locator interface {
	Name() string
	// Lookup returns the entry advertised under code.
	Lookup(code uint16) (Entry, bool)
	// TypeCodeOf returns the code of the first entry that owns v.
	TypeCodeOf(v any) (uint16, bool)
	IsSupport(v any) bool
	// TypeCodes lists advertised codes in registration order.
	TypeCodes() []uint16
}

// UnknownTypeError reports a type code no entry is advertised under.
type UnknownTypeError struct {
	Registry string
	TypeCode uint16
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("registry: %s: unknown type code %d", e.Registry, e.TypeCode)
}

func (e UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// Registry is immutable once built and safe for concurrent reads.
type Registry struct {
	name    string
	entries map[uint16]Entry
	order   []uint16
}

func (r *Registry) Name() string { return r.name }

func (r *Registry) Lookup(code uint16) (Entry, bool) {
	e, ok := r.entries[code]
	return e, ok
}

func (r *Registry) TypeCodeOf(v any) (uint16, bool) {
	if schema.IsNil(v) {
		return 0, false
	}
	for _, code := range r.order {
		if r.entries[code].Owns(v) {
			return code, true
		}
	}
	return 0, false
}

func (r *Registry) IsSupport(v any) bool {
	_, ok := r.TypeCodeOf(v)
	return ok
}

func (r *Registry) TypeCodes() []uint16 {
	return slices.Clone(r.order)
}

// Builder collects registrations. It is not safe for concurrent use.
type Builder struct {
	name    string
	entries map[uint16]Entry
	order   []uint16
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name, entries: make(map[uint16]Entry)}
}

type EntryOption func(*Entry)

// WithSchemes restricts the payload schemes accepted for a type.
func WithSchemes(schemes ...codec.Scheme) EntryOption {
	return func(e *Entry) { e.Schemes = schemes }
}

// Register adds a type. The factory is called once to learn the schema and
// must produce instances whose schema carries code. A nil owns predicate
// accepts any Message built on that schema.
func (b *Builder) Register(code uint16, factory DecoderFactory, owns Predicate, opts ...EntryOption) error {
	if factory == nil {
		return fmt.Errorf("%w: type code %d has no factory", ErrInvalidEntry, code)
	}
	if _, dup := b.entries[code]; dup {
		return fmt.Errorf("%w: %d in %s", ErrDuplicateType, code, b.name)
	}
	first := schema.StructOf(factory())
	if first == nil {
		return fmt.Errorf("%w: type code %d factory returned nil", ErrInvalidEntry, code)
	}
	s := first.Schema()
	if s.TypeCode() != code {
		return fmt.Errorf("%w: schema %s declares type code %d, registered as %d",
			ErrInvalidEntry, s.Name(), s.TypeCode(), code)
	}
	if owns == nil {
		owns = OwnsSchema(s)
	}
	e := Entry{TypeCode: code, Schema: s, New: factory, Owns: owns}
	for _, opt := range opts {
		opt(&e)
	}
	b.entries[code] = e
	b.order = append(b.order, code)
	return nil
}

// RegisterSchema registers s with a factory producing bare Structs.
func (b *Builder) RegisterSchema(s *schema.StructSchema, opts ...EntryOption) error {
	return b.Register(s.TypeCode(), func() schema.Message { return schema.New(s) }, nil, opts...)
}

// Build freezes the registrations. The builder must not be reused.
func (b *Builder) Build() *Registry {
	r := &Registry{name: b.name, entries: b.entries, order: b.order}
	b.entries, b.order = nil, nil
	log.Info().Str("registry", r.name).Int("types", len(r.order)).Msg("type registry built")
	return r
}

// OwnsSchema accepts any Message whose underlying struct uses s.
func OwnsSchema(s *schema.StructSchema) Predicate {
	return func(v any) bool {
		m, ok := v.(schema.Message)
		if !ok {
			return false
		}
		st := schema.StructOf(m)
		return st != nil && st.Schema() == s
	}
}
