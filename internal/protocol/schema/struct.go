package schema

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/rs/zerolog/log"
)

// Message is implemented by every value a codec can encode: the generic
// Struct itself and the typed wrappers built over it.
type Message interface {
	Struct() *Struct
}

// IsNil reports whether v is nil or a nil pointer.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// StructOf returns the instance behind m, or nil when m is nil or a nil
// pointer. Struct on a nil typed wrapper would dereference it.
func StructOf(m Message) *Struct {
	if IsNil(m) {
		return nil
	}
	return m.Struct()
}

// slot bundles a field's value with its presence flag. Clearing presence
// always clears the value too.
type slot struct {
	value any
	set   bool
}

// Struct is a schema-conformant message instance. Values are held as
// bool, int8, int16, int32, int64, float64, string, []byte, *Struct or, for
// lists, []any of those. A Struct is owned by one goroutine at a time.
type Struct struct {
	schema *StructSchema
	slots  []slot
}

// New returns an instance of s with every field absent.
func New(s *StructSchema) *Struct {
	return &Struct{schema: s, slots: make([]slot, len(s.fields))}
}

func (m *Struct) Schema() *StructSchema { return m.schema }

// Struct lets *Struct satisfy Message.
func (m *Struct) Struct() *Struct { return m }

// Get returns the value of field id and whether it is set.
func (m *Struct) Get(id int16) (any, bool) {
	i, ok := m.schema.index[id]
	if !ok || !m.slots[i].set {
		return nil, false
	}
	return m.slots[i].value, true
}

// Set stores v in field id and marks it present. A nil v unsets the field.
func (m *Struct) Set(id int16, v any) error {
	i, ok := m.schema.index[id]
	if !ok {
		return fmt.Errorf("%w: %s has no field %d", ErrUnknownField, m.schema.name, id)
	}
	if v == nil {
		m.slots[i] = slot{}
		return nil
	}
	f := m.schema.fields[i]
	norm, err := normalize(f.Type, f.Elem, f.Struct, v)
	if err != nil {
		return ValueError{Struct: m.schema.name, Field: f.Name, Want: f.Type, Got: v}
	}
	m.slots[i] = slot{value: norm, set: true}
	return nil
}

// MustSet is Set for values known to fit, such as typed wrapper setters.
func (m *Struct) MustSet(id int16, v any) {
	if err := m.Set(id, v); err != nil {
		panic(err)
	}
}

// Unset clears the value and presence of field id. Unknown ids are ignored.
func (m *Struct) Unset(id int16) {
	if i, ok := m.schema.index[id]; ok {
		m.slots[i] = slot{}
	}
}

func (m *Struct) IsSet(id int16) bool {
	i, ok := m.schema.index[id]
	return ok && m.slots[i].set
}

// Clear unsets every field.
func (m *Struct) Clear() {
	clear(m.slots)
}

// ValueAt returns the slot at declared position i. Codecs use positional
// access to avoid the id lookup.
func (m *Struct) ValueAt(i int) (any, bool) {
	return m.slots[i].value, m.slots[i].set
}

// SetAt stores an already-normalized value at declared position i.
func (m *Struct) SetAt(i int, v any) {
	m.slots[i] = slot{value: v, set: v != nil}
}

// Validate fails with a ValidationError when a REQUIRED field is absent,
// here or in any present nested struct.
func (m *Struct) Validate() error {
	if err := m.validate(""); err != nil {
		log.Debug().Str("struct", m.schema.name).Err(err).Msg("validation failed")
		return err
	}
	return nil
}

func (m *Struct) validate(prefix string) error {
	for i, f := range m.schema.fields {
		sl := m.slots[i]
		path := prefix + f.Name
		if !sl.set {
			if f.Requiredness == Required {
				return ValidationError{Struct: m.schema.name, FieldID: f.ID, Path: path}
			}
			continue
		}
		switch v := sl.value.(type) {
		case *Struct:
			if err := v.validate(path + "."); err != nil {
				return err
			}
		case []any:
			for j, e := range v {
				if n, ok := e.(*Struct); ok {
					if err := n.validate(fmt.Sprintf("%s[%d].", path, j)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// DeepCopy returns an independent instance holding copies of every present
// field.
func (m *Struct) DeepCopy() *Struct {
	out := New(m.schema)
	for i, sl := range m.slots {
		if sl.set {
			out.slots[i] = slot{value: copyValue(sl.value), set: true}
		}
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return slices.Clone(t)
	case *Struct:
		return t.DeepCopy()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// normalize converts v to the canonical Go type for a field of type t.
// Plain int is accepted for integer fields when it fits.
func normalize(t, elem WireType, nested *StructSchema, v any) (any, error) {
	switch t {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeByte:
		switch n := v.(type) {
		case int8:
			return n, nil
		case int:
			if n >= math.MinInt8 && n <= math.MaxInt8 {
				return int8(n), nil
			}
		}
	case TypeI16:
		switch n := v.(type) {
		case int16:
			return n, nil
		case int:
			if n >= math.MinInt16 && n <= math.MaxInt16 {
				return int16(n), nil
			}
		}
	case TypeI32:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int:
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int32(n), nil
			}
		}
	case TypeI64:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
	case TypeDouble:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBinary:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case TypeStruct:
		if msg, ok := v.(Message); ok {
			s := StructOf(msg)
			if s != nil && s.schema == nested {
				return s, nil
			}
		}
	case TypeList:
		items, ok := v.([]any)
		if !ok {
			break
		}
		out := make([]any, len(items))
		for i, e := range items {
			n, err := normalize(elem, TypeStop, nested, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, ErrValueType
}
