package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrDuplicateField  = errors.New("schema: duplicate field")
	ErrUnsupportedType = errors.New("schema: unsupported field type")
	ErrMissingSchema   = errors.New("schema: struct field without nested schema")
)

// FieldDescriptor declares one field of a struct schema.
type FieldDescriptor struct {
	ID           int16
	Name         string
	Type         WireType
	Requiredness Requiredness
	// Elem is the element type of a list field.
	Elem WireType
	// Struct is the nested schema of a struct field or a list of structs.
	Struct *StructSchema
}

// ValueSchema returns the nested schema used by the field's values, for
// struct fields and lists of structs.
func (f FieldDescriptor) ValueSchema() *StructSchema {
	return f.Struct
}

// StructSchema is the immutable description of a message type. It is built
// once at process start and shared by every instance and codec.
type StructSchema struct {
	name     string
	typeCode uint16
	fields   []FieldDescriptor
	index    map[int16]int
	byName   map[string]int
	presence []int
	idOrder  []int
}

func (s *StructSchema) Name() string     { return s.name }
func (s *StructSchema) TypeCode() uint16 { return s.typeCode }
func (s *StructSchema) NumFields() int   { return len(s.fields) }

// FieldAt returns the i-th field in declared order.
func (s *StructSchema) FieldAt(i int) FieldDescriptor { return s.fields[i] }

// Fields returns a copy of the declared fields.
func (s *StructSchema) Fields() []FieldDescriptor {
	return slices.Clone(s.fields)
}

// Index returns the declared position of field id.
func (s *StructSchema) Index(id int16) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Field looks up a descriptor by id.
func (s *StructSchema) Field(id int16) (FieldDescriptor, bool) {
	i, ok := s.index[id]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[i], true
}

// FieldByName looks up a descriptor by name.
func (s *StructSchema) FieldByName(name string) (FieldDescriptor, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[i], true
}

// PresenceFields returns the declared positions of optional and default
// fields, in declared order. Bit i of a compact bitmap maps to entry i.
func (s *StructSchema) PresenceFields() []int {
	return s.presence
}

func (s *StructSchema) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s#%d{", s.name, s.typeCode)
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d:%s %s %s", f.ID, f.Requiredness, f.Type, f.Name)
	}
	b.WriteString("}")
	return b.String()
}

// Builder accumulates field declarations for a StructSchema. The first
// declaration error is kept and reported by Build.
type Builder struct {
	schema *StructSchema
	err    error
}

// NewBuilder starts a schema. Nested-only schemas use type code 0.
func NewBuilder(name string, typeCode uint16) *Builder {
	return &Builder{schema: &StructSchema{
		name:     name,
		typeCode: typeCode,
		index:    make(map[int16]int),
		byName:   make(map[string]int),
	}}
}

// DeclareField adds a scalar field.
func (b *Builder) DeclareField(id int16, name string, t WireType, req Requiredness) *Builder {
	return b.declare(FieldDescriptor{ID: id, Name: name, Type: t, Requiredness: req})
}

// DeclareStruct adds a nested struct field.
func (b *Builder) DeclareStruct(id int16, name string, nested *StructSchema, req Requiredness) *Builder {
	return b.declare(FieldDescriptor{ID: id, Name: name, Type: TypeStruct, Requiredness: req, Struct: nested})
}

// DeclareList adds a list field. nested is required when elem is TypeStruct.
func (b *Builder) DeclareList(id int16, name string, elem WireType, nested *StructSchema, req Requiredness) *Builder {
	return b.declare(FieldDescriptor{ID: id, Name: name, Type: TypeList, Requiredness: req, Elem: elem, Struct: nested})
}

func (b *Builder) declare(f FieldDescriptor) *Builder {
	if b.err != nil {
		return b
	}
	s := b.schema
	if _, dup := s.index[f.ID]; dup {
		b.err = fmt.Errorf("%w: %s field id %d", ErrDuplicateField, s.name, f.ID)
		return b
	}
	if _, dup := s.byName[f.Name]; dup || f.Name == "" {
		b.err = fmt.Errorf("%w: %s field name %q", ErrDuplicateField, s.name, f.Name)
		return b
	}
	if f.Requiredness < Required || f.Requiredness > Default {
		b.err = fmt.Errorf("schema: %s field %s: invalid requiredness %d", s.name, f.Name, f.Requiredness)
		return b
	}
	if !f.Type.Declarable() {
		b.err = fmt.Errorf("%w: %s field %s: %s", ErrUnsupportedType, s.name, f.Name, f.Type)
		return b
	}
	if f.Type == TypeList {
		if !f.Elem.Declarable() || f.Elem == TypeList {
			b.err = fmt.Errorf("%w: %s field %s: list<%s>", ErrUnsupportedType, s.name, f.Name, f.Elem)
			return b
		}
	}
	if (f.Type == TypeStruct || f.Elem == TypeStruct) && f.Struct == nil {
		b.err = fmt.Errorf("%w: %s field %s", ErrMissingSchema, s.name, f.Name)
		return b
	}
	s.index[f.ID] = len(s.fields)
	s.byName[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return b
}

// Build freezes the schema.
func (b *Builder) Build() (*StructSchema, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.schema
	b.schema = nil
	for i, f := range s.fields {
		if f.Requiredness.TracksPresence() {
			s.presence = append(s.presence, i)
		}
		s.idOrder = append(s.idOrder, i)
	}
	slices.SortFunc(s.idOrder, func(a, c int) int {
		return int(s.fields[a].ID) - int(s.fields[c].ID)
	})
	return s, nil
}

// MustBuild is Build for package-level schema declarations.
func (b *Builder) MustBuild() *StructSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
