// Package idl builds struct schemas from protobuf-style message definitions.
//
// Scalars map onto wire types (int32 -> i32, int64 -> i64, bytes -> binary,
// enums -> i32) and the names i16 and byte are accepted as extra scalars.
// Repeated fields become lists. Map fields and oneofs are rejected.
package idl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

var (
	ErrParse           = errors.New("idl: parse failed")
	ErrUnresolvedType  = errors.New("idl: unresolved type")
	ErrUnsupported     = errors.New("idl: unsupported declaration")
	ErrCycle           = errors.New("idl: recursive message")
	ErrFieldNumber     = errors.New("idl: field number out of range")
	ErrUnknownTypeCode = errors.New("idl: type code for undeclared message")
)

var scalars = map[string]schema.WireType{
	"bool":     schema.TypeBool,
	"byte":     schema.TypeByte,
	"i16":      schema.TypeI16,
	"int32":    schema.TypeI32,
	"sint32":   schema.TypeI32,
	"sfixed32": schema.TypeI32,
	"int64":    schema.TypeI64,
	"sint64":   schema.TypeI64,
	"sfixed64": schema.TypeI64,
	"uint32":   schema.TypeI64,
	"fixed32":  schema.TypeI64,
	"float":    schema.TypeDouble,
	"double":   schema.TypeDouble,
	"string":   schema.TypeString,
	"bytes":    schema.TypeBinary,
}

type declaration struct {
	name    string
	message *protoparserparser.Message
}

type loader struct {
	pkg      string
	codes    map[string]uint16
	order    []string
	messages map[string]declaration
	enums    map[string]struct{}
	built    map[string]*schema.StructSchema
	visiting map[string]bool
}

// LoadFile opens path and parses it with ParseSchemas.
func LoadFile(path string, codes map[string]uint16) ([]*schema.StructSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSchemas(f, codes)
}

// ParseSchemas reads message definitions from r and returns one schema per
// message in declaration order, nested messages after their parent. Nested
// messages are named Outer.Inner. codes assigns type codes by message name;
// messages not listed get type code 0.
func ParseSchemas(r io.Reader, codes map[string]uint16) ([]*schema.StructSchema, error) {
	proto, err := protoparser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	l := &loader{
		codes:    codes,
		messages: make(map[string]declaration),
		enums:    make(map[string]struct{}),
		built:    make(map[string]*schema.StructSchema),
		visiting: make(map[string]bool),
	}
	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			l.pkg = b.Name
		case *protoparserparser.Message:
			l.collect("", b)
		case *protoparserparser.Enum:
			l.enums[b.EnumName] = struct{}{}
		}
	}
	for name := range codes {
		if _, ok := l.messages[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTypeCode, name)
		}
	}

	out := make([]*schema.StructSchema, 0, len(l.order))
	for _, name := range l.order {
		s, err := l.build(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	log.Debug().Str("package", l.pkg).Int("schemas", len(out)).Msg("idl: schemas loaded")
	return out, nil
}

func (l *loader) collect(scope string, m *protoparserparser.Message) {
	name := m.MessageName
	if scope != "" {
		name = scope + "." + name
	}
	l.order = append(l.order, name)
	l.messages[name] = declaration{name: name, message: m}
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Message:
			l.collect(name, b)
		case *protoparserparser.Enum:
			l.enums[name+"."+b.EnumName] = struct{}{}
		}
	}
}

func (l *loader) build(name string) (*schema.StructSchema, error) {
	if s, ok := l.built[name]; ok {
		return s, nil
	}
	if l.visiting[name] {
		return nil, fmt.Errorf("%w: %s", ErrCycle, name)
	}
	l.visiting[name] = true
	defer delete(l.visiting, name)

	decl := l.messages[name]
	b := schema.NewBuilder(name, l.codes[name])
	for _, body := range decl.message.MessageBody {
		switch f := body.(type) {
		case *protoparserparser.Field:
			if err := l.declareField(b, name, f); err != nil {
				return nil, err
			}
		case *protoparserparser.MapField:
			return nil, fmt.Errorf("%w: %s.%s: map field", ErrUnsupported, name, f.MapName)
		case *protoparserparser.Oneof:
			return nil, fmt.Errorf("%w: %s.%s: oneof", ErrUnsupported, name, f.OneofName)
		}
	}
	s, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("idl: %s: %w", name, err)
	}
	l.built[name] = s
	return s, nil
}

func (l *loader) declareField(b *schema.Builder, owner string, f *protoparserparser.Field) error {
	n, err := strconv.ParseInt(f.FieldNumber, 0, 16)
	if err != nil || n < 1 {
		return fmt.Errorf("%w: %s.%s = %s", ErrFieldNumber, owner, f.FieldName, f.FieldNumber)
	}
	id := int16(n)
	req := requiredness(f)

	t, nested, err := l.resolve(owner, f.Type)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", owner, f.FieldName, err)
	}
	switch {
	case f.IsRepeated:
		b.DeclareList(id, f.FieldName, t, nested, req)
	case t == schema.TypeStruct:
		b.DeclareStruct(id, f.FieldName, nested, req)
	default:
		b.DeclareField(id, f.FieldName, t, req)
	}
	return nil
}

func requiredness(f *protoparserparser.Field) schema.Requiredness {
	if f.IsRequired {
		return schema.Required
	}
	for _, opt := range f.FieldOptions {
		if opt.OptionName == "default" {
			return schema.Default
		}
	}
	return schema.Optional
}

// resolve maps a field type to a wire type, building the referenced message
// first when it names one. Relative names are searched from the innermost
// enclosing message outwards.
func (l *loader) resolve(owner, typeName string) (schema.WireType, *schema.StructSchema, error) {
	if t, ok := scalars[typeName]; ok {
		return t, nil, nil
	}
	name := strings.TrimPrefix(typeName, ".")
	if l.pkg != "" {
		name = strings.TrimPrefix(name, l.pkg+".")
	}
	for scope := owner; ; {
		candidate := name
		if scope != "" {
			candidate = scope + "." + name
		}
		if _, ok := l.messages[candidate]; ok {
			s, err := l.build(candidate)
			if err != nil {
				return 0, nil, err
			}
			return schema.TypeStruct, s, nil
		}
		if _, ok := l.enums[candidate]; ok {
			return schema.TypeI32, nil, nil
		}
		if scope == "" {
			break
		}
		if i := strings.LastIndexByte(scope, '.'); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}
	return 0, nil, fmt.Errorf("%w: %s", ErrUnresolvedType, typeName)
}
