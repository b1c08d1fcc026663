package schema

import "fmt"

// WireType identifies the value shape of a field. Values below 16 double as
// the on-wire type tag written by the tag scheme.
type WireType uint8

const (
	TypeStop   WireType = 0
	TypeBool   WireType = 2
	TypeByte   WireType = 3
	TypeDouble WireType = 4
	TypeI16    WireType = 6
	TypeI32    WireType = 8
	TypeI64    WireType = 10
	TypeString WireType = 11
	TypeStruct WireType = 12
	TypeMap    WireType = 13
	TypeSet    WireType = 14
	TypeList   WireType = 15

	// TypeBinary shares the string tag on the wire; only the schema tells the
	// two apart.
	TypeBinary WireType = 0x8b
)

// Tag returns the one-byte type tag written on the wire.
func (t WireType) Tag() uint8 {
	if t == TypeBinary {
		return uint8(TypeString)
	}
	return uint8(t)
}

// Declarable reports whether fields may be declared with this type.
// Map and set tags are understood by the skipper but carry no value model.
func (t WireType) Declarable() bool {
	switch t {
	case TypeBool, TypeByte, TypeDouble, TypeI16, TypeI32, TypeI64,
		TypeString, TypeBinary, TypeStruct, TypeList:
		return true
	default:
		return false
	}
}

func (t WireType) String() string {
	switch t {
	case TypeStop:
		return "stop"
	case TypeBool:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeDouble:
		return "double"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	case TypeStruct:
		return "struct"
	case TypeMap:
		return "map"
	case TypeSet:
		return "set"
	case TypeList:
		return "list"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Requiredness controls presence semantics of a field.
type Requiredness uint8

const (
	// Required fields must be set before an instance validates.
	Required Requiredness = iota + 1
	// Optional fields are written only when present and hidden from
	// Describe when absent.
	Optional
	// Default fields track presence like Optional ones but are always
	// rendered by Describe.
	Default
)

func (r Requiredness) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Default:
		return "default"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// TracksPresence reports whether the field participates in the compact
// scheme's presence bitmap.
func (r Requiredness) TracksPresence() bool {
	return r == Optional || r == Default
}
