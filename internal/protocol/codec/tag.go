package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// TagCodec implements SchemeTag. Each present field is written as a type
// byte, a big-endian i16 field id, and the value; a struct ends with a 0x00
// type byte. Fixed-width integers are big-endian, strings and binaries carry
// an i32 length, lists carry an element type byte and an i32 count.
type TagCodec struct {
	limits Limits
}

func NewTagCodec(limits Limits) *TagCodec {
	return &TagCodec{limits: limits.withDefaults()}
}

func (c *TagCodec) Scheme() Scheme { return SchemeTag }

func (c *TagCodec) Encode(dst []byte, m *schema.Struct) ([]byte, error) {
	return tagEncodeStruct(dst, m)
}

func tagEncodeStruct(dst []byte, m *schema.Struct) ([]byte, error) {
	s := m.Schema()
	for i := 0; i < s.NumFields(); i++ {
		v, ok := m.ValueAt(i)
		if !ok {
			continue
		}
		f := s.FieldAt(i)
		dst = append(dst, f.Type.Tag())
		dst = binary.BigEndian.AppendUint16(dst, uint16(f.ID))
		var err error
		dst, err = tagEncodeValue(dst, f.Type, f.Elem, v)
		if err != nil {
			return nil, fmt.Errorf("codec: %s.%s: %w", s.Name(), f.Name, err)
		}
	}
	return append(dst, uint8(schema.TypeStop)), nil
}

func tagEncodeValue(dst []byte, t, elem schema.WireType, v any) ([]byte, error) {
	switch t {
	case schema.TypeBool:
		if v.(bool) {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case schema.TypeByte:
		return append(dst, uint8(v.(int8))), nil
	case schema.TypeI16:
		return binary.BigEndian.AppendUint16(dst, uint16(v.(int16))), nil
	case schema.TypeI32:
		return binary.BigEndian.AppendUint32(dst, uint32(v.(int32))), nil
	case schema.TypeI64:
		return binary.BigEndian.AppendUint64(dst, uint64(v.(int64))), nil
	case schema.TypeDouble:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.(float64))), nil
	case schema.TypeString:
		return tagAppendBytes(dst, []byte(v.(string)))
	case schema.TypeBinary:
		return tagAppendBytes(dst, v.([]byte))
	case schema.TypeStruct:
		return tagEncodeStruct(dst, v.(*schema.Struct))
	case schema.TypeList:
		items := v.([]any)
		if len(items) > math.MaxInt32 {
			return nil, ErrValueTooLarge
		}
		dst = append(dst, elem.Tag())
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(items)))
		var err error
		for _, item := range items {
			if dst, err = tagEncodeValue(dst, elem, schema.TypeStop, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	return nil, fmt.Errorf("codec: cannot encode %s", t)
}

func tagAppendBytes(dst, b []byte) ([]byte, error) {
	if len(b) > math.MaxInt32 {
		return nil, ErrValueTooLarge
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...), nil
}

// Decode reads fields until the stop byte. Fields with an unknown id or a
// type byte that disagrees with the schema are skipped. Missing REQUIRED
// fields are left for Validate. Bytes after the outer stop byte are
// rejected.
func (c *TagCodec) Decode(src []byte, m *schema.Struct) error {
	r := newReader(src, c.limits)
	if err := tagDecodeStruct(r, m); err != nil {
		return err
	}
	if r.remaining() != 0 {
		return malformed(r.pos, ErrTrailingBytes)
	}
	return nil
}

func tagDecodeStruct(r *reader, m *schema.Struct) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()
	m.Clear()
	s := m.Schema()
	for {
		tag, err := r.u8()
		if err != nil {
			return err
		}
		if tag == uint8(schema.TypeStop) {
			return nil
		}
		rawID, err := r.u16()
		if err != nil {
			return err
		}
		id := int16(rawID)
		idx, known := s.Index(id)
		if !known || s.FieldAt(idx).Type.Tag() != tag {
			if err := tagSkip(r, tag); err != nil {
				return wrapWithField(err, fmt.Sprintf("#%d", id))
			}
			continue
		}
		f := s.FieldAt(idx)
		v, err := tagDecodeValue(r, f.Type, f.Elem, f.Struct)
		if err != nil {
			return wrapWithField(err, f.Name)
		}
		m.SetAt(idx, v)
	}
}

func tagDecodeValue(r *reader, t, elem schema.WireType, nested *schema.StructSchema) (any, error) {
	switch t {
	case schema.TypeBool:
		b, err := r.u8()
		return b != 0, err
	case schema.TypeByte:
		b, err := r.u8()
		return int8(b), err
	case schema.TypeI16:
		v, err := r.u16()
		return int16(v), err
	case schema.TypeI32:
		v, err := r.u32()
		return int32(v), err
	case schema.TypeI64:
		v, err := r.u64()
		return int64(v), err
	case schema.TypeDouble:
		return r.f64()
	case schema.TypeString, schema.TypeBinary:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int64(int32(n)))
		if err != nil {
			return nil, err
		}
		if t == schema.TypeString {
			return string(b), nil
		}
		return b, nil
	case schema.TypeStruct:
		m := schema.New(nested)
		if err := tagDecodeStruct(r, m); err != nil {
			return nil, err
		}
		return m, nil
	case schema.TypeList:
		return tagDecodeList(r, elem, nested)
	}
	return nil, malformed(r.pos, fmt.Errorf("unsupported type %s", t))
}

// tagDecodeList returns nil, leaving the field unset, when the element type
// on the wire disagrees with the schema; the elements are skipped.
func tagDecodeList(r *reader, elem schema.WireType, nested *schema.StructSchema) (any, error) {
	et, err := r.u8()
	if err != nil {
		return nil, err
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	count := int64(int32(n))
	if err := r.checkCount(count, tagMinSize(et)); err != nil {
		return nil, err
	}
	if et != elem.Tag() {
		for i := int64(0); i < count; i++ {
			if err := tagSkip(r, et); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()
	items := make([]any, count)
	for i := range items {
		v, err := tagDecodeValue(r, elem, schema.TypeStop, nested)
		if err != nil {
			return nil, wrapWithField(err, fmt.Sprintf("[%d]", i))
		}
		items[i] = v
	}
	return items, nil
}

// tagMinSize is the smallest encoding of one value with type byte t.
func tagMinSize(t uint8) int {
	switch schema.WireType(t) {
	case schema.TypeBool, schema.TypeByte, schema.TypeStruct:
		return 1
	case schema.TypeI16:
		return 2
	case schema.TypeI32, schema.TypeString:
		return 4
	case schema.TypeI64, schema.TypeDouble:
		return 8
	case schema.TypeList, schema.TypeSet:
		return 5
	case schema.TypeMap:
		return 6
	default:
		return 1
	}
}
