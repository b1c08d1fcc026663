package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/tracewire/internal/protocol/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

// CompactCodec implements SchemeCompact. A struct is a presence bitmap of
// ceil(n/8) bytes over its optional and default fields (bit i of byte i/8,
// least significant first), then every REQUIRED value in declared order,
// then the present optional values in declared order. Integers are zigzag
// varints, doubles are 8 bytes big-endian, strings, binaries and lists carry
// a uvarint length.
type CompactCodec struct {
	limits Limits
}

func NewCompactCodec(limits Limits) *CompactCodec {
	return &CompactCodec{limits: limits.withDefaults()}
}

func (c *CompactCodec) Scheme() Scheme { return SchemeCompact }

func (c *CompactCodec) Encode(dst []byte, m *schema.Struct) ([]byte, error) {
	return compactEncodeStruct(dst, m)
}

func compactEncodeStruct(dst []byte, m *schema.Struct) ([]byte, error) {
	s := m.Schema()
	presence := s.PresenceFields()
	start := len(dst)
	dst = append(dst, make([]byte, bitmapLen(len(presence)))...)
	for bit, idx := range presence {
		if _, ok := m.ValueAt(idx); ok {
			dst[start+bit/8] |= 1 << (bit % 8)
		}
	}
	var err error
	for i := 0; i < s.NumFields(); i++ {
		f := s.FieldAt(i)
		if f.Requiredness != schema.Required {
			continue
		}
		v, ok := m.ValueAt(i)
		if !ok {
			return nil, fmt.Errorf("codec: %s.%s: required field absent", s.Name(), f.Name)
		}
		if dst, err = compactEncodeValue(dst, f.Type, f.Elem, v); err != nil {
			return nil, fmt.Errorf("codec: %s.%s: %w", s.Name(), f.Name, err)
		}
	}
	for _, idx := range presence {
		v, ok := m.ValueAt(idx)
		if !ok {
			continue
		}
		f := s.FieldAt(idx)
		if dst, err = compactEncodeValue(dst, f.Type, f.Elem, v); err != nil {
			return nil, fmt.Errorf("codec: %s.%s: %w", s.Name(), f.Name, err)
		}
	}
	return dst, nil
}

func compactEncodeValue(dst []byte, t, elem schema.WireType, v any) ([]byte, error) {
	switch t {
	case schema.TypeBool:
		if v.(bool) {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case schema.TypeByte:
		return append(dst, uint8(v.(int8))), nil
	case schema.TypeI16:
		return protowire.AppendVarint(dst, protowire.EncodeZigZag(int64(v.(int16)))), nil
	case schema.TypeI32:
		return protowire.AppendVarint(dst, protowire.EncodeZigZag(int64(v.(int32)))), nil
	case schema.TypeI64:
		return protowire.AppendVarint(dst, protowire.EncodeZigZag(v.(int64))), nil
	case schema.TypeDouble:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.(float64))), nil
	case schema.TypeString:
		dst = protowire.AppendVarint(dst, uint64(len(v.(string))))
		return append(dst, v.(string)...), nil
	case schema.TypeBinary:
		dst = protowire.AppendVarint(dst, uint64(len(v.([]byte))))
		return append(dst, v.([]byte)...), nil
	case schema.TypeStruct:
		return compactEncodeStruct(dst, v.(*schema.Struct))
	case schema.TypeList:
		items := v.([]any)
		dst = protowire.AppendVarint(dst, uint64(len(items)))
		var err error
		for _, item := range items {
			if dst, err = compactEncodeValue(dst, elem, schema.TypeStop, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	return nil, fmt.Errorf("codec: cannot encode %s", t)
}

// Decode reads one struct and rejects a short bitmap, set bits beyond the
// declared optional fields, and trailing bytes.
func (c *CompactCodec) Decode(src []byte, m *schema.Struct) error {
	r := newReader(src, c.limits)
	if err := compactDecodeStruct(r, m); err != nil {
		return err
	}
	if r.remaining() != 0 {
		return malformed(r.pos, ErrTrailingBytes)
	}
	return nil
}

func compactDecodeStruct(r *reader, m *schema.Struct) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()
	m.Clear()
	s := m.Schema()
	presence := s.PresenceFields()
	n := bitmapLen(len(presence))
	if err := r.need(n); err != nil {
		return err
	}
	bitmap := r.buf[r.pos : r.pos+n]
	if extra := len(presence) % 8; extra != 0 && bitmap[n-1]>>extra != 0 {
		return malformed(r.pos+n-1, ErrBitmap)
	}
	r.pos += n

	for i := 0; i < s.NumFields(); i++ {
		f := s.FieldAt(i)
		if f.Requiredness != schema.Required {
			continue
		}
		v, err := compactDecodeValue(r, f.Type, f.Elem, f.Struct)
		if err != nil {
			return wrapWithField(err, f.Name)
		}
		m.SetAt(i, v)
	}
	for bit, idx := range presence {
		if bitmap[bit/8]&(1<<(bit%8)) == 0 {
			continue
		}
		f := s.FieldAt(idx)
		v, err := compactDecodeValue(r, f.Type, f.Elem, f.Struct)
		if err != nil {
			return wrapWithField(err, f.Name)
		}
		m.SetAt(idx, v)
	}
	return nil
}

func compactDecodeValue(r *reader, t, elem schema.WireType, nested *schema.StructSchema) (any, error) {
	switch t {
	case schema.TypeBool:
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, malformed(r.pos-1, fmt.Errorf("invalid bool byte %d", b))
		}
		return b == 1, nil
	case schema.TypeByte:
		b, err := r.u8()
		return int8(b), err
	case schema.TypeI16:
		v, err := r.zigzag()
		if err != nil {
			return nil, err
		}
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, malformed(r.pos, fmt.Errorf("i16 out of range: %d", v))
		}
		return int16(v), nil
	case schema.TypeI32:
		v, err := r.zigzag()
		if err != nil {
			return nil, err
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, malformed(r.pos, fmt.Errorf("i32 out of range: %d", v))
		}
		return int32(v), nil
	case schema.TypeI64:
		return r.zigzag()
	case schema.TypeDouble:
		return r.f64()
	case schema.TypeString, schema.TypeBinary:
		n, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt64 {
			return nil, malformed(r.pos, ErrLimitExceeded)
		}
		b, err := r.bytes(int64(n))
		if err != nil {
			return nil, err
		}
		if t == schema.TypeString {
			return string(b), nil
		}
		return b, nil
	case schema.TypeStruct:
		m := schema.New(nested)
		if err := compactDecodeStruct(r, m); err != nil {
			return nil, err
		}
		return m, nil
	case schema.TypeList:
		n, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt64 {
			return nil, malformed(r.pos, ErrLimitExceeded)
		}
		count := int64(n)
		if err := r.checkCount(count, compactMinSize(elem, nested)); err != nil {
			return nil, err
		}
		if err := r.enter(); err != nil {
			return nil, err
		}
		defer r.leave()
		items := make([]any, count)
		for i := range items {
			v, err := compactDecodeValue(r, elem, schema.TypeStop, nested)
			if err != nil {
				return nil, wrapWithField(err, fmt.Sprintf("[%d]", i))
			}
			items[i] = v
		}
		return items, nil
	}
	return nil, malformed(r.pos, fmt.Errorf("unsupported type %s", t))
}

// compactMinSize is the smallest encoding of one value of type t. A struct
// without optional or required fields encodes to nothing.
func compactMinSize(t schema.WireType, nested *schema.StructSchema) int {
	switch t {
	case schema.TypeDouble:
		return 8
	case schema.TypeStruct:
		if nested == nil {
			return 0
		}
		n := bitmapLen(len(nested.PresenceFields()))
		for _, f := range nested.Fields() {
			if f.Requiredness == schema.Required {
				n += compactMinSize(f.Type, f.Struct)
			}
		}
		return n
	default:
		return 1
	}
}

func bitmapLen(n int) int {
	return (n + 7) / 8
}
