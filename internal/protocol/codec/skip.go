package codec

import (
	"fmt"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// tagSkip consumes one tag-scheme value of wire type t without decoding it.
// Map and set values are understood here even though no field can declare
// them, so payloads from richer schemas still skip cleanly.
func tagSkip(r *reader, t uint8) error {
	switch schema.WireType(t) {
	case schema.TypeBool, schema.TypeByte:
		return r.skip(1)
	case schema.TypeI16:
		return r.skip(2)
	case schema.TypeI32:
		return r.skip(4)
	case schema.TypeI64, schema.TypeDouble:
		return r.skip(8)
	case schema.TypeString:
		n, err := r.u32()
		if err != nil {
			return err
		}
		if err := r.checkString(int64(int32(n))); err != nil {
			return err
		}
		return r.skip(int(n))
	case schema.TypeStruct:
		if err := r.enter(); err != nil {
			return err
		}
		defer r.leave()
		for {
			ft, err := r.u8()
			if err != nil {
				return err
			}
			if ft == uint8(schema.TypeStop) {
				return nil
			}
			if _, err := r.u16(); err != nil {
				return err
			}
			if err := tagSkip(r, ft); err != nil {
				return err
			}
		}
	case schema.TypeList, schema.TypeSet:
		et, err := r.u8()
		if err != nil {
			return err
		}
		return skipElems(r, []uint8{et})
	case schema.TypeMap:
		kt, err := r.u8()
		if err != nil {
			return err
		}
		vt, err := r.u8()
		if err != nil {
			return err
		}
		return skipElems(r, []uint8{kt, vt})
	}
	return malformed(r.pos, fmt.Errorf("unknown wire type %d", t))
}

// skipElems reads an i32 count and skips count groups of the given types.
func skipElems(r *reader, types []uint8) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	count := int64(int32(n))
	minSize := 0
	for _, t := range types {
		minSize += tagMinSize(t)
	}
	if err := r.checkCount(count, minSize); err != nil {
		return err
	}
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()
	for i := int64(0); i < count; i++ {
		for _, t := range types {
			if err := tagSkip(r, t); err != nil {
				return err
			}
		}
	}
	return nil
}
