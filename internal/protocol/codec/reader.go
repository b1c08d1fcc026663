package codec

import (
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// reader walks a payload and checks every length against both the limits
// and the bytes remaining before anything is allocated.
type reader struct {
	buf    []byte
	pos    int
	limits Limits
	depth  int
	// elements decoded from zero bytes each, across the whole payload
	empty int
}

func newReader(buf []byte, limits Limits) *reader {
	return &reader{buf: buf, limits: limits}
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if n < 0 || r.remaining() < n {
		return malformed(r.pos, ErrTruncated)
	}
	return nil
}

func (r *reader) enter() error {
	r.depth++
	if r.depth > r.limits.MaxDepth {
		return malformed(r.pos, ErrTooDeep)
	}
	return nil
}

func (r *reader) leave() { r.depth-- }

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

func (r *reader) uvarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.buf[r.pos:])
	if n < 0 {
		return 0, malformed(r.pos, protowire.ParseError(n))
	}
	r.pos += n
	return v, nil
}

func (r *reader) zigzag() (int64, error) {
	v, err := r.uvarint()
	return protowire.DecodeZigZag(v), err
}

// skip advances past n bytes.
func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// bytes returns a copy of the next n bytes after checking n against the
// string limit.
func (r *reader) bytes(n int64) ([]byte, error) {
	if err := r.checkString(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:])
	r.pos += int(n)
	return out, nil
}

func (r *reader) checkString(n int64) error {
	if n < 0 {
		return malformed(r.pos, ErrNegativeLength)
	}
	if n > int64(r.limits.MaxStringBytes) {
		return malformed(r.pos, ErrLimitExceeded)
	}
	return r.need(int(n))
}

// checkCount validates a container count given the smallest encoded size of
// one element. Elements that may encode to zero bytes share one
// MaxContainerItems budget per payload.
func (r *reader) checkCount(n int64, minElem int) error {
	if n < 0 {
		return malformed(r.pos, ErrNegativeLength)
	}
	if n > int64(r.limits.MaxContainerItems) {
		return malformed(r.pos, ErrLimitExceeded)
	}
	if minElem == 0 {
		if n > int64(r.limits.MaxContainerItems-r.empty) {
			return malformed(r.pos, ErrLimitExceeded)
		}
		r.empty += int(n)
		return nil
	}
	if n*int64(minElem) > int64(r.remaining()) {
		return malformed(r.pos, ErrTruncated)
	}
	return nil
}
