package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Magic opens every batch frame ("TWB1").
	Magic          uint32 = 0x54574231
	BatchVersion   uint16 = 1
	FixedHeaderLen        = 19
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedBatch   = errors.New("frame: unsupported batch version")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrTooManyEntries     = errors.New("frame: too many entries")
	ErrTruncatedBody      = errors.New("frame: truncated body")
	ErrCorruptBody        = errors.New("frame: corrupt body")
	ErrUnknownCompression = errors.New("frame: unknown compression")
)

// Header is the fixed batch header. PayloadLen is the stored body size and
// RawLen the body size after decompression.
type Header struct {
	Magic       uint32
	Version     uint16
	Compression Compression
	Count       uint32
	RawLen      uint32
	PayloadLen  uint32
}

// Frame is one batch: a run of envelopes, each prefixed by a u32 length, so
// a reader can step over an entry it cannot decode.
type Frame struct {
	Header  Header
	Entries [][]byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
	MaxEntries      uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024 * 1024,
		MaxEntries:      1 << 20,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, ErrInvalidMagic
	}
	if h.Version != BatchVersion {
		return Frame{}, ErrUnsupportedBatch
	}
	if h.PayloadLen > limits.MaxPayloadBytes || h.RawLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}
	if h.Count > limits.MaxEntries {
		return Frame{}, ErrTooManyEntries
	}

	stored := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrTruncatedBody, err)
	}
	body, err := decompress(stored, h.Compression, int(h.RawLen))
	if err != nil {
		return Frame{}, err
	}
	entries, err := splitEntries(body, h.Count)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Entries: entries}, nil
}

// WriteFrame writes f.Entries compressed with f.Header.Compression. A body
// that does not shrink is stored uncompressed and flagged as such.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Entries)) > uint64(limits.MaxEntries) {
		return ErrTooManyEntries
	}
	size := 0
	for _, e := range f.Entries {
		size += 4 + len(e)
	}
	if uint64(size) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	body := make([]byte, 0, size)
	for _, e := range f.Entries {
		body = binary.BigEndian.AppendUint32(body, uint32(len(e)))
		body = append(body, e...)
	}

	h := f.Header
	h.Magic = Magic
	h.Version = BatchVersion
	h.Count = uint32(len(f.Entries))
	h.RawLen = uint32(len(body))
	stored, err := compress(body, h.Compression)
	if errors.Is(err, errIncompressible) {
		stored, h.Compression = body, CompressionNone
	} else if err != nil {
		return err
	}
	h.PayloadLen = uint32(len(stored))

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(stored) > 0 {
		if _, err := w.Write(stored); err != nil {
			return err
		}
	}
	return nil
}

func splitEntries(body []byte, count uint32) ([][]byte, error) {
	if uint64(count)*4 > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrTruncatedBody, count, len(body))
	}
	entries := make([][]byte, 0, count)
	pos := 0
	for i := uint32(0); i < count; i++ {
		if len(body)-pos < 4 {
			return nil, ErrTruncatedBody
		}
		n := int(binary.BigEndian.Uint32(body[pos:]))
		pos += 4
		if n < 0 || len(body)-pos < n {
			return nil, fmt.Errorf("%w: entry %d wants %d bytes", ErrTruncatedBody, i, n)
		}
		entries = append(entries, body[pos:pos+n:pos+n])
		pos += n
	}
	if pos != len(body) {
		return nil, fmt.Errorf("%w: %d bytes after last entry", ErrCorruptBody, len(body)-pos)
	}
	return entries, nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = uint8(h.Compression)
	binary.BigEndian.PutUint32(buf[7:11], h.Count)
	binary.BigEndian.PutUint32(buf[11:15], h.RawLen)
	binary.BigEndian.PutUint32(buf[15:19], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		Compression: Compression(b[6]),
		Count:       binary.BigEndian.Uint32(b[7:11]),
		RawLen:      binary.BigEndian.Uint32(b[11:15]),
		PayloadLen:  binary.BigEndian.Uint32(b[15:19]),
	}, nil
}
