package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/tracewire/internal/protocol/codec"
)

// Envelope version bytes. The version names the payload scheme so a reader
// never applies one scheme's decoder to the other's bytes.
const (
	VersionTag     uint8 = 0x10
	VersionCompact uint8 = 0x11

	// EnvelopeHeaderLen is version:u8 followed by typeCode:u16 big-endian.
	EnvelopeHeaderLen = 3
)

var (
	ErrShortEnvelope      = errors.New("frame: envelope shorter than header")
	ErrUnsupportedVersion = errors.New("frame: unsupported envelope version")
)

// Envelope header preceding every encoded struct.
type EnvelopeHeader struct {
	Version  uint8
	TypeCode uint16
}

// VersionFor returns the envelope version byte for scheme s.
func VersionFor(s codec.Scheme) (uint8, error) {
	switch s {
	case codec.SchemeTag:
		return VersionTag, nil
	case codec.SchemeCompact:
		return VersionCompact, nil
	default:
		return 0, fmt.Errorf("%w: no version for %s", ErrUnsupportedVersion, s)
	}
}

// Scheme returns the payload scheme named by the version byte.
func (h EnvelopeHeader) Scheme() (codec.Scheme, error) {
	switch h.Version {
	case VersionTag:
		return codec.SchemeTag, nil
	case VersionCompact:
		return codec.SchemeCompact, nil
	default:
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, h.Version)
	}
}

// AppendEnvelopeHeader appends the encoded header to dst.
func AppendEnvelopeHeader(dst []byte, h EnvelopeHeader) []byte {
	dst = append(dst, h.Version)
	return binary.BigEndian.AppendUint16(dst, h.TypeCode)
}

// DecodeEnvelopeHeader parses the header only and returns the undecoded
// payload that follows it. The version is checked; the type code is not.
func DecodeEnvelopeHeader(b []byte) (EnvelopeHeader, []byte, error) {
	if len(b) < EnvelopeHeaderLen {
		return EnvelopeHeader{}, nil, ErrShortEnvelope
	}
	h := EnvelopeHeader{
		Version:  b[0],
		TypeCode: binary.BigEndian.Uint16(b[1:3]),
	}
	if _, err := h.Scheme(); err != nil {
		return EnvelopeHeader{}, nil, err
	}
	return h, b[EnvelopeHeaderLen:], nil
}
