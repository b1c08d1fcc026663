// Package codec encodes schema.Struct instances in the tag and compact wire
// schemes.
package codec

import (
	"fmt"
	"strings"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// Scheme selects a payload encoding. It is chosen by the caller and carried
// in the envelope version byte.
type Scheme uint8

const (
	// SchemeTag writes (type, id, value) per present field and a stop byte.
	// Readers skip ids they do not know, so peers may run different schema
	// versions.
	SchemeTag Scheme = iota + 1
	// SchemeCompact writes a presence bitmap and positional values with no
	// ids or tags. Writer and reader must run the same schema version for a
	// type; nothing in the payload detects a mismatch beyond length and
	// bitmap checks.
	SchemeCompact
)

func (s Scheme) String() string {
	switch s {
	case SchemeTag:
		return "tag"
	case SchemeCompact:
		return "compact"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme maps a config name to a Scheme.
func ParseScheme(raw string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tag", "binary":
		return SchemeTag, nil
	case "compact", "tuple":
		return SchemeCompact, nil
	default:
		return 0, fmt.Errorf("codec: unknown scheme %q", raw)
	}
}

// Limits bound what a decoder will allocate for one payload.
type Limits struct {
	MaxStringBytes    int
	MaxContainerItems int
	MaxDepth          int
}

func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes:    16 << 20,
		MaxContainerItems: 1 << 20,
		MaxDepth:          64,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxStringBytes <= 0 {
		l.MaxStringBytes = d.MaxStringBytes
	}
	if l.MaxContainerItems <= 0 {
		l.MaxContainerItems = d.MaxContainerItems
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	return l
}

// Codec encodes and decodes struct payloads in one scheme. Implementations
// hold only immutable limits and are safe for concurrent use.
type Codec interface {
	Scheme() Scheme
	// Encode appends the payload for m to dst.
	Encode(dst []byte, m *schema.Struct) ([]byte, error)
	// Decode replaces the contents of m with the payload in src.
	Decode(src []byte, m *schema.Struct) error
}

// New returns the codec for scheme s.
func New(s Scheme, limits Limits) (Codec, error) {
	switch s {
	case SchemeTag:
		return NewTagCodec(limits), nil
	case SchemeCompact:
		return NewCompactCodec(limits), nil
	default:
		return nil, fmt.Errorf("codec: no codec for %s", s)
	}
}
