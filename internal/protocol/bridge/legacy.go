package bridge

import (
	"fmt"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// LegacyResponse wraps an envelope received over the first-generation
// transport.
type LegacyResponse struct {
	Payload []byte
}

// EnvelopeDecoder is satisfied by serializer.Factory and
// serializer.Deserializer.
type EnvelopeDecoder interface {
	Deserialize(b []byte) (schema.Message, error)
}

// LegacyResultBridge recognizes LegacyResponse and decodes its envelope.
// The decoded message must itself implement Result.
type LegacyResultBridge struct {
	dec EnvelopeDecoder
}

func NewLegacyResultBridge(dec EnvelopeDecoder) *LegacyResultBridge {
	return &LegacyResultBridge{dec: dec}
}

func (b *LegacyResultBridge) Bridge(raw any) (Result, bool, error) {
	var payload []byte
	switch r := raw.(type) {
	case LegacyResponse:
		payload = r.Payload
	case *LegacyResponse:
		if r == nil {
			return nil, false, nil
		}
		payload = r.Payload
	default:
		return nil, false, nil
	}
	msg, err := b.dec.Deserialize(payload)
	if err != nil {
		return nil, true, &DecodeError{Source: "legacy", Err: err}
	}
	res, ok := msg.(Result)
	if !ok {
		return nil, true, &DecodeError{
			Source: "legacy",
			Err:    fmt.Errorf("%w: %s", ErrNotResult, msg.Struct().Schema().Name()),
		}
	}
	return res, true, nil
}
