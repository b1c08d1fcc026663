package serializer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// Serializer writes envelopes in one scheme. It reuses a working buffer
// between calls and must not be used from two goroutines at once.
type Serializer struct {
	f      *Factory
	scheme codec.Scheme
	buf    []byte
}

func (s *Serializer) Scheme() codec.Scheme { return s.scheme }

// Serialize validates msg and returns a freshly allocated envelope.
func (s *Serializer) Serialize(msg schema.Message) ([]byte, error) {
	st := schema.StructOf(msg)
	if st == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnsupportedValue)
	}
	code, ok := s.f.locator.TypeCodeOf(msg)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnsupportedValue, st.Schema().Name(), s.f.locator.Name())
	}
	out, err := s.encode(code, st)
	s.f.observer.Encoded(code, s.scheme, len(out), err)
	return out, err
}

func (s *Serializer) encode(code uint16, st *schema.Struct) ([]byte, error) {
	c, err := s.f.codecFor(code, s.scheme)
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	version, err := frame.VersionFor(s.scheme)
	if err != nil {
		return nil, UnsupportedSchemeError{Scheme: s.scheme}
	}
	buf := frame.AppendEnvelopeHeader(s.buf[:0], frame.EnvelopeHeader{Version: version, TypeCode: code})
	buf, err = c.Encode(buf, st)
	if err != nil {
		return nil, err
	}
	s.buf = buf
	return bytes.Clone(buf), nil
}

// Deserializer reads envelopes in any scheme the factory has a codec for.
type Deserializer struct {
	f *Factory
}

// Deserialize parses the envelope header, looks the type code up and decodes
// the payload into a fresh instance from the registered factory. Errors
// match codec.ErrMalformedPayload, registry.ErrUnknownType,
// ErrUnsupportedScheme or schema.ErrSchemaViolation.
func (d *Deserializer) Deserialize(b []byte) (schema.Message, error) {
	h, payload, err := frame.DecodeEnvelopeHeader(b)
	if err != nil {
		err = &codec.MalformedPayloadError{Err: err}
		d.f.observer.Decoded(0, 0, len(b), err)
		return nil, err
	}
	scheme, _ := h.Scheme()
	msg, err := d.decode(h.TypeCode, scheme, payload)
	d.f.observer.Decoded(h.TypeCode, scheme, len(b), err)
	return msg, err
}

func (d *Deserializer) decode(code uint16, scheme codec.Scheme, payload []byte) (schema.Message, error) {
	entry, ok := d.f.locator.Lookup(code)
	if !ok {
		return nil, registry.UnknownTypeError{Registry: d.f.locator.Name(), TypeCode: code}
	}
	c, err := d.f.codecFor(code, scheme)
	if err != nil {
		return nil, err
	}
	msg := entry.New()
	if err := c.Decode(payload, msg.Struct()); err != nil {
		log.Debug().Uint16("type_code", code).Str("scheme", scheme.String()).Err(err).Msg("decode failed")
		return nil, err
	}
	if err := msg.Struct().Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// IsUnknownType reports whether err came from an unregistered type code.
func IsUnknownType(err error) bool {
	return errors.Is(err, registry.ErrUnknownType)
}
