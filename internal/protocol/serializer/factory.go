// Package serializer binds a type registry and the payload codecs into
// envelope encoders and decoders.
package serializer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
)

var (
	ErrUnsupportedScheme = errors.New("serializer: unsupported scheme")
	ErrUnsupportedValue  = errors.New("serializer: value not owned by registry")
)

// UnsupportedSchemeError reports a scheme with no codec in the factory, or
// one the registered type does not accept. TypeCode is 0 when the whole
// factory lacks the codec.
type UnsupportedSchemeError struct {
	Scheme   codec.Scheme
	TypeCode uint16
}

func (e UnsupportedSchemeError) Error() string {
	if e.TypeCode == 0 {
		return fmt.Sprintf("serializer: no codec for scheme %s", e.Scheme)
	}
	return fmt.Sprintf("serializer: type code %d does not accept scheme %s", e.TypeCode, e.Scheme)
}

func (e UnsupportedSchemeError) Is(target error) bool {
	return target == ErrUnsupportedScheme
}

// Observer receives one call per envelope encoded or decoded. size is the
// envelope length; err is nil on success.
type Observer interface {
	Encoded(typeCode uint16, scheme codec.Scheme, size int, err error)
	Decoded(typeCode uint16, scheme codec.Scheme, size int, err error)
}

type nopObserver struct{}

func (nopObserver) Encoded(uint16, codec.Scheme, int, error) {}
func (nopObserver) Decoded(uint16, codec.Scheme, int, error) {}

// Factory is immutable after NewFactory and safe for concurrent use. The
// Serializers and Deserializers it creates are not.
type Factory struct {
	locator  registry.Locator
	scheme   codec.Scheme
	codecs   map[codec.Scheme]codec.Codec
	observer Observer
	pool     sync.Pool
}

type Option func(*Factory)

// WithScheme sets the scheme used by CreateSerializer and Serialize.
func WithScheme(s codec.Scheme) Option {
	return func(f *Factory) { f.scheme = s }
}

// WithCodecs replaces the codec set. Schemes without a codec are rejected
// with UnsupportedSchemeError.
func WithCodecs(codecs ...codec.Codec) Option {
	return func(f *Factory) {
		f.codecs = make(map[codec.Scheme]codec.Codec, len(codecs))
		for _, c := range codecs {
			f.codecs[c.Scheme()] = c
		}
	}
}

// WithLimits installs tag and compact codecs bounded by l.
func WithLimits(l codec.Limits) Option {
	return WithCodecs(codec.NewTagCodec(l), codec.NewCompactCodec(l))
}

func WithObserver(o Observer) Option {
	return func(f *Factory) {
		if o != nil {
			f.observer = o
		}
	}
}

// NewFactory returns a factory over loc. It defaults to the tag scheme with
// both codecs at default limits.
func NewFactory(loc registry.Locator, opts ...Option) (*Factory, error) {
	f := &Factory{
		locator:  loc,
		scheme:   codec.SchemeTag,
		observer: nopObserver{},
	}
	WithLimits(codec.DefaultLimits())(f)
	for _, opt := range opts {
		opt(f)
	}
	if _, ok := f.codecs[f.scheme]; !ok {
		return nil, UnsupportedSchemeError{Scheme: f.scheme}
	}
	f.pool.New = func() any { return f.CreateSerializer() }
	return f, nil
}

func (f *Factory) Locator() registry.Locator { return f.locator }
func (f *Factory) Scheme() codec.Scheme      { return f.scheme }

// IsSupport reports whether the registry owns v.
func (f *Factory) IsSupport(v any) bool {
	return f.locator.IsSupport(v)
}

func (f *Factory) CreateSerializer() *Serializer {
	return &Serializer{f: f, scheme: f.scheme}
}

func (f *Factory) CreateDeserializer() *Deserializer {
	return &Deserializer{f: f}
}

// Pair is a serializer and deserializer bound to one scheme.
type Pair struct {
	Serializer   *Serializer
	Deserializer *Deserializer
}

// Bind returns a pair for v when the registry owns it. ok is false, with a
// nil error, when it does not, so callers can try another factory. A
// scheme the factory or v's type cannot use fails with
// UnsupportedSchemeError.
func (f *Factory) Bind(v any, scheme codec.Scheme) (Pair, bool, error) {
	code, ok := f.locator.TypeCodeOf(v)
	if !ok {
		return Pair{}, false, nil
	}
	if _, err := f.codecFor(code, scheme); err != nil {
		return Pair{}, true, err
	}
	return Pair{
		Serializer:   &Serializer{f: f, scheme: scheme},
		Deserializer: &Deserializer{f: f},
	}, true, nil
}

// Serialize encodes msg in the factory scheme using a pooled Serializer.
func (f *Factory) Serialize(msg schema.Message) ([]byte, error) {
	s := f.pool.Get().(*Serializer)
	defer f.pool.Put(s)
	return s.Serialize(msg)
}

// Deserialize decodes one envelope.
func (f *Factory) Deserialize(b []byte) (schema.Message, error) {
	return f.CreateDeserializer().Deserialize(b)
}

func (f *Factory) codecFor(code uint16, scheme codec.Scheme) (codec.Codec, error) {
	c, ok := f.codecs[scheme]
	if !ok {
		return nil, UnsupportedSchemeError{Scheme: scheme}
	}
	if e, ok := f.locator.Lookup(code); ok && !e.SupportsScheme(scheme) {
		return nil, UnsupportedSchemeError{Scheme: scheme, TypeCode: code}
	}
	return c, nil
}
