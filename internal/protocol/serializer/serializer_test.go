package serializer

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/danmuck/tracewire/internal/testutil/testlog"
)

func defaultRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := dto.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func newFactory(t *testing.T, opts ...Option) *Factory {
	t.Helper()
	f, err := NewFactory(defaultRegistry(t), opts...)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	return f
}

func TestIntStringRoundTripBothSchemes(t *testing.T) {
	testlog.Start(t)

	for _, scheme := range []codec.Scheme{codec.SchemeTag, codec.SchemeCompact} {
		t.Run(scheme.String(), func(t *testing.T) {
			f := newFactory(t, WithScheme(scheme))
			b, err := f.Serialize(dto.NewIntStringValue(5))
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			want, _ := frame.VersionFor(scheme)
			if b[0] != want {
				t.Fatalf("version byte = 0x%02x want 0x%02x", b[0], want)
			}
			msg, err := f.Deserialize(b)
			if err != nil {
				t.Fatalf("deserialize: %v", err)
			}
			v, ok := msg.(*dto.IntStringValue)
			if !ok {
				t.Fatalf("decoded %T", msg)
			}
			if v.IsSetStringValue() || v.IntValue() != 5 {
				t.Fatalf("decoded %s", v)
			}
		})
	}
}

func TestDeserializeAcceptsEitherScheme(t *testing.T) {
	testlog.Start(t)

	compact := newFactory(t, WithScheme(codec.SchemeCompact))
	tag := newFactory(t)
	span := dto.NewSpan(dto.SpanHeader{
		Agent:           dto.AgentKey{AgentID: "agent-1", AgentStartTime: 100},
		ApplicationName: "checkout",
		SpanID:          77,
		StartTime:       1000,
		ServiceType:     1010,
	})
	span.SetElapsed(12)
	span.AddAnnotation(40, "GET /cart")
	span.SetTransactionID([]byte{0xde, 0xad})

	b, err := compact.Serialize(span)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	msg, err := tag.Deserialize(b)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !msg.Struct().Equal(span.Struct()) {
		t.Fatalf("got %s want %s", msg.Struct(), span.Struct())
	}
}

func TestDeserializeErrors(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty", nil, codec.ErrMalformedPayload},
		{"bad version", []byte{0x01, 0x00, 0x14, 0x00}, codec.ErrMalformedPayload},
		{"unknown type", []byte{0x10, 0x03, 0xe7, 0x00}, registry.ErrUnknownType},
		{"truncated payload", []byte{0x10, 0x00, 0x14, 0x08, 0x00}, codec.ErrMalformedPayload},
		{"missing required", []byte{0x10, 0x00, 0x14, 0x00}, schema.ErrSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.Deserialize(tt.input)
			if msg != nil || !errors.Is(err, tt.want) {
				t.Fatalf("Deserialize = %v,%v want %v", msg, err, tt.want)
			}
		})
	}

	_, err := f.Deserialize([]byte{0x10, 0x03, 0xe7})
	var ute registry.UnknownTypeError
	if !errors.As(err, &ute) || ute.TypeCode != 999 || !IsUnknownType(err) {
		t.Fatalf("expected UnknownTypeError for 999, got %v", err)
	}
}

func TestSerializeErrors(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	if _, err := f.Serialize(schema.New(dto.SpanSchema)); !errors.Is(err, schema.ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	stray := schema.NewBuilder("Stray", 4242).MustBuild()
	if _, err := f.Serialize(schema.New(stray)); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue, got %v", err)
	}
	if _, err := f.Serialize(nil); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue for nil, got %v", err)
	}
}

func TestNilWrapperIsRejected(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	var nilValue *dto.IntStringValue
	if f.IsSupport(nilValue) {
		t.Fatalf("factory should not support a nil wrapper")
	}
	if _, err := f.Serialize(nilValue); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue, got %v", err)
	}
	if _, ok, err := f.Bind(nilValue, codec.SchemeTag); ok || err != nil {
		t.Fatalf("Bind(nil wrapper) = %v, %v", ok, err)
	}
	if _, err := f.CreateSerializer().EncodeBatch([]schema.Message{dto.NewIntStringValue(1), nilValue}, frame.CompressionNone); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected batch to reject nil wrapper, got %v", err)
	}
}

func TestUnsupportedScheme(t *testing.T) {
	testlog.Start(t)

	_, err := NewFactory(defaultRegistry(t),
		WithCodecs(codec.NewTagCodec(codec.Limits{})),
		WithScheme(codec.SchemeCompact))
	var use UnsupportedSchemeError
	if !errors.As(err, &use) || !errors.Is(err, ErrUnsupportedScheme) || use.Scheme != codec.SchemeCompact {
		t.Fatalf("expected UnsupportedSchemeError, got %v", err)
	}

	tagOnly := newFactory(t, WithCodecs(codec.NewTagCodec(codec.Limits{})))
	if _, _, err := tagOnly.Bind(dto.NewIntStringValue(1), codec.SchemeCompact); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme from Bind, got %v", err)
	}

	compactBytes, err := newFactory(t, WithScheme(codec.SchemeCompact)).Serialize(dto.NewIntStringValue(1))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := tagOnly.Deserialize(compactBytes); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme on decode, got %v", err)
	}

	b := registry.NewBuilder("restricted")
	if err := b.RegisterSchema(dto.ResultSchema, registry.WithSchemes(codec.SchemeTag)); err != nil {
		t.Fatalf("register: %v", err)
	}
	restricted, err := NewFactory(b.Build(), WithScheme(codec.SchemeCompact))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	_, err = restricted.Serialize(dto.NewResult(true, ""))
	if !errors.As(err, &use) || use.TypeCode != dto.TypeResult {
		t.Fatalf("expected per-type UnsupportedSchemeError, got %v", err)
	}
}

func TestBind(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	pair, ok, err := f.Bind("not a message", codec.SchemeTag)
	if ok || err != nil || pair.Serializer != nil {
		t.Fatalf("Bind(string) = %v,%v", ok, err)
	}

	tx := dto.NewFlinkTransaction()
	tx.SetSampledNewCount(3)
	pair, ok, err = f.Bind(tx, codec.SchemeCompact)
	if !ok || err != nil {
		t.Fatalf("Bind(tx) = %v,%v", ok, err)
	}
	if pair.Serializer.Scheme() != codec.SchemeCompact {
		t.Fatalf("bound scheme = %s", pair.Serializer.Scheme())
	}
	b, err := pair.Serializer.Serialize(tx)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	msg, err := pair.Deserializer.Deserialize(b)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := msg.(*dto.FlinkTransaction); !got.Equal(tx) {
		t.Fatalf("got %s want %s", got, tx)
	}
}

func TestScopedFactory(t *testing.T) {
	testlog.Start(t)

	base := defaultRegistry(t)
	flink, err := NewFactory(dto.FlinkRegistry(base))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	shared, err := NewFactory(base)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	tx := dto.NewFlinkTransaction()
	res := dto.NewResult(true, "")
	if !flink.IsSupport(tx) || flink.IsSupport(res) {
		t.Fatalf("flink scope ownership wrong")
	}
	if !shared.IsSupport(res) {
		t.Fatalf("base lost ownership of result")
	}

	b, err := shared.Serialize(res)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := flink.Deserialize(b); !errors.Is(err, registry.ErrUnknownType) {
		t.Fatalf("flink scope should not decode results, got %v", err)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	encoded int
	decoded []error
}

func (o *recordingObserver) Encoded(uint16, codec.Scheme, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.encoded++
}

func (o *recordingObserver) Decoded(_ uint16, _ codec.Scheme, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decoded = append(o.decoded, err)
}

func TestObserverAndConcurrentUse(t *testing.T) {
	testlog.Start(t)

	obs := &recordingObserver{}
	f := newFactory(t, WithObserver(obs))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := dto.NewIntStringValue(int32(i))
			b, err := f.Serialize(v)
			if err != nil {
				errs <- err
				return
			}
			msg, err := f.Deserialize(b)
			if err != nil {
				errs <- err
				return
			}
			if !msg.(*dto.IntStringValue).Equal(v) {
				errs <- errors.New("round trip mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use: %v", err)
	}

	if _, err := f.Deserialize([]byte{0x10}); err == nil {
		t.Fatalf("expected error")
	}
	if obs.encoded != 16 || len(obs.decoded) != 17 || obs.decoded[16] == nil {
		t.Fatalf("observer saw encoded=%d decoded=%d", obs.encoded, len(obs.decoded))
	}
}

func TestBatchSkipsUnknownTypes(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	msgs := []schema.Message{
		dto.NewIntStringValue(1),
		dto.NewStringMetaData(dto.AgentKey{AgentID: "a", AgentStartTime: 1}, 7, "select"),
		dto.NewResult(true, "ok"),
	}
	var buf bytes.Buffer
	if err := f.WriteBatch(&buf, msgs, frame.CompressionZstd, frame.DefaultLimits()); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	// A peer that only knows int-string values and results.
	b := registry.NewBuilder("narrow")
	if err := b.RegisterSchema(dto.IntStringValueSchema); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.RegisterSchema(dto.ResultSchema); err != nil {
		t.Fatalf("register: %v", err)
	}
	narrow, err := NewFactory(b.Build())
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	res, err := narrow.ReadBatch(&buf, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(res.Messages) != 2 || len(res.Skipped) != 1 || res.Skipped[0] != dto.TypeStringMetaData {
		t.Fatalf("batch result: %d messages, skipped %v", len(res.Messages), res.Skipped)
	}
	if _, err := narrow.ReadBatch(&buf, frame.DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBatchFailsOnMalformedEntry(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	good, err := f.Serialize(dto.NewIntStringValue(1))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	fr := frame.Frame{Entries: [][]byte{good, good[:len(good)-1]}}
	_, err = f.CreateDeserializer().DecodeBatch(fr)
	if !errors.Is(err, codec.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}
