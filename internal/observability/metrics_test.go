package observability

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/danmuck/tracewire/internal/protocol/bridge"
	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
	"github.com/danmuck/tracewire/internal/testutil/testlog"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()
	NewCodecMetrics()
}

func TestCodecMetricsObserveFactory(t *testing.T) {
	testlog.Start(t)

	reg, err := dto.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	f, err := serializer.NewFactory(reg, serializer.WithObserver(NewCodecMetrics()))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	code := fmt.Sprint(dto.TypeIntStringValue)
	encOK := codecEncodes.WithLabelValues(code, "tag", "ok")
	decOK := codecDecodes.WithLabelValues(code, "tag", "ok")
	decUnknown := codecDecodes.WithLabelValues("32767", "tag", "unknown_type")
	beforeEnc, beforeDec, beforeUnknown := testutil.ToFloat64(encOK), testutil.ToFloat64(decOK), testutil.ToFloat64(decUnknown)

	env, err := f.Serialize(dto.NewIntStringValue(3))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := f.Deserialize(env); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if _, err := f.Deserialize([]byte{0x10, 0x7f, 0xff, 0x00}); !errors.Is(err, registry.ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", err)
	}

	if got := testutil.ToFloat64(encOK) - beforeEnc; got != 1 {
		t.Fatalf("encode ok delta = %v", got)
	}
	if got := testutil.ToFloat64(decOK) - beforeDec; got != 1 {
		t.Fatalf("decode ok delta = %v", got)
	}
	if got := testutil.ToFloat64(decUnknown) - beforeUnknown; got != 1 {
		t.Fatalf("decode unknown delta = %v", got)
	}
}

func TestResultLabel(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{registry.UnknownTypeError{Registry: "r", TypeCode: 9}, "unknown_type"},
		{serializer.UnsupportedSchemeError{Scheme: codec.SchemeCompact, TypeCode: 9}, "unsupported_scheme"},
		{&codec.MalformedPayloadError{Err: codec.ErrTruncated}, "malformed"},
		{schema.ValidationError{Struct: "Result", FieldID: 1, Path: "success"}, "schema_violation"},
		{serializer.ErrUnsupportedValue, "unsupported_value"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := ResultLabel(tt.err); got != tt.want {
			t.Fatalf("ResultLabel(%v) = %q want %q", tt.err, got, tt.want)
		}
	}
}

func TestBridgeMiddleware(t *testing.T) {
	testlog.Start(t)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	inner := bridge.Func(func(raw any) (bridge.Result, bool, error) {
		switch raw {
		case "ok":
			return bridge.NewResult(true, ""), true, nil
		case "rejected":
			return bridge.NewResult(false, "quota"), true, nil
		case "broken":
			return nil, true, &bridge.DecodeError{Source: "test", Err: errors.New("bad bytes")}
		}
		return nil, false, nil
	})
	b := BridgeMetrics("test", BridgeLogger(logger, "test", inner))

	ok := bridgeResults.WithLabelValues("test", "ok")
	decodeErr := bridgeResults.WithLabelValues("test", "decode_error")
	noMatch := bridgeResults.WithLabelValues("test", "no_match")
	beforeOK, beforeErr, beforeNone := testutil.ToFloat64(ok), testutil.ToFloat64(decodeErr), testutil.ToFloat64(noMatch)

	for _, raw := range []any{"ok", "rejected", "broken", 42} {
		start := time.Now()
		_, _, _ = b.Bridge(raw)
		if time.Since(start) > time.Second {
			t.Fatalf("bridge call too slow")
		}
	}

	if testutil.ToFloat64(ok)-beforeOK != 2 || testutil.ToFloat64(decodeErr)-beforeErr != 1 || testutil.ToFloat64(noMatch)-beforeNone != 1 {
		t.Fatalf("unexpected bridge counters")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `"result_message":"quota"`) || !strings.Contains(lines[2], `"level":"warn"`) {
		t.Fatalf("unexpected log lines: %s", buf.String())
	}
}

func TestRecordBatch(t *testing.T) {
	testlog.Start(t)

	skipped := batchEntries.WithLabelValues("skipped")
	before := testutil.ToFloat64(skipped)
	RecordBatch(serializer.BatchResult{Skipped: []uint16{40, 9999}})
	if got := testutil.ToFloat64(skipped) - before; got != 2 {
		t.Fatalf("skipped delta = %v", got)
	}
}
