package bridge

import (
	"errors"
	"testing"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
	"github.com/danmuck/tracewire/internal/testutil/testlog"
)

func TestGRPCResultBridge(t *testing.T) {
	testlog.Start(t)

	b := NewGRPCResultBridge()
	payload, err := MarshalPResult(true, "stored")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, ok, err := b.Bridge(ResponseMessage{Message: payload})
	if err != nil || !ok {
		t.Fatalf("bridge = %v,%v", ok, err)
	}
	if !res.IsSuccess() || res.Message() != "stored" {
		t.Fatalf("result = %v %q", res.IsSuccess(), res.Message())
	}

	res, ok, err = b.Bridge(&ResponseMessage{})
	if err != nil || !ok || res.IsSuccess() {
		t.Fatalf("empty payload should decode to a failed result: %v,%v", ok, err)
	}
}

func TestGRPCResultBridgeMalformed(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"truncated string", []byte{0x12, 0x05, 'a'}},
		{"truncated varint", []byte{0x08, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok, err := NewGRPCResultBridge().Bridge(ResponseMessage{Message: tt.payload})
			if !ok || res != nil {
				t.Fatalf("expected recognized wrapper without result, got %v,%v", res, ok)
			}
			var de *DecodeError
			if !errors.Is(err, ErrBridgeDecode) || !errors.As(err, &de) || de.Source != "grpc" {
				t.Fatalf("expected grpc DecodeError, got %v", err)
			}
		})
	}
}

func TestUnrelatedWrapperIsNoMatch(t *testing.T) {
	testlog.Start(t)

	for _, raw := range []any{nil, "text", []byte{1}, (*ResponseMessage)(nil), LegacyResponse{}} {
		res, ok, err := NewGRPCResultBridge().Bridge(raw)
		if res != nil || ok || err != nil {
			t.Fatalf("Bridge(%T) = %v,%v,%v want no match", raw, res, ok, err)
		}
	}
}

func newFactory(t *testing.T) *serializer.Factory {
	t.Helper()
	reg, err := dto.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	f, err := serializer.NewFactory(reg)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	return f
}

func TestChainServesBothGenerations(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	chain := Chain{NewGRPCResultBridge(), NewLegacyResultBridge(f)}

	env, err := f.Serialize(dto.NewResult(false, "quota exceeded"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	res, ok, err := chain.Bridge(LegacyResponse{Payload: env})
	if err != nil || !ok {
		t.Fatalf("legacy bridge = %v,%v", ok, err)
	}
	if res.IsSuccess() || res.Message() != "quota exceeded" {
		t.Fatalf("legacy result = %v %q", res.IsSuccess(), res.Message())
	}

	payload, _ := MarshalPResult(true, "")
	if res, ok, err := chain.Bridge(&ResponseMessage{Message: payload}); err != nil || !ok || !res.IsSuccess() {
		t.Fatalf("grpc via chain = %v,%v", ok, err)
	}

	if _, ok, err := chain.Bridge(42); ok || err != nil {
		t.Fatalf("chain should report no match, got %v,%v", ok, err)
	}
}

func TestLegacyBridgeErrors(t *testing.T) {
	testlog.Start(t)

	f := newFactory(t)
	b := NewLegacyResultBridge(f)

	_, ok, err := b.Bridge(LegacyResponse{Payload: []byte{0x10, 0x01}})
	if !ok || !errors.Is(err, ErrBridgeDecode) || !errors.Is(err, codec.ErrMalformedPayload) {
		t.Fatalf("expected malformed decode error, got %v,%v", ok, err)
	}

	_, ok, err = b.Bridge(&LegacyResponse{Payload: []byte{0x10, 0x7f, 0x7f, 0x00}})
	if !ok || !errors.Is(err, ErrBridgeDecode) || !errors.Is(err, registry.ErrUnknownType) {
		t.Fatalf("expected unknown type decode error, got %v,%v", ok, err)
	}

	env, err := f.Serialize(dto.NewIntStringValue(1))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	_, ok, err = b.Bridge(LegacyResponse{Payload: env})
	if !ok || !errors.Is(err, ErrNotResult) {
		t.Fatalf("expected ErrNotResult, got %v,%v", ok, err)
	}
}
