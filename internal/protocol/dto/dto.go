// Package dto declares the telemetry message schemas carried over the wire
// and typed wrappers over their generic instances.
package dto

import (
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// Type codes written in the envelope header.
const (
	TypeIntStringValue   uint16 = 20
	TypeSpan             uint16 = 40
	TypeSqlMetaData      uint16 = 300
	TypeApiMetaData      uint16 = 310
	TypeResult           uint16 = 320
	TypeStringMetaData   uint16 = 330
	TypeFlinkAgentStat   uint16 = 1000
	TypeFlinkTransaction uint16 = 1003
)

// message is embedded by every wrapper.
type message struct {
	s *schema.Struct
}

func (m message) Struct() *schema.Struct { return m.s }
func (m message) Validate() error        { return m.s.Validate() }
func (m message) String() string         { return m.s.Describe() }

func i32(m *schema.Struct, id int16) int32 {
	v, _ := m.GetI32(id)
	return v
}

func i64(m *schema.Struct, id int16) int64 {
	v, _ := m.GetI64(id)
	return v
}

func str(m *schema.Struct, id int16) string {
	v, _ := m.GetString(id)
	return v
}

// DefaultRegistry holds every schema in this package.
func DefaultRegistry() (*registry.Registry, error) {
	b := registry.NewBuilder("default")
	if err := RegisterDefaults(b); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// RegisterDefaults adds every schema in this package to b with a factory
// returning its typed wrapper.
func RegisterDefaults(b *registry.Builder) error {
	regs := []struct {
		code    uint16
		factory registry.DecoderFactory
	}{
		{TypeIntStringValue, func() schema.Message { return &IntStringValue{message{schema.New(IntStringValueSchema)}} }},
		{TypeSpan, func() schema.Message { return &Span{message{schema.New(SpanSchema)}} }},
		{TypeSqlMetaData, func() schema.Message { return &SqlMetaData{message{schema.New(SqlMetaDataSchema)}} }},
		{TypeApiMetaData, func() schema.Message { return &ApiMetaData{message{schema.New(ApiMetaDataSchema)}} }},
		{TypeResult, func() schema.Message { return &Result{message{schema.New(ResultSchema)}} }},
		{TypeStringMetaData, func() schema.Message { return &StringMetaData{message{schema.New(StringMetaDataSchema)}} }},
		{TypeFlinkAgentStat, func() schema.Message { return &FlinkAgentStat{message{schema.New(FlinkAgentStatSchema)}} }},
		{TypeFlinkTransaction, func() schema.Message { return &FlinkTransaction{message{schema.New(FlinkTransactionSchema)}} }},
	}
	for _, r := range regs {
		if err := b.Register(r.code, r.factory, nil); err != nil {
			return err
		}
	}
	return nil
}

// FlinkTypeCodes are the types forwarded to the stream aggregation
// consumer.
var FlinkTypeCodes = []uint16{TypeFlinkAgentStat, TypeFlinkTransaction}

// FlinkRegistry scopes base to the flink message set.
func FlinkRegistry(base registry.Locator) *registry.Scoped {
	return registry.NewScoped("flink", base, FlinkTypeCodes, nil)
}
