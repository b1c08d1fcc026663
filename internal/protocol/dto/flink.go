package dto

import "github.com/danmuck/tracewire/internal/protocol/schema"

var (
	FlinkAgentStatSchema = schema.NewBuilder("FlinkAgentStat", TypeFlinkAgentStat).
		DeclareField(1, "agentId", schema.TypeString, schema.Required).
		DeclareField(2, "startTimestamp", schema.TypeI64, schema.Default).
		DeclareField(3, "timestamp", schema.TypeI64, schema.Default).
		DeclareField(4, "jvmCpuLoad", schema.TypeDouble, schema.Optional).
		DeclareField(5, "systemCpuLoad", schema.TypeDouble, schema.Optional).
		MustBuild()

	// Field ids start at 2; id 1 was retired and must not be reused.
	FlinkTransactionSchema = schema.NewBuilder("FlinkTransaction", TypeFlinkTransaction).
		DeclareField(2, "sampledNewCount", schema.TypeI64, schema.Optional).
		DeclareField(3, "sampledContinuationCount", schema.TypeI64, schema.Optional).
		DeclareField(4, "unsampledNewCount", schema.TypeI64, schema.Optional).
		DeclareField(5, "unsampledContinuationCount", schema.TypeI64, schema.Optional).
		MustBuild()
)

// FlinkAgentStat is a per-agent resource sample for stream aggregation.
type FlinkAgentStat struct {
	message
}

func NewFlinkAgentStat(agentID string, timestamp int64) *FlinkAgentStat {
	m := schema.New(FlinkAgentStatSchema)
	m.MustSet(1, agentID)
	m.MustSet(3, timestamp)
	return &FlinkAgentStat{message{m}}
}

func (m *FlinkAgentStat) AgentID() string            { return str(m.s, 1) }
func (m *FlinkAgentStat) Timestamp() int64           { return i64(m.s, 3) }
func (m *FlinkAgentStat) SetJvmCpuLoad(v float64)    { m.s.MustSet(4, v) }
func (m *FlinkAgentStat) SetSystemCpuLoad(v float64) { m.s.MustSet(5, v) }

func (m *FlinkAgentStat) JvmCpuLoad() (float64, bool) {
	return m.s.GetDouble(4)
}

// FlinkTransaction counts new and continued transactions, split by
// sampling decision.
type FlinkTransaction struct {
	message
}

func NewFlinkTransaction() *FlinkTransaction {
	return &FlinkTransaction{message{schema.New(FlinkTransactionSchema)}}
}

func (m *FlinkTransaction) SampledNewCount() int64              { return i64(m.s, 2) }
func (m *FlinkTransaction) SetSampledNewCount(v int64)          { m.s.MustSet(2, v) }
func (m *FlinkTransaction) IsSetSampledNewCount() bool          { return m.s.IsSet(2) }
func (m *FlinkTransaction) SampledContinuationCount() int64     { return i64(m.s, 3) }
func (m *FlinkTransaction) SetSampledContinuationCount(v int64) { m.s.MustSet(3, v) }
func (m *FlinkTransaction) UnsampledNewCount() int64            { return i64(m.s, 4) }
func (m *FlinkTransaction) SetUnsampledNewCount(v int64)        { m.s.MustSet(4, v) }
func (m *FlinkTransaction) UnsampledContinuationCount() int64   { return i64(m.s, 5) }
func (m *FlinkTransaction) SetUnsampledContinuationCount(v int64) {
	m.s.MustSet(5, v)
}

func (m *FlinkTransaction) Equal(o *FlinkTransaction) bool {
	return o != nil && m.s.Equal(o.s)
}
