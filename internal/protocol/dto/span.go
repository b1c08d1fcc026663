package dto

import "github.com/danmuck/tracewire/internal/protocol/schema"

var (
	AnnotationSchema = schema.NewBuilder("Annotation", 0).
		DeclareField(1, "key", schema.TypeI32, schema.Required).
		DeclareField(2, "value", schema.TypeString, schema.Optional).
		MustBuild()

	SpanSchema = schema.NewBuilder("Span", TypeSpan).
		DeclareField(1, "agentId", schema.TypeString, schema.Required).
		DeclareField(2, "applicationName", schema.TypeString, schema.Required).
		DeclareField(3, "agentStartTime", schema.TypeI64, schema.Required).
		DeclareField(4, "transactionId", schema.TypeBinary, schema.Optional).
		DeclareField(7, "spanId", schema.TypeI64, schema.Required).
		DeclareField(8, "parentSpanId", schema.TypeI64, schema.Default).
		DeclareField(9, "startTime", schema.TypeI64, schema.Required).
		DeclareField(10, "elapsed", schema.TypeI32, schema.Default).
		DeclareField(11, "rpc", schema.TypeString, schema.Optional).
		DeclareField(12, "serviceType", schema.TypeI16, schema.Required).
		DeclareField(13, "endPoint", schema.TypeString, schema.Optional).
		DeclareField(14, "remoteAddr", schema.TypeString, schema.Optional).
		DeclareList(15, "annotations", schema.TypeStruct, AnnotationSchema, schema.Optional).
		DeclareField(16, "flag", schema.TypeI16, schema.Default).
		DeclareField(17, "err", schema.TypeI32, schema.Optional).
		DeclareField(20, "apiId", schema.TypeI32, schema.Optional).
		DeclareField(25, "sampled", schema.TypeBool, schema.Optional).
		DeclareField(30, "exceptionRatio", schema.TypeDouble, schema.Optional).
		MustBuild()
)

// Span is one traced server-side request.
type Span struct {
	message
}

// SpanHeader carries the required identity fields of a span.
type SpanHeader struct {
	Agent           AgentKey
	ApplicationName string
	SpanID          int64
	StartTime       int64
	ServiceType     int16
}

func NewSpan(h SpanHeader) *Span {
	m := schema.New(SpanSchema)
	m.MustSet(1, h.Agent.AgentID)
	m.MustSet(2, h.ApplicationName)
	m.MustSet(3, h.Agent.AgentStartTime)
	m.MustSet(7, h.SpanID)
	m.MustSet(9, h.StartTime)
	m.MustSet(12, h.ServiceType)
	return &Span{message{m}}
}

func (m *Span) SpanID() int64             { return i64(m.s, 7) }
func (m *Span) ParentSpanID() int64       { return i64(m.s, 8) }
func (m *Span) SetParentSpanID(v int64)   { m.s.MustSet(8, v) }
func (m *Span) SetElapsed(v int32)        { m.s.MustSet(10, v) }
func (m *Span) SetRPC(v string)           { m.s.MustSet(11, v) }
func (m *Span) RPC() string               { return str(m.s, 11) }
func (m *Span) SetTransactionID(v []byte) { m.s.MustSet(4, v) }

func (m *Span) Elapsed() int32 {
	return i32(m.s, 10)
}

// AddAnnotation appends a key/value annotation.
func (m *Span) AddAnnotation(key int32, value string) {
	a := schema.New(AnnotationSchema)
	a.MustSet(1, key)
	a.MustSet(2, value)
	items, _ := m.s.GetList(15)
	m.s.MustSet(15, append(items, a))
}

// Annotations returns the annotation key/value pairs in order.
func (m *Span) Annotations() map[int32][]string {
	items, _ := m.s.GetList(15)
	out := make(map[int32][]string, len(items))
	for _, item := range items {
		a := item.(*schema.Struct)
		k := i32(a, 1)
		out[k] = append(out[k], str(a, 2))
	}
	return out
}
