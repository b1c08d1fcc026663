package dto

import "github.com/danmuck/tracewire/internal/protocol/schema"

var ResultSchema = schema.NewBuilder("Result", TypeResult).
	DeclareField(1, "success", schema.TypeBool, schema.Required).
	DeclareField(2, "message", schema.TypeString, schema.Optional).
	MustBuild()

// Result is the acknowledgement a collector sends back for a request.
type Result struct {
	message
}

func NewResult(success bool, msg string) *Result {
	m := &Result{message{schema.New(ResultSchema)}}
	m.s.MustSet(1, success)
	if msg != "" {
		m.s.MustSet(2, msg)
	}
	return m
}

func (m *Result) IsSuccess() bool {
	v, _ := m.s.GetBool(1)
	return v
}

func (m *Result) Message() string { return str(m.s, 2) }
