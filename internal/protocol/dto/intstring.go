package dto

import "github.com/danmuck/tracewire/internal/protocol/schema"

var IntStringValueSchema = schema.NewBuilder("IntStringValue", TypeIntStringValue).
	DeclareField(1, "intValue", schema.TypeI32, schema.Required).
	DeclareField(2, "stringValue", schema.TypeString, schema.Optional).
	MustBuild()

// IntStringValue pairs a required int with an optional string.
type IntStringValue struct {
	message
}

func NewIntStringValue(v int32) *IntStringValue {
	m := &IntStringValue{message{schema.New(IntStringValueSchema)}}
	m.SetIntValue(v)
	return m
}

func (m *IntStringValue) IntValue() int32         { return i32(m.s, 1) }
func (m *IntStringValue) SetIntValue(v int32)     { m.s.MustSet(1, v) }
func (m *IntStringValue) StringValue() string     { return str(m.s, 2) }
func (m *IntStringValue) SetStringValue(v string) { m.s.MustSet(2, v) }
func (m *IntStringValue) IsSetStringValue() bool  { return m.s.IsSet(2) }
func (m *IntStringValue) UnsetStringValue()       { m.s.Unset(2) }

func (m *IntStringValue) Equal(o *IntStringValue) bool {
	return o != nil && m.s.Equal(o.s)
}

func (m *IntStringValue) Compare(o *IntStringValue) int {
	return m.s.Compare(o.s)
}

func (m *IntStringValue) DeepCopy() *IntStringValue {
	return &IntStringValue{message{m.s.DeepCopy()}}
}
