package dto

import "github.com/danmuck/tracewire/internal/protocol/schema"

var (
	SqlMetaDataSchema = schema.NewBuilder("SqlMetaData", TypeSqlMetaData).
		DeclareField(1, "agentId", schema.TypeString, schema.Required).
		DeclareField(2, "agentStartTime", schema.TypeI64, schema.Required).
		DeclareField(4, "sqlId", schema.TypeI32, schema.Required).
		DeclareField(5, "sql", schema.TypeString, schema.Required).
		MustBuild()

	ApiMetaDataSchema = schema.NewBuilder("ApiMetaData", TypeApiMetaData).
		DeclareField(1, "agentId", schema.TypeString, schema.Required).
		DeclareField(2, "agentStartTime", schema.TypeI64, schema.Required).
		DeclareField(4, "apiId", schema.TypeI32, schema.Required).
		DeclareField(5, "apiInfo", schema.TypeString, schema.Required).
		DeclareField(6, "line", schema.TypeI32, schema.Optional).
		DeclareField(10, "type", schema.TypeI32, schema.Optional).
		MustBuild()

	StringMetaDataSchema = schema.NewBuilder("StringMetaData", TypeStringMetaData).
		DeclareField(1, "agentId", schema.TypeString, schema.Required).
		DeclareField(2, "agentStartTime", schema.TypeI64, schema.Required).
		DeclareField(4, "stringId", schema.TypeI32, schema.Required).
		DeclareField(5, "stringValue", schema.TypeString, schema.Required).
		MustBuild()
)

// AgentKey identifies the agent process that produced a metadata record.
type AgentKey struct {
	AgentID        string
	AgentStartTime int64
}

func newAgentStruct(s *schema.StructSchema, key AgentKey) *schema.Struct {
	m := schema.New(s)
	m.MustSet(1, key.AgentID)
	m.MustSet(2, key.AgentStartTime)
	return m
}

func agentKey(m *schema.Struct) AgentKey {
	return AgentKey{AgentID: str(m, 1), AgentStartTime: i64(m, 2)}
}

// SqlMetaData maps a sql id to its normalized statement text.
type SqlMetaData struct {
	message
}

func NewSqlMetaData(key AgentKey, sqlID int32, sql string) *SqlMetaData {
	m := newAgentStruct(SqlMetaDataSchema, key)
	m.MustSet(4, sqlID)
	m.MustSet(5, sql)
	return &SqlMetaData{message{m}}
}

func (m *SqlMetaData) Agent() AgentKey { return agentKey(m.s) }
func (m *SqlMetaData) SqlID() int32    { return i32(m.s, 4) }
func (m *SqlMetaData) Sql() string     { return str(m.s, 5) }

// ApiMetaData maps an api id to the instrumented method descriptor.
type ApiMetaData struct {
	message
}

func NewApiMetaData(key AgentKey, apiID int32, apiInfo string) *ApiMetaData {
	m := newAgentStruct(ApiMetaDataSchema, key)
	m.MustSet(4, apiID)
	m.MustSet(5, apiInfo)
	return &ApiMetaData{message{m}}
}

func (m *ApiMetaData) Agent() AgentKey { return agentKey(m.s) }
func (m *ApiMetaData) ApiID() int32    { return i32(m.s, 4) }
func (m *ApiMetaData) ApiInfo() string { return str(m.s, 5) }
func (m *ApiMetaData) SetLine(v int32) { m.s.MustSet(6, v) }
func (m *ApiMetaData) SetType(v int32) { m.s.MustSet(10, v) }
func (m *ApiMetaData) IsSetLine() bool { return m.s.IsSet(6) }

func (m *ApiMetaData) Line() (int32, bool) {
	return m.s.GetI32(6)
}

// StringMetaData maps a string id to a frequently repeated value.
type StringMetaData struct {
	message
}

func NewStringMetaData(key AgentKey, stringID int32, value string) *StringMetaData {
	m := newAgentStruct(StringMetaDataSchema, key)
	m.MustSet(4, stringID)
	m.MustSet(5, value)
	return &StringMetaData{message{m}}
}

func (m *StringMetaData) Agent() AgentKey     { return agentKey(m.s) }
func (m *StringMetaData) StringID() int32     { return i32(m.s, 4) }
func (m *StringMetaData) StringValue() string { return str(m.s, 5) }
