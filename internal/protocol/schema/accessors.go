package schema

// Typed getters return the zero value and false when the field is absent or
// holds another type.

func (m *Struct) GetBool(id int16) (bool, bool) {
	v, ok := m.Get(id)
	b, ok2 := v.(bool)
	return b, ok && ok2
}

func (m *Struct) GetByte(id int16) (int8, bool) {
	v, ok := m.Get(id)
	n, ok2 := v.(int8)
	return n, ok && ok2
}

func (m *Struct) GetI16(id int16) (int16, bool) {
	v, ok := m.Get(id)
	n, ok2 := v.(int16)
	return n, ok && ok2
}

func (m *Struct) GetI32(id int16) (int32, bool) {
	v, ok := m.Get(id)
	n, ok2 := v.(int32)
	return n, ok && ok2
}

func (m *Struct) GetI64(id int16) (int64, bool) {
	v, ok := m.Get(id)
	n, ok2 := v.(int64)
	return n, ok && ok2
}

func (m *Struct) GetDouble(id int16) (float64, bool) {
	v, ok := m.Get(id)
	f, ok2 := v.(float64)
	return f, ok && ok2
}

func (m *Struct) GetString(id int16) (string, bool) {
	v, ok := m.Get(id)
	s, ok2 := v.(string)
	return s, ok && ok2
}

func (m *Struct) GetBinary(id int16) ([]byte, bool) {
	v, ok := m.Get(id)
	b, ok2 := v.([]byte)
	return b, ok && ok2
}

func (m *Struct) GetStruct(id int16) (*Struct, bool) {
	v, ok := m.Get(id)
	s, ok2 := v.(*Struct)
	return s, ok && ok2
}

func (m *Struct) GetList(id int16) ([]any, bool) {
	v, ok := m.Get(id)
	l, ok2 := v.([]any)
	return l, ok && ok2
}
