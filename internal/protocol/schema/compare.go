package schema

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Equal reports whether m and o hold the same schema, agree on presence for
// every field, and hold equal values wherever both are set.
func (m *Struct) Equal(o *Struct) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil || m.schema != o.schema {
		return false
	}
	for i := range m.slots {
		a, b := m.slots[i], o.slots[i]
		if a.set != b.set {
			return false
		}
		if a.set && compareValues(a.value, b.value) != 0 {
			return false
		}
	}
	return true
}

// Compare orders instances of the same schema field by field in ascending
// id order. An absent field sorts before a present one; when both are present
// their values decide. Instances of different schemas order by schema name.
func (m *Struct) Compare(o *Struct) int {
	if m.schema != o.schema {
		return cmp.Compare(m.schema.name, o.schema.name)
	}
	for _, i := range m.schema.idOrder {
		a, b := m.slots[i], o.slots[i]
		if a.set != b.set {
			if a.set {
				return 1
			}
			return -1
		}
		if !a.set {
			continue
		}
		if c := compareValues(a.value, b.value); c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int8:
		return cmp.Compare(x, b.(int8))
	case int16:
		return cmp.Compare(x, b.(int16))
	case int32:
		return cmp.Compare(x, b.(int32))
	case int64:
		return cmp.Compare(x, b.(int64))
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	case *Struct:
		return x.Compare(b.(*Struct))
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compareValues(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	}
	return 0
}

// Describe renders the instance for diagnostics: required and default fields
// always, optional fields only when present. The output is not parseable.
func (m *Struct) Describe() string {
	var b strings.Builder
	m.describe(&b)
	return b.String()
}

func (m *Struct) String() string { return m.Describe() }

func (m *Struct) describe(b *strings.Builder) {
	b.WriteString(m.schema.name)
	b.WriteByte('(')
	first := true
	for i, f := range m.schema.fields {
		sl := m.slots[i]
		if f.Requiredness == Optional && !sl.set {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(f.Name)
		b.WriteByte(':')
		if !sl.set {
			b.WriteString("null")
			continue
		}
		describeValue(b, sl.value)
	}
	b.WriteByte(')')
}

func describeValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case string:
		b.WriteString(strconv.Quote(x))
	case []byte:
		b.WriteString(hex.EncodeToString(x))
	case *Struct:
		x.describe(b)
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			describeValue(b, e)
		}
		b.WriteByte(']')
	default:
		fmt.Fprint(b, x)
	}
}
