package schema

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/danmuck/tracewire/internal/testutil/testlog"
)

var (
	testNote = NewBuilder("Note", 0).
		DeclareField(1, "key", TypeI32, Required).
		DeclareField(2, "text", TypeString, Optional).
		MustBuild()

	testIntString = NewBuilder("IntStringValue", 1).
		DeclareField(1, "intValue", TypeI32, Required).
		DeclareField(2, "stringValue", TypeString, Optional).
		MustBuild()

	testEvent = NewBuilder("Event", 2).
		DeclareField(1, "id", TypeI64, Required).
		DeclareField(2, "flag", TypeBool, Default).
		DeclareField(3, "blob", TypeBinary, Optional).
		DeclareStruct(4, "note", testNote, Optional).
		DeclareList(5, "notes", TypeStruct, testNote, Optional).
		MustBuild()
)

func TestBuilderRejectsDuplicates(t *testing.T) {
	testlog.Start(t)

	_, err := NewBuilder("Dup", 9).
		DeclareField(1, "a", TypeI32, Required).
		DeclareField(1, "b", TypeI32, Optional).
		Build()
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}

	_, err = NewBuilder("Map", 9).DeclareField(1, "m", TypeMap, Optional).Build()
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}

	_, err = NewBuilder("Nested", 9).DeclareStruct(1, "n", nil, Optional).Build()
	if !errors.Is(err, ErrMissingSchema) {
		t.Fatalf("expected ErrMissingSchema, got %v", err)
	}
}

func TestPresenceFieldsFollowDeclaredOrder(t *testing.T) {
	testlog.Start(t)

	got := testEvent.PresenceFields()
	want := []int{1, 2, 3, 4}
	if !slices.Equal(got, want) {
		t.Fatalf("presence fields = %v want %v", got, want)
	}
}

func TestSetUnsetPresence(t *testing.T) {
	testlog.Start(t)

	m := New(testIntString)
	if m.IsSet(2) {
		t.Fatalf("fresh instance reports stringValue set")
	}
	if err := m.Set(2, ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !m.IsSet(2) {
		t.Fatalf("empty string should still be present")
	}
	m.Unset(2)
	if v, ok := m.Get(2); ok || v != nil {
		t.Fatalf("unset should clear value and presence, got %v,%v", v, ok)
	}
	if err := m.Set(2, nil); err != nil || m.IsSet(2) {
		t.Fatalf("nil set should unset: %v", err)
	}
}

func TestSetRejectsWrongType(t *testing.T) {
	testlog.Start(t)

	m := New(testIntString)
	err := m.Set(1, "five")
	var verr ValueError
	if !errors.As(err, &verr) || !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ValueError, got %v", err)
	}
	if err := m.Set(1, 1<<40); err == nil {
		t.Fatalf("expected overflow rejection")
	}
	if err := m.Set(7, int32(1)); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := m.Set(1, 5); err != nil {
		t.Fatalf("plain int should normalize: %v", err)
	}
	if v, ok := m.GetI32(1); !ok || v != 5 {
		t.Fatalf("GetI32 = %d,%v", v, ok)
	}
}

func TestValidateRequired(t *testing.T) {
	testlog.Start(t)

	m := New(testEvent)
	err := m.Validate()
	var verr ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.FieldID != 1 {
		t.Fatalf("expected field 1, got %d", verr.FieldID)
	}

	m.MustSet(1, int64(10))
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	m.MustSet(5, []any{New(testNote)})
	err = m.Validate()
	if !errors.As(err, &verr) || verr.Path != "notes[0].key" {
		t.Fatalf("expected nested path, got %v", err)
	}
}

func TestEqualIsPresenceSensitive(t *testing.T) {
	testlog.Start(t)

	a := New(testIntString)
	a.MustSet(1, int32(5))
	b := New(testIntString)
	b.MustSet(1, int32(5))
	b.MustSet(2, "")

	if a.Equal(b) {
		t.Fatalf("absent and empty optional must differ")
	}
	b.Unset(2)
	if !a.Equal(b) {
		t.Fatalf("expected equal after unset")
	}
}

func TestCompareAbsentSortsFirst(t *testing.T) {
	testlog.Start(t)

	mk := func(i int32, s *string) *Struct {
		m := New(testIntString)
		m.MustSet(1, i)
		if s != nil {
			m.MustSet(2, *s)
		}
		return m
	}
	empty, b := "", "b"
	items := []*Struct{mk(2, nil), mk(1, &b), mk(1, nil), mk(1, &empty)}
	slices.SortFunc(items, (*Struct).Compare)

	var got []string
	for _, m := range items {
		got = append(got, m.Describe())
	}
	want := []string{
		"IntStringValue(intValue:1)",
		`IntStringValue(intValue:1, stringValue:"")`,
		`IntStringValue(intValue:1, stringValue:"b")`,
		"IntStringValue(intValue:2)",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("order = %v want %v", got, want)
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	testlog.Start(t)

	note := New(testNote)
	note.MustSet(1, int32(3))
	m := New(testEvent)
	m.MustSet(1, int64(1))
	m.MustSet(3, []byte{1, 2})
	m.MustSet(4, note)
	m.MustSet(5, []any{note.DeepCopy()})

	cp := m.DeepCopy()
	if !cp.Equal(m) {
		t.Fatalf("copy differs: %s vs %s", cp, m)
	}
	blob, _ := m.GetBinary(3)
	blob[0] = 9
	note.MustSet(2, "changed")
	if cp.Equal(m) {
		t.Fatalf("copy shares state with original")
	}
	if b, _ := cp.GetBinary(3); b[0] != 1 {
		t.Fatalf("binary not copied")
	}
	if n, _ := cp.GetStruct(4); n.IsSet(2) {
		t.Fatalf("nested struct not copied")
	}
}

func TestDescribe(t *testing.T) {
	testlog.Start(t)

	m := New(testEvent)
	m.MustSet(1, int64(7))
	got := m.Describe()
	if got != "Event(id:7, flag:null)" {
		t.Fatalf("describe = %q", got)
	}
	m.MustSet(3, []byte{0xab})
	if !strings.Contains(m.String(), "blob:ab") {
		t.Fatalf("describe missing blob: %q", m.String())
	}
}

func TestClear(t *testing.T) {
	testlog.Start(t)

	m := New(testIntString)
	m.MustSet(1, int32(1))
	m.MustSet(2, "x")
	m.Clear()
	if m.IsSet(1) || m.IsSet(2) {
		t.Fatalf("clear left fields set")
	}
}
