package schema

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaViolation = errors.New("schema: required field absent")
	ErrUnknownField    = errors.New("schema: unknown field")
	ErrValueType       = errors.New("schema: value does not match field type")
)

// ValidationError reports the first REQUIRED field found absent. Path is the
// dotted field path from the outermost struct for nested failures.
type ValidationError struct {
	Struct  string
	FieldID int16
	Path    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: %s: required field %s (id %d) absent", e.Struct, e.Path, e.FieldID)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// ValueError reports a Set call whose value does not fit the field.
type ValueError struct {
	Struct string
	Field  string
	Want   WireType
	Got    any
}

func (e ValueError) Error() string {
	return fmt.Sprintf("schema: %s.%s: cannot hold %T as %s", e.Struct, e.Field, e.Got, e.Want)
}

func (e ValueError) Is(target error) bool {
	return target == ErrValueType
}
