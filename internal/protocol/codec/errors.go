package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedPayload = errors.New("codec: malformed payload")
	ErrTruncated        = errors.New("codec: truncated payload")
	ErrLimitExceeded    = errors.New("codec: length exceeds limit")
	ErrNegativeLength   = errors.New("codec: negative length")
	ErrTooDeep          = errors.New("codec: nesting too deep")
	ErrTrailingBytes    = errors.New("codec: trailing bytes after payload")
	ErrBitmap           = errors.New("codec: presence bitmap has unused bits set")
	ErrValueTooLarge    = errors.New("codec: value too large to encode")
)

// MalformedPayloadError reports a decode failure with the field path from
// the outermost struct and the byte offset where it was detected.
type MalformedPayloadError struct {
	FieldPath []string
	Offset    int
	Err       error
}

func (e *MalformedPayloadError) Error() string {
	if len(e.FieldPath) == 0 {
		return fmt.Sprintf("codec: malformed payload at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("codec: malformed payload at %s (offset %d): %v",
		strings.Join(e.FieldPath, "."), e.Offset, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func malformed(offset int, err error) error {
	return &MalformedPayloadError{Offset: offset, Err: err}
}

// wrapWithField prefixes the field path of a decode error.
func wrapWithField(err error, field string) error {
	if err == nil {
		return nil
	}
	var me *MalformedPayloadError
	if errors.As(err, &me) {
		return &MalformedPayloadError{
			FieldPath: append([]string{field}, me.FieldPath...),
			Offset:    me.Offset,
			Err:       me.Err,
		}
	}
	return err
}
