// Package bridge converts response payloads from either transport
// generation into one Result model.
package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrBridgeDecode = errors.New("bridge: cannot decode response payload")
	ErrNotResult    = errors.New("bridge: payload is not a result message")
)

// Result is the acknowledgement model generic callers consume.
type Result interface {
	IsSuccess() bool
	Message() string
}

// Bridge converts one raw response. ok is false with a nil error when raw
// is not a wrapper kind the bridge recognizes.
type Bridge interface {
	Bridge(raw any) (res Result, ok bool, err error)
}

// Func adapts a function to Bridge.
type Func func(raw any) (Result, bool, error)

func (f Func) Bridge(raw any) (Result, bool, error) { return f(raw) }

// Chain tries each bridge in order and returns the first match. A match
// that fails to decode ends the chain with that error.
type Chain []Bridge

func (c Chain) Bridge(raw any) (Result, bool, error) {
	for _, b := range c {
		res, ok, err := b.Bridge(raw)
		if ok || err != nil {
			return res, ok, err
		}
	}
	return nil, false, nil
}

// DecodeError wraps the parse failure of a recognized wrapper.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bridge: %s response: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrBridgeDecode
}

// result is the Result built from parsed fields.
type result struct {
	success bool
	message string
}

func (r result) IsSuccess() bool { return r.success }
func (r result) Message() string { return r.message }

// NewResult returns a plain Result value.
func NewResult(success bool, message string) Result {
	return result{success: success, message: message}
}
