package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures that reach callers.
type ErrorKind string

const (
	// KindUnsupportedInput: empty, truncated or unrecognised input.
	KindUnsupportedInput ErrorKind = "unsupported_input"
	// KindDecode: the image claims a type but cannot be rasterised.
	KindDecode ErrorKind = "decode"
)

// Error is the single error type surfaced by the engine.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError returns an Error without a cause.
func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError attaches kind, op and message to err. An err that already is an
// *Error is returned as is.
func WrapError(kind ErrorKind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// IsKind reports whether err, or anything it wraps, is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}
