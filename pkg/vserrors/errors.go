// Package vserrors defines the typed error kinds returned across the
// go-vshadow public API. Every exported function that can fail returns an
// error that can be inspected with errors.Is against the sentinel Kind
// values below, instead of leaking raw I/O or parse errors.
package vserrors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Argument indicates a caller passed a nil, out-of-range, or otherwise
	// invalid argument.
	Argument Kind = iota
	// State indicates the operation was invoked in the wrong lifecycle
	// state (e.g. read before open, double close).
	State
	// Io indicates the underlying byte source failed or returned a short
	// read.
	Io
	// UnsupportedFormat indicates a magic/version/record-type mismatch or
	// an invalid bit combination in a decoded record.
	UnsupportedFormat
	// OutOfBounds indicates a decoded field references a position past
	// the enclosing block.
	OutOfBounds
	// ResourceExhausted indicates an allocation was refused.
	ResourceExhausted
	// Cancelled indicates the abort flag was observed mid-operation.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Argument:
		return "argument"
	case State:
		return "state"
	case Io:
		return "io"
	case UnsupportedFormat:
		return "unsupported_format"
	case OutOfBounds:
		return "out_of_bounds"
	case ResourceExhausted:
		return "resource_exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. It always
// carries a Kind and a human-readable message, and may wrap a cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vshadow: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("vshadow: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so that
// errors.Is(err, vserrors.New(vserrors.Io, "")) style sentinel checks by
// kind work without matching the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error that wraps cause, or returns nil if cause is nil.
func Wrap(kind Kind, msg string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Sentinel values usable with errors.Is to test only the Kind, e.g.
// errors.Is(err, vserrors.ErrUnsupportedFormat).
var (
	ErrArgument          = New(Argument, "")
	ErrState             = New(State, "")
	ErrIo                = New(Io, "")
	ErrUnsupportedFormat = New(UnsupportedFormat, "")
	ErrOutOfBounds       = New(OutOfBounds, "")
	ErrResourceExhausted = New(ResourceExhausted, "")
	ErrCancelled         = New(Cancelled, "")
)

// Of reports the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
