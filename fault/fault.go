// Package fault defines the domain error type for build work.
//
// A fault is an expected failure of the work itself: a fetch that timed
// out, a command that exited non-zero, a cache miss that could not be
// recovered. Timed activity scopes recognize faults, report them as FAIL
// records, and re-raise them unchanged for the caller to decide policy.
// Any other error is treated as a programming defect and propagates
// without being reported.
package fault

import (
	"errors"
	"fmt"
)

// Error is a recognized domain failure.
type Error struct {
	// Reason is a stable machine readable identifier, e.g. "fetch-timeout".
	Reason string

	msg   string
	cause error
}

// New creates a fault with the given reason and message.
func New(reason, format string, args ...any) *Error {
	return &Error{
		Reason: reason,
		msg:    fmt.Sprintf(format, args...),
	}
}

// Wrap creates a fault wrapping an underlying cause.
func Wrap(err error, reason, format string, args ...any) *Error {
	return &Error{
		Reason: reason,
		msg:    fmt.Sprintf(format, args...),
		cause:  err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether err is, or wraps, a recognized domain failure.
func Is(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}
