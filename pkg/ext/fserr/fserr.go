// Package fserr defines the error taxonomy of spec.md §7. No error is
// recovered inside the core: every Kind documents that a format
// operation aborts and leaves the device in an indeterminate state.
// Errors carry structured context (offset, expected/actual) the way
// direktiv-vorteil wraps lower-level failures with github.com/pkg/errors
// throughout pkg/vio and pkg/ext4's callers, generalized here into a
// single sentinel-kind type instead of ad hoc fmt.Errorf call sites.
package fserr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error kinds spec.md §7 enumerates.
type Kind string

const (
	DeviceNotFound         Kind = "device_not_found"
	InsufficientPrivileges Kind = "insufficient_privileges"
	UnsafeDevice           Kind = "unsafe_device"
	InvalidInput           Kind = "invalid_input"
	DeviceTooSmall         Kind = "device_too_small"
	ExternalToolMissing    Kind = "external_tool_missing"
	IoError                Kind = "io_error"
	ChecksumMismatch       Kind = "checksum_mismatch"
	UserCancelled          Kind = "user_cancelled"
	PlatformNotSupported   Kind = "platform_not_supported"
)

// Error is the structured error type returned across the Formatter
// capability boundary (spec.md §6). Offset/Expected/Actual are optional
// diagnostic context, set only through WithOffset; errors built with New
// or Wrap leave them at zero.
type Error struct {
	Kind     Kind
	Message  string
	Offset   int64
	Expected string
	Actual   string
	cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Expected != "" || e.Actual != "" {
		msg = fmt.Sprintf("%s (offset %d, expected %s, actual %s)", msg, e.Offset, e.Expected, e.Actual)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is supports errors.Is(err, fserr.Sentinel(fserr.DeviceTooSmall)) style
// checks: it matches a target *Error with the same Kind and an empty
// Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// New builds a bare error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a lower-level cause, preserving it
// via errors.Wrap so callers that want a stack trace for diagnostics
// still get one.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.Wrap(cause, string(kind)),
	}
}

// WithOffset attaches diagnostic context and returns e for chaining.
func (e *Error) WithOffset(offset int64, expected, actual string) *Error {
	e.Offset = offset
	e.Expected = expected
	e.Actual = actual
	return e
}

// Sentinel matches Kind for use with errors.Is, e.g.
// errors.Is(err, fserr.Sentinel(fserr.DeviceTooSmall)).
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}
