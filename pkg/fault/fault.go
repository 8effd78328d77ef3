// Package fault defines the error taxonomy shared by the coordinator's
// services and surfaced to API callers: invalid_argument, not_found,
// conflict, adapter_failure, internal.
package fault

import (
	"errors"
	"fmt"
)

// Code classifies an error for the caller's retry decision.
type Code string

const (
	CodeInvalidArgument Code = "invalid_argument"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeAdapterFailure  Code = "adapter_failure"
	CodeInternal        Code = "internal"
)

// Error carries a taxonomy code, a human-readable message and, for
// conflicts, the authoritative current status so the caller can decide
// whether a refetch-and-retry makes sense.
type Error struct {
	Code          Code
	Message       string
	CurrentStatus string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument marks malformed or out-of-range input.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound marks an absent referenced entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict marks an operation that is illegal in the current state.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// ConflictStatus is Conflict with the authoritative current status attached.
func ConflictStatus(current string, format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...), CurrentStatus: current}
}

// AdapterFailure marks a settlement backend rejection or error.
func AdapterFailure(err error, format string, args ...any) *Error {
	return &Error{Code: CodeAdapterFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal marks a storage or otherwise unexpected fault.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to internal.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}

// StatusOf extracts the authoritative current status attached to a
// conflict error, if any.
func StatusOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.CurrentStatus
	}
	return ""
}
