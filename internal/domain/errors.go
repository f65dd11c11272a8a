package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported to callers.
type ErrorKind string

const (
	ErrorKindMissingField ErrorKind = "missing_field"
	ErrorKindInvalidID    ErrorKind = "invalid_id"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindConflict     ErrorKind = "conflict"
	ErrorKindRejected     ErrorKind = "rejected"
	ErrorKindInternal     ErrorKind = "internal"
)

// Error is a failure with a kind the transport layer can translate.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or ErrorKindInternal when err carries
// no *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindInternal
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func MissingField(field string) *Error {
	return &Error{Kind: ErrorKindMissingField, Message: field + " is required"}
}

func InvalidID(name, raw string) *Error {
	return &Error{Kind: ErrorKindInvalidID, Message: fmt.Sprintf("invalid %s: %q", name, raw)}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id int64) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

func Rejected(reason string) *Error {
	return &Error{Kind: ErrorKindRejected, Message: "rejected by policy: " + reason}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: ErrorKindInternal, Message: msg, Err: err}
}
