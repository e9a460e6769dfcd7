package tools

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes tool failures.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindAlreadyRegistered ErrorKind = "already_registered"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindExecution         ErrorKind = "execution"
	KindTimeout           ErrorKind = "timeout"
	KindCancelled         ErrorKind = "cancelled"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindPanic             ErrorKind = "panic"
)

// Error is a structured tool failure. The agent loop renders these as
// tool results the model can react to rather than aborting the run.
type Error struct {
	Kind    ErrorKind
	Tool    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Tool, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, tool, message string) *Error {
	return &Error{Kind: kind, Tool: tool, Message: message}
}

// WithCause attaches an underlying error for Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// KindOf extracts the kind from an error chain; execution for foreign
// errors.
func KindOf(err error) ErrorKind {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Kind
	}
	return KindExecution
}
