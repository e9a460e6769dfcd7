package agent

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes agent failures.
type ErrorKind string

const (
	KindProvider             ErrorKind = "provider"
	KindTool                 ErrorKind = "tool"
	KindMaxIterationsReached ErrorKind = "max_iterations_reached"
	KindCancelled            ErrorKind = "cancelled"
	KindInvalidConfig        ErrorKind = "invalid_config"
	KindSession              ErrorKind = "session"
)

// Error is a structured agent failure.
type Error struct {
	Kind    ErrorKind
	Message string

	// Limit is set for max_iterations_reached.
	Limit int

	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause attaches an underlying error for Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// MaxIterationsReached builds the iteration-budget failure.
func MaxIterationsReached(limit int) *Error {
	return &Error{
		Kind:    KindMaxIterationsReached,
		Message: fmt.Sprintf("reached max iterations: %d", limit),
		Limit:   limit,
	}
}

// KindOf extracts the kind from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Kind, true
	}
	return "", false
}
