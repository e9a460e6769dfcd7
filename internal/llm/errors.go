package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind categorizes a provider failure for retry and surfacing
// decisions.
type ErrorKind string

const (
	KindAPI                   ErrorKind = "api"
	KindRateLimited           ErrorKind = "rate_limited"
	KindContextLengthExceeded ErrorKind = "context_length_exceeded"
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindInvalidResponse       ErrorKind = "invalid_response"
	KindModelNotFound         ErrorKind = "model_not_found"
	KindAuthenticationFailed  ErrorKind = "authentication_failed"
	KindNetwork               ErrorKind = "network"
	KindTimeout               ErrorKind = "timeout"
	KindStream                ErrorKind = "stream"
	KindProviderNotAvailable  ErrorKind = "provider_not_available"
	KindTool                  ErrorKind = "tool"
	KindConfig                ErrorKind = "config"
)

// Retryable reports whether a failure of this kind may succeed on retry.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}

// Error is a structured provider failure. It captures the context needed
// for retry decisions and debugging: which provider and model, the HTTP
// status if any, the vendor error code, and the vendor request id.
type Error struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Status   int
	Code     string
	Message  string

	// RequestID is the provider's request identifier, when reported.
	RequestID string

	// RetryAfter is the server-suggested backoff for rate_limited errors.
	RetryAfter time.Duration

	Cause error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether this error is worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// NewError builds an Error, classifying the cause when no explicit kind
// fits better.
func NewError(provider, model string, cause error) *Error {
	e := &Error{
		Kind:     KindAPI,
		Provider: provider,
		Model:    model,
		Cause:    cause,
	}
	if cause != nil {
		e.Message = cause.Error()
		e.Kind = Classify(cause)
	}
	return e
}

// WithStatus records the HTTP status and reclassifies the kind from it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	e.Kind = classifyStatus(status)
	return e
}

// WithCode records the vendor error code, reclassifying for known codes.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	if kind, ok := classifyCode(code); ok {
		e.Kind = kind
	}
	return e
}

// WithMessage overrides the message.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithRequestID records the vendor request id.
func (e *Error) WithRequestID(id string) *Error {
	e.RequestID = id
	return e
}

// Classify inspects an arbitrary error and assigns a kind. Context
// cancellation is left alone so callers can distinguish it from provider
// failures; deadline expiry maps to timeout.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindAPI
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "etimedout"):
		return KindTimeout
	case strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429"):
		return KindRateLimited
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "403"):
		return KindAuthenticationFailed
	case strings.Contains(msg, "context length") ||
		strings.Contains(msg, "context_length") ||
		strings.Contains(msg, "maximum context"):
		return KindContextLengthExceeded
	case strings.Contains(msg, "model not found") ||
		strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "does not exist"):
		return KindModelNotFound
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network"):
		return KindNetwork
	default:
		return KindAPI
	}
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthenticationFailed
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest:
		return KindInvalidRequest
	case status == http.StatusNotFound:
		return KindModelNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindAPI
	default:
		return KindAPI
	}
}

func classifyCode(code string) (ErrorKind, bool) {
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded":
		return KindRateLimited, true
	case "authentication_error", "invalid_api_key", "permission_error":
		return KindAuthenticationFailed, true
	case "context_length_exceeded":
		return KindContextLengthExceeded, true
	case "model_not_found", "model_not_available", "not_found_error":
		return KindModelNotFound, true
	case "invalid_request_error":
		return KindInvalidRequest, true
	case "overloaded_error", "server_error", "internal_error", "api_error":
		return KindAPI, true
	default:
		return "", false
	}
}

// IsRetryable reports whether err should be retried, classifying raw
// errors when no *Error is in the chain.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return Classify(err).Retryable()
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}
