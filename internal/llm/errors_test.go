package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindRetryable(t *testing.T) {
	retryable := []ErrorKind{KindRateLimited, KindTimeout, KindNetwork}
	for _, kind := range retryable {
		if !kind.Retryable() {
			t.Errorf("%s should be retryable", kind)
		}
	}
	fatal := []ErrorKind{KindAPI, KindInvalidRequest, KindAuthenticationFailed, KindModelNotFound, KindConfig}
	for _, kind := range fatal {
		if kind.Retryable() {
			t.Errorf("%s should not be retryable", kind)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{401, KindAuthenticationFailed},
		{403, KindAuthenticationFailed},
		{429, KindRateLimited},
		{400, KindInvalidRequest},
		{404, KindModelNotFound},
		{408, KindTimeout},
		{504, KindTimeout},
		{500, KindAPI},
		{503, KindAPI},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewError("openai", "gpt-4o", errors.New("boom")).WithStatus(tt.status)
			if err.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", err.Kind, tt.want)
			}
		})
	}
}

func TestClassifyMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"rate limit", errors.New("429 too many requests"), KindRateLimited},
		{"auth", errors.New("invalid api key provided"), KindAuthenticationFailed},
		{"context length", errors.New("maximum context length is 8192 tokens"), KindContextLengthExceeded},
		{"network", errors.New("dial tcp: connection refused"), KindNetwork},
		{"unknown", errors.New("something odd"), KindAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError("anthropic", "claude", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected unwrap to reach cause")
	}
	got, ok := AsError(fmt.Errorf("wrapped: %w", err))
	if !ok || got.Provider != "anthropic" {
		t.Fatalf("AsError failed: %v %v", got, ok)
	}
}

func TestIsRetryableCancellation(t *testing.T) {
	if IsRetryable(context.Canceled) {
		t.Fatal("cancellation must not be retried")
	}
}

func TestParseStopReasonTotal(t *testing.T) {
	tests := map[string]StopReason{
		"stop":       StopEndTurn,
		"length":     StopMaxTokens,
		"tool_calls": StopToolUse,
		"tool_use":   StopToolUse,
		"max_tokens": StopMaxTokens,
		"gibberish":  StopEndTurn,
		"":           StopEndTurn,
	}
	for in, want := range tests {
		if got := ParseStopReason(in); got != want {
			t.Errorf("ParseStopReason(%q) = %s, want %s", in, got, want)
		}
	}
}
