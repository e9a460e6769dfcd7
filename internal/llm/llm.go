// Package llm defines the provider-neutral contract between the agent
// runtime and LLM backends: completion requests and responses, the
// normalized stream chunk alphabet, and the error taxonomy shared by all
// provider adapters.
package llm

import (
	"context"

	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/pkg/models"
)

// Provider is the interface all LLM backends implement.
//
// Implementations must be safe for concurrent use. Multiple goroutines may
// call Complete and Stream simultaneously for different requests.
type Provider interface {
	// Name returns the stable lowercase provider identifier ("openai",
	// "anthropic", ...), used for routing, metrics, and logging.
	Name() string

	// Capabilities returns the feature set this provider advertises,
	// for negotiation before a request is built.
	Capabilities() models.Capabilities

	// Complete sends a request and blocks until the full response is
	// available.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream sends a request and returns a channel of normalized chunks.
	// The channel is closed by the producing goroutine when the stream
	// terminates; the final chunk is a message_end or an error chunk.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// ListModels returns the models this provider can serve.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// HealthCheck verifies the provider is reachable and usable.
	HealthCheck(ctx context.Context) error

	// DefaultModel returns the model used when a request leaves Model empty.
	DefaultModel() string
}

// ToolChoice constrains how the model may use the attached tools.
type ToolChoice struct {
	Type ToolChoiceType `json:"type"`
	// Name is set only when Type is ToolChoiceTool.
	Name string `json:"name,omitempty"`
}

// ToolChoiceType enumerates tool selection modes.
type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceTool     ToolChoiceType = "tool"
)

// CompletionRequest contains all parameters for one completion call.
type CompletionRequest struct {
	// Model specifies which model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// Messages is the conversation history in chronological order.
	Messages []models.Message `json:"messages"`

	// System is the system prompt. Providers lift it into their native
	// system field rather than repeating it as a message.
	System *string `json:"system,omitempty"`

	// Tools the model may call. Empty means no tool calling.
	Tools []tools.Definition `json:"tools,omitempty"`

	// ToolChoice defaults to auto when nil.
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// StopReason explains why the model stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
	StopToolUse      StopReason = "tool_use"
)

// ParseStopReason maps a vendor finish-reason string onto the internal
// enum. The mapping is total: unknown strings map to end_turn.
func ParseStopReason(s string) StopReason {
	switch s {
	case "stop", "end_turn", "stop_sequence_hit", "STOP":
		return StopEndTurn
	case "length", "max_tokens", "MAX_TOKENS":
		return StopMaxTokens
	case "stop_sequence":
		return StopStopSequence
	case "tool_calls", "tool_use", "function_call":
		return StopToolUse
	default:
		return StopEndTurn
	}
}

// CompletionResponse is the full result of a non-streaming completion.
type CompletionResponse struct {
	// ID is the provider's response identifier.
	ID string `json:"id"`

	// Model is the model that actually served the request.
	Model string `json:"model"`

	// Message is the assistant turn: text blocks (if any) followed by
	// tool_use blocks in the order the provider returned them.
	Message models.Message `json:"message"`

	StopReason *StopReason  `json:"stop_reason,omitempty"`
	Usage      models.Usage `json:"usage"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	ContextWindow int    `json:"context_window"`
	SupportsTools bool   `json:"supports_tools"`
	SupportsVision bool  `json:"supports_vision"`
}
