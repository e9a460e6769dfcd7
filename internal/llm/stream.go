package llm

import "github.com/haasonsaas/strand/pkg/models"

// ChunkType discriminates StreamChunk variants.
type ChunkType string

const (
	ChunkMessageStart      ChunkType = "message_start"
	ChunkTextDelta         ChunkType = "text_delta"
	ChunkToolUseStart      ChunkType = "tool_use_start"
	ChunkToolUseDelta      ChunkType = "tool_use_delta"
	ChunkToolUseEnd        ChunkType = "tool_use_end"
	ChunkContentBlockStart ChunkType = "content_block_start"
	ChunkContentBlockEnd   ChunkType = "content_block_end"
	ChunkPing              ChunkType = "ping"
	ChunkUsage             ChunkType = "usage"
	ChunkMessageEnd        ChunkType = "message_end"
	ChunkError             ChunkType = "error"
)

// StreamChunk is one normalized event of a streaming completion. A
// well-formed stream begins with message_start and terminates with exactly
// one message_end or error chunk; everything after the terminal is noise
// consumers may ignore.
type StreamChunk struct {
	Type ChunkType `json:"type"`

	// MessageID is set on message_start.
	MessageID string `json:"message_id,omitempty"`

	// Text is the delta payload of text_delta chunks.
	Text string `json:"text,omitempty"`

	// ID and Name identify the tool use for tool_use_start, tool_use_delta
	// and tool_use_end chunks.
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	// InputDelta is a fragment of the streamed JSON arguments.
	InputDelta string `json:"input_delta,omitempty"`

	// Index is the content block index for content_block_start/end.
	Index int `json:"index,omitempty"`

	// Usage payload; the last usage chunk wins.
	Usage *models.Usage `json:"usage,omitempty"`

	// StopReason is set on message_end when the provider reported one.
	StopReason *StopReason `json:"stop_reason,omitempty"`

	// Code and Message describe error chunks.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// IsTerminal reports whether the chunk ends the stream.
func (c StreamChunk) IsTerminal() bool {
	return c.Type == ChunkMessageEnd || c.Type == ChunkError
}

func MessageStartChunk(messageID string) StreamChunk {
	return StreamChunk{Type: ChunkMessageStart, MessageID: messageID}
}

func TextDeltaChunk(text string) StreamChunk {
	return StreamChunk{Type: ChunkTextDelta, Text: text}
}

func ToolUseStartChunk(id, name string) StreamChunk {
	return StreamChunk{Type: ChunkToolUseStart, ID: id, Name: name}
}

func ToolUseDeltaChunk(id, inputDelta string) StreamChunk {
	return StreamChunk{Type: ChunkToolUseDelta, ID: id, InputDelta: inputDelta}
}

func ToolUseEndChunk(id string) StreamChunk {
	return StreamChunk{Type: ChunkToolUseEnd, ID: id}
}

func UsageChunk(usage models.Usage) StreamChunk {
	return StreamChunk{Type: ChunkUsage, Usage: &usage}
}

func MessageEndChunk(stop *StopReason) StreamChunk {
	return StreamChunk{Type: ChunkMessageEnd, StopReason: stop}
}

func ErrorChunk(code, message string) StreamChunk {
	return StreamChunk{Type: ChunkError, Code: code, Message: message}
}
