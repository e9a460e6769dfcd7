package llm

import (
	"encoding/json"
	"strings"

	"github.com/haasonsaas/strand/pkg/models"
)

// StreamAggregator folds a chunk sequence into a completed response. It is
// a pure in-memory state machine with no locking; callers feed it from a
// single goroutine.
type StreamAggregator struct {
	messageID string
	text      strings.Builder
	order     []string
	pending   map[string]*pendingToolUse
	usage     models.Usage
	stop      *StopReason
	complete  bool
	errCode   string
	errMsg    string
	hasError  bool
}

type pendingToolUse struct {
	id    string
	name  string
	input strings.Builder
}

// NewStreamAggregator returns an aggregator in its zero state.
func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{pending: map[string]*pendingToolUse{}}
}

// Feed consumes one chunk. Chunks after the terminal are ignored, as are
// tool_use_delta chunks whose id was never opened by a tool_use_start.
func (a *StreamAggregator) Feed(chunk StreamChunk) {
	if a.complete || a.hasError {
		return
	}

	switch chunk.Type {
	case ChunkMessageStart:
		a.messageID = chunk.MessageID
	case ChunkTextDelta:
		a.text.WriteString(chunk.Text)
	case ChunkToolUseStart:
		if _, ok := a.pending[chunk.ID]; !ok {
			a.pending[chunk.ID] = &pendingToolUse{id: chunk.ID, name: chunk.Name}
			a.order = append(a.order, chunk.ID)
		}
	case ChunkToolUseDelta:
		if tu, ok := a.pending[chunk.ID]; ok {
			tu.input.WriteString(chunk.InputDelta)
		}
	case ChunkUsage:
		if chunk.Usage != nil {
			a.usage = *chunk.Usage
		}
	case ChunkMessageEnd:
		a.stop = chunk.StopReason
		a.complete = true
	case ChunkError:
		a.errCode = chunk.Code
		a.errMsg = chunk.Message
		a.hasError = true
	}
}

// MessageID returns the id announced by message_start, if any.
func (a *StreamAggregator) MessageID() string { return a.messageID }

// Text returns the accumulated text so far.
func (a *StreamAggregator) Text() string { return a.text.String() }

// StopReason returns the stop reason reported by message_end.
func (a *StreamAggregator) StopReason() *StopReason { return a.stop }

// Usage returns the last usage report seen.
func (a *StreamAggregator) Usage() models.Usage { return a.usage }

// IsComplete is true once a message_end chunk has been consumed.
func (a *StreamAggregator) IsComplete() bool { return a.complete }

// HasError is true once an error chunk has been consumed.
func (a *StreamAggregator) HasError() bool { return a.hasError }

// Err returns the terminal error, if the stream failed.
func (a *StreamAggregator) Err() error {
	if !a.hasError {
		return nil
	}
	return &Error{Kind: KindStream, Code: a.errCode, Message: a.errMsg}
}

// ToolUses returns the accumulated tool_use blocks in start order. Inputs
// parse as JSON; an empty buffer yields {} and invalid JSON is preserved
// raw under a "_raw" key so nothing the model streamed is lost.
func (a *StreamAggregator) ToolUses() []models.ContentBlock {
	var blocks []models.ContentBlock
	for _, id := range a.order {
		tu := a.pending[id]
		blocks = append(blocks, models.ToolUse(tu.id, tu.name, normalizeToolInput(tu.input.String())))
	}
	return blocks
}

// Response assembles the final CompletionResponse. It is stable: calling
// it repeatedly after completion returns equal values.
func (a *StreamAggregator) Response(model string) *CompletionResponse {
	var blocks []models.ContentBlock
	if a.text.Len() > 0 {
		blocks = append(blocks, models.Text(a.text.String()))
	}
	blocks = append(blocks, a.ToolUses()...)

	return &CompletionResponse{
		ID:         a.messageID,
		Model:      model,
		Message:    models.NewMessage(models.RoleAssistant, blocks...),
		StopReason: a.stop,
		Usage:      a.usage,
	}
}

// Clear resets the aggregator to its zero state for reuse.
func (a *StreamAggregator) Clear() {
	a.messageID = ""
	a.text.Reset()
	a.order = nil
	a.pending = map[string]*pendingToolUse{}
	a.usage = models.Usage{}
	a.stop = nil
	a.complete = false
	a.errCode = ""
	a.errMsg = ""
	a.hasError = false
}

func normalizeToolInput(raw string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	wrapped, err := json.Marshal(map[string]string{"_raw": raw})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return wrapped
}
