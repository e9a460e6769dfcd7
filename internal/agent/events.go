package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/pkg/models"
)

// EventType discriminates AgentEvent variants.
type EventType string

const (
	EventMessageStart EventType = "message_start"
	EventTextDelta    EventType = "text_delta"
	EventTextComplete EventType = "text_complete"
	EventToolUseStart EventType = "tool_use_start"
	EventToolUseEnd   EventType = "tool_use_end"
	EventThinking     EventType = "thinking"
	EventMessageEnd   EventType = "message_end"
	EventError        EventType = "error"
)

// AgentEvent is one event of a streaming run. The Type field selects
// which of the remaining fields are meaningful.
type AgentEvent struct {
	Type EventType `json:"type"`

	// MessageID is set on message_start and message_end.
	MessageID string `json:"message_id,omitempty"`

	// Text carries text_delta, text_complete and thinking payloads.
	Text string `json:"text,omitempty"`

	// ID and Name identify the tool call for tool_use_start and
	// tool_use_end.
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	// Output and IsError carry the tool result on tool_use_end.
	Output  string `json:"output,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	// Message describes error events.
	Message string `json:"message,omitempty"`
}

// IsEnd reports whether the event terminates the stream.
func (e AgentEvent) IsEnd() bool {
	return e.Type == EventMessageEnd || e.Type == EventError
}

// eventBuffer is the channel capacity for ProcessStream. A slow consumer
// stalls the producer rather than growing memory without bound.
const eventBuffer = 100

// ProcessStream runs the reason/act loop in a goroutine, emitting events
// as the model streams and tools execute. The channel is closed after a
// terminal event. The producer honors ctx, so an abandoned consumer
// cannot leak the goroutine.
func (a *Agent) ProcessStream(ctx context.Context, session *Session, input string) (<-chan AgentEvent, error) {
	if session == nil {
		return nil, NewError(KindSession, "session is nil")
	}

	events := make(chan AgentEvent, eventBuffer)
	go a.streamLoop(ctx, session, input, events)
	return events, nil
}

func (a *Agent) streamLoop(ctx context.Context, session *Session, input string, events chan<- AgentEvent) {
	defer close(events)

	emit := func(ev AgentEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(msg string) {
		emit(AgentEvent{Type: EventError, Message: msg})
	}

	session.AddMessage(models.UserText(input))

	iterations := 0
	startEmitted := false
	lastMessageID := ""

	for {
		iterations++
		session.IncrementIterations()
		if iterations > a.config.MaxIterations {
			a.metrics.ObserveIterations(iterations - 1)
			a.metrics.CountError("agent", string(KindMaxIterationsReached))
			fail(MaxIterationsReached(a.config.MaxIterations).Message)
			return
		}
		if ctx.Err() != nil {
			fail("processing cancelled")
			return
		}

		resp, ok := a.streamTurn(ctx, session, emit, &startEmitted, &lastMessageID)
		if !ok {
			return
		}

		uses := resp.Message.ToolUses()
		text := resp.Message.Text()

		if len(uses) == 0 {
			session.AddMessage(models.AssistantText(text))
			a.metrics.ObserveIterations(iterations)
			if !emit(AgentEvent{Type: EventTextComplete, Text: text}) {
				return
			}
			emit(AgentEvent{Type: EventMessageEnd, MessageID: lastMessageID})
			return
		}

		if text != "" {
			if !emit(AgentEvent{Type: EventTextComplete, Text: text}) {
				return
			}
		}

		var blocks []models.ContentBlock
		if text != "" {
			blocks = append(blocks, models.Text(text))
		}
		blocks = append(blocks, uses...)
		session.AddMessage(models.NewMessage(models.RoleAssistant, blocks...))

		results := make([]models.ContentBlock, 0, len(uses))
		for _, use := range uses {
			if ctx.Err() != nil {
				fail("processing cancelled")
				return
			}
			if !emit(AgentEvent{Type: EventToolUseStart, ID: use.ID, Name: use.Name}) {
				return
			}
			record := a.runTool(ctx, use)
			if !emit(AgentEvent{
				Type:    EventToolUseEnd,
				ID:      record.ID,
				Name:    record.Name,
				Output:  record.Output,
				IsError: record.IsError,
			}) {
				return
			}
			if record.IsError {
				results = append(results, models.ToolResultError(use.ID, record.Output))
			} else {
				results = append(results, models.ToolResultOK(use.ID, record.Output))
			}
		}
		session.IncrementToolCalls(len(uses))
		session.AddMessage(models.ToolResults(results...))
	}
}

// streamTurn runs one provider streaming call, forwarding text deltas as
// they arrive and returning the aggregated response. ok is false when
// the run must stop (error already emitted or consumer gone).
func (a *Agent) streamTurn(ctx context.Context, session *Session, emit func(AgentEvent) bool, startEmitted *bool, lastMessageID *string) (*llm.CompletionResponse, bool) {
	req := a.buildRequest(session)

	start := time.Now()
	chunks, err := a.provider.Stream(ctx, req)
	if err != nil {
		a.metrics.ObserveLLMRequest(a.provider.Name(), a.config.Model, time.Since(start).Seconds(), false)
		a.metrics.CountError("provider", errKind(err))
		emit(AgentEvent{Type: EventError, Message: fmt.Sprintf("provider %s: %v", a.provider.Name(), err)})
		return nil, false
	}

	agg := llm.NewStreamAggregator()
	for chunk := range chunks {
		agg.Feed(chunk)
		switch chunk.Type {
		case llm.ChunkMessageStart:
			*lastMessageID = chunk.MessageID
			if !*startEmitted {
				*startEmitted = true
				if !emit(AgentEvent{Type: EventMessageStart, MessageID: chunk.MessageID}) {
					return nil, false
				}
			}
		case llm.ChunkTextDelta:
			if !emit(AgentEvent{Type: EventTextDelta, Text: chunk.Text}) {
				return nil, false
			}
		}
	}
	elapsed := time.Since(start).Seconds()

	if agg.HasError() {
		a.metrics.ObserveLLMRequest(a.provider.Name(), a.config.Model, elapsed, false)
		a.metrics.CountError("provider", string(llm.KindStream))
		emit(AgentEvent{Type: EventError, Message: agg.Err().Error()})
		return nil, false
	}
	if !agg.IsComplete() {
		// Stream dropped without a terminal chunk; treat like
		// cancellation.
		emit(AgentEvent{Type: EventError, Message: "stream ended unexpectedly"})
		return nil, false
	}
	if !*startEmitted {
		*startEmitted = true
		if !emit(AgentEvent{Type: EventMessageStart, MessageID: agg.MessageID()}) {
			return nil, false
		}
	}

	a.metrics.ObserveLLMRequest(a.provider.Name(), a.config.Model, elapsed, true)
	resp := agg.Response(a.config.Model)
	a.metrics.AddTokens(a.provider.Name(), resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, true
}

// buildRequest assembles the completion request for the session's
// current window.
func (a *Agent) buildRequest(session *Session) *llm.CompletionRequest {
	req := &llm.CompletionRequest{
		Model:    a.config.Model,
		Messages: session.LastMessages(a.config.MaxContextMessages),
	}
	if a.config.SystemPrompt != "" {
		system := a.config.SystemPrompt
		req.System = &system
	}
	temp := a.config.Temperature
	req.Temperature = &temp
	if a.config.MaxTokens != nil {
		req.MaxTokens = a.config.MaxTokens
	}
	if a.toolsAttached() {
		req.Tools = a.registry.Definitions()
	}
	return req
}
