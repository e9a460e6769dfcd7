// Package llmtest provides a scripted in-memory Provider for tests and
// examples.
package llmtest

import (
	"context"
	"sync"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/pkg/models"
)

// Step is one scripted turn: a canned response or an error to return.
type Step struct {
	Response *llm.CompletionResponse
	Err      error
}

// MockProvider replays a script of responses in order. When the script is
// exhausted the last step repeats, so single-entry scripts behave like a
// constant provider. It records every request it receives for assertions.
type MockProvider struct {
	mu       sync.Mutex
	script   []Step
	cursor   int
	requests []*llm.CompletionRequest
}

// New returns a provider whose script is a single assistant text response,
// "Hello from mock!".
func New() *MockProvider {
	return NewScripted(Step{Response: TextResponse("Hello from mock!")})
}

// NewScripted returns a provider that replays the given steps in order.
func NewScripted(steps ...Step) *MockProvider {
	return &MockProvider{script: steps}
}

// TextResponse builds a plain assistant text response.
func TextResponse(text string) *llm.CompletionResponse {
	stop := llm.StopEndTurn
	return &llm.CompletionResponse{
		ID:         models.NewId().String(),
		Model:      "mock-model",
		Message:    models.AssistantText(text),
		StopReason: &stop,
		Usage:      models.Usage{InputTokens: 1, OutputTokens: 1},
	}
}

// ToolUseResponse builds an assistant response requesting the given tool
// calls, optionally prefixed by text.
func ToolUseResponse(text string, uses ...models.ContentBlock) *llm.CompletionResponse {
	stop := llm.StopToolUse
	var blocks []models.ContentBlock
	if text != "" {
		blocks = append(blocks, models.Text(text))
	}
	blocks = append(blocks, uses...)
	return &llm.CompletionResponse{
		ID:         models.NewId().String(),
		Model:      "mock-model",
		Message:    models.NewMessage(models.RoleAssistant, blocks...),
		StopReason: &stop,
		Usage:      models.Usage{InputTokens: 1, OutputTokens: 1},
	}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) DefaultModel() string { return "mock-model" }

func (p *MockProvider) Capabilities() models.Capabilities {
	return models.ToolCapabilities()
}

func (p *MockProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *MockProvider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{ID: "mock-model", DisplayName: "Mock", ContextWindow: 128000, SupportsTools: true}}, nil
}

// Requests returns a copy of all requests received so far.
func (p *MockProvider) Requests() []*llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// CallCount returns how many completion calls have been made.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *MockProvider) next(req *llm.CompletionRequest) Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.script) == 0 {
		return Step{Response: TextResponse("Hello from mock!")}
	}
	step := p.script[p.cursor]
	if p.cursor < len(p.script)-1 {
		p.cursor++
	}
	return step
}

func (p *MockProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := p.next(req)
	if step.Err != nil {
		return nil, step.Err
	}
	// Copy so callers mutating the message cannot corrupt the script.
	resp := *step.Response
	return &resp, nil
}

func (p *MockProvider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.SynthesizeStream(ctx, resp), nil
}
