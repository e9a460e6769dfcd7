package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/internal/observability"
	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/pkg/models"
)

// Agent runs the reasoning loop against one provider and an optional
// tool registry. Agents are safe for concurrent use across sessions;
// per-session ordering is the caller's concern.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	executor *tools.Executor
	config   Config

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures an Agent under construction.
type Option func(*Agent)

// WithProvider sets the LLM backend. Required.
func WithProvider(p llm.Provider) Option {
	return func(a *Agent) { a.provider = p }
}

// WithRegistry attaches a tool registry.
func WithRegistry(r *tools.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithConfig replaces the whole config.
func WithConfig(cfg Config) Option {
	return func(a *Agent) { a.config = cfg }
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(a *Agent) { a.config.Name = name }
}

// WithModel sets the model id.
func WithModel(model string) Option {
	return func(a *Agent) { a.config.Model = model }
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.config.SystemPrompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.config.Temperature = t }
}

// WithMaxTokens sets the completion token cap.
func WithMaxTokens(n int) Option {
	return func(a *Agent) { a.config.MaxTokens = &n }
}

// WithMaxIterations sets the loop budget.
func WithMaxIterations(n int) Option {
	return func(a *Agent) { a.config.MaxIterations = n }
}

// WithMaxContextMessages bounds the history window per completion.
func WithMaxContextMessages(n int) Option {
	return func(a *Agent) { a.config.MaxContextMessages = n }
}

// WithToolTimeout sets the per-call tool budget in seconds.
func WithToolTimeout(secs int) Option {
	return func(a *Agent) { a.config.ToolTimeoutSecs = secs }
}

// WithToolsEnabled gates tool attachment.
func WithToolsEnabled(enabled bool) Option {
	return func(a *Agent) { a.config.ToolsEnabled = enabled }
}

// WithLogger attaches a logger.
func WithLogger(l *observability.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithTracer attaches a tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

// New builds an agent from options. A provider is required; the config
// is validated after all options apply.
func New(opts ...Option) (*Agent, error) {
	a := &Agent{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	if a.provider == nil {
		return nil, NewError(KindInvalidConfig, "provider is required")
	}
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	if a.registry != nil {
		execOpts := []tools.ExecutorOption{
			tools.WithTimeout(time.Duration(a.config.ToolTimeoutSecs) * time.Second),
		}
		if a.logger != nil {
			execOpts = append(execOpts, tools.WithLogger(a.logger.Slog()))
		}
		a.executor = tools.NewExecutor(a.registry, execOpts...)
	}
	return a, nil
}

// Config returns a copy of the effective configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Provider returns the underlying LLM backend.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// CreateSession starts a fresh conversation.
func (a *Agent) CreateSession() *Session {
	return NewSession()
}

// ToolCallRecord is one executed (or refused) tool call.
type ToolCallRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Output     string `json:"output"`
	IsError    bool   `json:"is_error"`
	DurationMS int64  `json:"duration_ms"`
}

// AgentResponse is the final result of one Process call.
type AgentResponse struct {
	Text       string           `json:"text"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	Iterations int              `json:"iterations"`
}

// Chat runs Process and returns just the text.
func (a *Agent) Chat(ctx context.Context, session *Session, input string) (string, error) {
	resp, err := a.Process(ctx, session, input)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Process appends the user input and runs the reason/act loop until the
// model answers in text, the iteration budget is exhausted, or the
// context is cancelled. All messages appended before a failure stay in
// the session.
func (a *Agent) Process(ctx context.Context, session *Session, input string) (*AgentResponse, error) {
	if session == nil {
		return nil, NewError(KindSession, "session is nil")
	}

	session.AddMessage(models.UserText(input))

	var records []ToolCallRecord
	iterations := 0

	for {
		iterations++
		session.IncrementIterations()
		if iterations > a.config.MaxIterations {
			a.metrics.ObserveIterations(iterations - 1)
			a.metrics.CountError("agent", string(KindMaxIterationsReached))
			return nil, MaxIterationsReached(a.config.MaxIterations)
		}

		if err := ctx.Err(); err != nil {
			return nil, NewError(KindCancelled, "processing cancelled").WithCause(err)
		}

		resp, err := a.complete(ctx, session)
		if err != nil {
			return nil, err
		}

		uses := resp.Message.ToolUses()
		if len(uses) == 0 {
			text := resp.Message.Text()
			session.AddMessage(models.AssistantText(text))
			a.metrics.ObserveIterations(iterations)
			return &AgentResponse{
				Text:       text,
				ToolCalls:  records,
				Iterations: iterations,
			}, nil
		}

		// Mirror the assistant turn: text first when present, then the
		// tool_use blocks in provider order.
		var blocks []models.ContentBlock
		if text := resp.Message.Text(); text != "" {
			blocks = append(blocks, models.Text(text))
		}
		blocks = append(blocks, uses...)
		session.AddMessage(models.NewMessage(models.RoleAssistant, blocks...))

		results := make([]models.ContentBlock, 0, len(uses))
		for _, use := range uses {
			if err := ctx.Err(); err != nil {
				return nil, NewError(KindCancelled, "processing cancelled").WithCause(err)
			}
			record := a.runTool(ctx, use)
			records = append(records, record)
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

func (a *Agent) complete(ctx context.Context, session *Session) (*llm.CompletionResponse, error) {
	req := a.buildRequest(session)

	spanCtx, span := a.tracer.TraceLLMRequest(ctx, a.provider.Name(), a.config.Model)
	start := time.Now()
	resp, err := a.provider.Complete(spanCtx, req)
	elapsed := time.Since(start).Seconds()
	a.metrics.ObserveLLMRequest(a.provider.Name(), a.config.Model, elapsed, err == nil)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		if ctx.Err() != nil {
			return nil, NewError(KindCancelled, "processing cancelled").WithCause(ctx.Err())
		}
		a.metrics.CountError("provider", errKind(err))
		a.logger.Error(ctx, "completion failed", "provider", a.provider.Name(), "error", err)
		return nil, NewError(KindProvider, fmt.Sprintf("provider %s: %v", a.provider.Name(), err)).WithCause(err)
	}
	span.End()
	a.metrics.AddTokens(a.provider.Name(), resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}

func (a *Agent) toolsAttached() bool {
	return a.config.ToolsEnabled && a.registry != nil && a.registry.Len() > 0
}

// runTool executes one tool call and always yields a record; executor
// failures become error records the model can react to rather than
// aborting the run.
func (a *Agent) runTool(ctx context.Context, use models.ContentBlock) ToolCallRecord {
	if a.executor == nil {
		return ToolCallRecord{
			ID:      use.ID,
			Name:    use.Name,
			Output:  fmt.Sprintf("Tool execution not available: %s", use.Name),
			IsError: true,
		}
	}

	input := use.Input
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	spanCtx, span := a.tracer.TraceToolExecution(ctx, use.Name)
	start := time.Now()
	out, err := a.executor.Execute(spanCtx, use.Name, input)
	elapsed := time.Since(start)
	record := ToolCallRecord{
		ID:         use.ID,
		Name:       use.Name,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		observability.RecordError(span, err)
		record.Output = err.Error()
		record.IsError = true
		a.metrics.CountError("tool", string(tools.KindOf(err)))
		a.logger.Warn(ctx, "tool execution failed", "tool", use.Name, "error", err)
	} else {
		record.Output = out.Content
		record.IsError = out.IsError
	}
	span.End()
	a.metrics.ObserveToolExecution(use.Name, elapsed.Seconds(), !record.IsError)
	return record
}

func errKind(err error) string {
	if llmErr, ok := llm.AsError(err); ok {
		return string(llmErr.Kind)
	}
	return "unknown"
}
