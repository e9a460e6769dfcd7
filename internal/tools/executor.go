package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultTimeout is the per-call execution budget when the executor is
// built without one.
const DefaultTimeout = 60 * time.Second

// MaxInputSize bounds tool input JSON (10MB).
const MaxInputSize = 10 << 20

// Executor dispatches tool calls with input validation, deadline
// clamping, and panic containment.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for discarded results and panics.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		schemas:  make(map[string]*jsonschema.Schema),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the configured default per-call budget.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// IsDangerous reports whether the named tool is marked dangerous.
// Unknown names are not dangerous.
func (e *Executor) IsDangerous(name string) bool {
	tool, ok := e.registry.Get(name)
	return ok && tool.Definition().Dangerous
}

// NeedsConfirmation mirrors IsDangerous; the flag is advisory and the
// executor itself never blocks on it. Enforcement belongs to the host.
func (e *Executor) NeedsConfirmation(name string) bool {
	return e.IsDangerous(name)
}

// Execute runs the named tool with the given input.
//
// The effective deadline is the smaller of the remaining context budget
// and the executor's default timeout, so a caller's deadline is never
// extended. The tool runs in its own goroutine; a panic is contained and
// reported as a tool error rather than taking down the loop.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) (Output, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		return Output{}, NewError(KindNotFound, name, "tool not found")
	}
	if err := ctx.Err(); err != nil {
		return Output{}, &Error{Kind: KindCancelled, Tool: name, Message: "execution cancelled", Cause: err}
	}
	if len(input) > MaxInputSize {
		return Output{}, NewError(KindInvalidInput, name,
			fmt.Sprintf("tool input exceeds maximum size of %d bytes", MaxInputSize))
	}
	if err := e.validateInput(tool, input); err != nil {
		return Output{}, err
	}

	timeout := e.timeout
	if at, ok := ctx.Deadline(); ok {
		if remaining := DeadlineAt(at).Remaining(); remaining < timeout {
			timeout = remaining
		}
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out Output
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("tool panicked",
					"tool", name,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				ch <- result{err: NewError(KindPanic, name, fmt.Sprintf("tool panicked: %v", r))}
			}
		}()
		out, err := tool.Execute(execCtx, input)
		select {
		case ch <- result{out: out, err: err}:
		default:
			// Deadline fired first; the slot is gone and the caller has
			// already been answered.
			e.logger.Warn("tool completed after deadline, result discarded", "tool", name)
		}
	}()

	select {
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Output{}, NewError(KindTimeout, name,
				fmt.Sprintf("tool execution timed out after %dms", timeout.Milliseconds()))
		}
		return Output{}, &Error{Kind: KindCancelled, Tool: name, Message: "execution cancelled", Cause: ctx.Err()}
	case res := <-ch:
		if res.err != nil {
			var toolErr *Error
			if errors.As(res.err, &toolErr) {
				return Output{}, res.err
			}
			return Output{}, &Error{Kind: KindExecution, Tool: name, Message: res.err.Error(), Cause: res.err}
		}
		return res.out, nil
	}
}

// validateInput checks the input against the tool's parameter schema.
// Tools without a schema accept anything.
func (e *Executor) validateInput(tool Tool, input json.RawMessage) error {
	def := tool.Definition()
	if def.Parameters == nil {
		return nil
	}

	schema, err := e.compiledSchema(def)
	if err != nil {
		// A schema the registry accepted but the validator cannot compile
		// should not block the tool.
		e.logger.Warn("tool schema failed to compile, skipping validation",
			"tool", def.Name, "error", err)
		return nil
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	var value any
	if err := json.Unmarshal(input, &value); err != nil {
		return NewError(KindInvalidInput, def.Name, fmt.Sprintf("input is not valid JSON: %v", err))
	}
	if err := schema.Validate(value); err != nil {
		return NewError(KindInvalidInput, def.Name, fmt.Sprintf("input validation failed: %v", err))
	}
	return nil
}

func (e *Executor) compiledSchema(def Definition) (*jsonschema.Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if schema, ok := e.schemas[def.Name]; ok {
		return schema, nil
	}
	schema, err := jsonschema.CompileString(def.Name+".json", string(def.ParametersJSON()))
	if err != nil {
		return nil, err
	}
	e.schemas[def.Name] = schema
	return schema, nil
}
