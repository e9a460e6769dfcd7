// Package anthropic adapts the Anthropic Messages API to the
// llm.Provider contract. Tool inputs stream as partial JSON fragments
// that consumers reassemble with the shared aggregator.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/pkg/models"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Config holds Anthropic client settings.
type Config struct {
	APIKey  string
	BaseURL string

	// DefaultModel is used when a request leaves Model empty.
	DefaultModel string

	// MaxTokens is the fallback max_tokens; the Messages API requires one.
	MaxTokens int
}

// Provider implements llm.Provider backed by Anthropic.
type Provider struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int
}

// New builds an Anthropic provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, &llm.Error{
			Kind:     llm.KindConfig,
			Provider: "anthropic",
			Message:  "API key not configured",
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	p := &Provider{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
	}
	if p.defaultModel == "" {
		p.defaultModel = defaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Capabilities reports the feature set of the Messages API.
func (p *Provider) Capabilities() models.Capabilities {
	return models.ToolCapabilities().With(models.CapImageInput, models.CapVision)
}

// HealthCheck verifies the provider is usable. The model catalog is
// static, so this only exercises the client configuration.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	infos := []llm.ModelInfo{
		{ID: "claude-opus-4-20250514", DisplayName: "Claude Opus 4", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
		{ID: "claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
		{ID: "claude-3-5-haiku-20241022", DisplayName: "Claude 3.5 Haiku", ContextWindow: 200000, SupportsTools: true, SupportsVision: true},
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Complete performs a blocking completion.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, model, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(model, err)
	}

	var blocks []models.ContentBlock
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text := block.AsText()
			blocks = append(blocks, models.Text(text.Text))
		case "tool_use":
			use := block.AsToolUse()
			blocks = append(blocks, models.ToolUse(use.ID, use.Name, json.RawMessage(use.Input)))
		}
	}

	stop := llm.ParseStopReason(string(msg.StopReason))
	usage := models.Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	if msg.Usage.CacheReadInputTokens > 0 {
		n := int(msg.Usage.CacheReadInputTokens)
		usage.CacheReadTokens = &n
	}
	if msg.Usage.CacheCreationInputTokens > 0 {
		n := int(msg.Usage.CacheCreationInputTokens)
		usage.CacheWriteTokens = &n
	}

	return &llm.CompletionResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Message:    models.NewMessage(models.RoleAssistant, blocks...),
		StopReason: &stop,
		Usage:      usage,
	}, nil
}

// Stream performs a streaming completion, normalizing the SSE events
// into the shared chunk alphabet.
func (p *Provider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	params, model, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	chunks := make(chan llm.StreamChunk)
	go p.pump(ctx, stream, model, chunks)
	return chunks, nil
}

func (p *Provider) pump(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], model string, chunks chan<- llm.StreamChunk) {
	defer close(chunks)
	defer stream.Close()

	send := func(c llm.StreamChunk) bool {
		select {
		case chunks <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var usage models.Usage
	var stop *llm.StopReason
	// Tool use id per content block index, for routing input deltas.
	openToolIDs := make(map[int64]string)

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			usage.InputTokens = int(start.Message.Usage.InputTokens)
			if !send(llm.MessageStartChunk(start.Message.ID)) {
				return
			}

		case "content_block_start":
			blockStart := event.AsContentBlockStart()
			if blockStart.ContentBlock.Type == "tool_use" {
				use := blockStart.ContentBlock.AsToolUse()
				openToolIDs[blockStart.Index] = use.ID
				if !send(llm.ToolUseStartChunk(use.ID, use.Name)) {
					return
				}
			}

		case "content_block_delta":
			blockDelta := event.AsContentBlockDelta()
			switch blockDelta.Delta.Type {
			case "text_delta":
				if blockDelta.Delta.Text != "" {
					if !send(llm.TextDeltaChunk(blockDelta.Delta.Text)) {
						return
					}
				}
			case "input_json_delta":
				if id, ok := openToolIDs[blockDelta.Index]; ok && blockDelta.Delta.PartialJSON != "" {
					if !send(llm.ToolUseDeltaChunk(id, blockDelta.Delta.PartialJSON)) {
						return
					}
				}
			}

		case "content_block_stop":
			blockStop := event.AsContentBlockStop()
			if id, ok := openToolIDs[blockStop.Index]; ok {
				delete(openToolIDs, blockStop.Index)
				if !send(llm.ToolUseEndChunk(id)) {
					return
				}
			}

		case "message_delta":
			msgDelta := event.AsMessageDelta()
			if msgDelta.Usage.OutputTokens > 0 {
				usage.OutputTokens = int(msgDelta.Usage.OutputTokens)
			}
			if msgDelta.Delta.StopReason != "" {
				s := llm.ParseStopReason(string(msgDelta.Delta.StopReason))
				stop = &s
			}

		case "message_stop":
			if !send(llm.UsageChunk(usage)) {
				return
			}
			send(llm.MessageEndChunk(stop))
			return

		case "error":
			send(llm.ErrorChunk(string(llm.KindStream), "anthropic stream error"))
			return
		}
	}

	if err := stream.Err(); err != nil {
		wrapped := p.wrapError(model, err)
		var llmErr *llm.Error
		if errors.As(wrapped, &llmErr) {
			send(llm.ErrorChunk(string(llmErr.Kind), llmErr.Error()))
		} else {
			send(llm.ErrorChunk(string(llm.KindStream), err.Error()))
		}
		return
	}

	// Stream ended without message_stop.
	send(llm.MessageEndChunk(stop))
}

func (p *Provider) buildParams(req *llm.CompletionRequest) (anthropic.MessageNewParams, string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := p.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, model, &llm.Error{
			Kind:     llm.KindInvalidRequest,
			Provider: "anthropic",
			Model:    model,
			Message:  err.Error(),
			Cause:    err,
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != nil && *req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: *req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}
	if len(req.Tools) > 0 {
		converted, err := convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, model, &llm.Error{
				Kind:     llm.KindInvalidRequest,
				Provider: "anthropic",
				Model:    model,
				Message:  err.Error(),
				Cause:    err,
			}
		}
		params.Tools = converted
	}
	return params, model, nil
}

func convertMessages(msgs []models.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range msgs {
		// System prompts travel in params.System, not the message list.
		if msg.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		for _, b := range msg.Content {
			switch b.Type {
			case models.BlockText:
				if b.Text != "" {
					content = append(content, anthropic.NewTextBlock(b.Text))
				}
			case models.BlockToolUse:
				var input map[string]any
				if err := json.Unmarshal(b.Input, &input); err != nil {
					return nil, errors.New("invalid tool use input: " + err.Error())
				}
				content = append(content, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case models.BlockToolResult:
				content = append(content, anthropic.NewToolResultBlock(b.ToolUseID, b.ResultText(), b.IsError))
			case models.BlockImage:
				if b.Source != nil && b.Source.Type == models.SourceBase64 {
					content = append(content, anthropic.NewImageBlockBase64(b.Source.MediaType, b.Source.Data))
				}
			}
		}
		if len(content) == 0 {
			continue
		}

		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			// Tool results ride as user messages in the Messages API.
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

func convertTools(defs []tools.Definition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(def.ParametersJSON(), &schema); err != nil {
			return nil, errors.New("invalid schema for tool " + def.Name + ": " + err.Error())
		}
		param := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(def.Description)
		}
		result = append(result, param)
	}
	return result, nil
}

type errorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *Provider) wrapError(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		e := llm.NewError("anthropic", model, err).WithStatus(apiErr.StatusCode)
		requestID := apiErr.RequestID

		if raw := apiErr.RawJSON(); raw != "" {
			var payload errorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				if payload.Error.Message != "" {
					e = e.WithMessage(payload.Error.Message)
				}
				if payload.Error.Type != "" {
					e = e.WithCode(payload.Error.Type)
				}
				if payload.RequestID != "" {
					requestID = payload.RequestID
				}
			}
		}
		if requestID != "" {
			e = e.WithRequestID(requestID)
		}
		return e
	}
	return llm.NewError("anthropic", model, err)
}
