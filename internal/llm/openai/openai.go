// Package openai adapts OpenAI's chat completion API to the llm.Provider
// contract, including incremental tool-call accumulation and retry with
// linear backoff.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/pkg/models"
)

const (
	defaultModel      = "gpt-4o"
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Config holds OpenAI client settings.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint, for proxies and compatible
	// servers.
	BaseURL string

	OrgID      string
	HTTPClient *http.Client

	// MaxRetries bounds retry attempts for retryable failures. Default 3.
	MaxRetries int

	// RetryDelay is the base delay; attempt n waits n * RetryDelay.
	RetryDelay time.Duration

	// DefaultModel is used when a request leaves Model empty.
	DefaultModel string
}

// Provider implements llm.Provider backed by OpenAI.
type Provider struct {
	client       *openai.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// New builds an OpenAI provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, &llm.Error{
			Kind:     llm.KindConfig,
			Provider: "openai",
			Message:  "API key not configured",
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		clientCfg.OrgID = cfg.OrgID
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	p := &Provider{
		client:       openai.NewClientWithConfig(clientCfg),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = defaultMaxRetries
	}
	if p.retryDelay <= 0 {
		p.retryDelay = defaultRetryDelay
	}
	if p.defaultModel == "" {
		p.defaultModel = defaultModel
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Capabilities reports the feature set of the chat completions API.
func (p *Provider) Capabilities() models.Capabilities {
	return models.ToolCapabilities().With(models.CapImageInput, models.CapVision, models.CapJSONMode)
}

// HealthCheck verifies connectivity by listing models on the live
// endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return p.wrapError("", err)
	}
	return nil
}

// ListModels returns a static catalog; OpenAI's models endpoint does not
// report capabilities, so the list is maintained here.
func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	infos := []llm.ModelInfo{
		{ID: "gpt-4o", DisplayName: "GPT-4o", ContextWindow: 128000, SupportsTools: true, SupportsVision: true},
		{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", ContextWindow: 128000, SupportsTools: true, SupportsVision: true},
		{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo", ContextWindow: 128000, SupportsTools: true, SupportsVision: true},
		{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", ContextWindow: 16385, SupportsTools: true},
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Complete performs a blocking completion with retry on transient
// failures.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	chatReq, model := p.buildRequest(req, false)

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = p.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !llm.IsRetryable(p.wrapError(model, lastErr)) {
			return nil, p.wrapError(model, lastErr)
		}
	}
	if lastErr != nil {
		return nil, p.wrapError(model, lastErr)
	}

	if len(resp.Choices) == 0 {
		return nil, &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: "openai",
			Model:    model,
			Message:  "response contained no choices",
		}
	}
	choice := resp.Choices[0]

	var blocks []models.ContentBlock
	if choice.Message.Content != "" {
		blocks = append(blocks, models.Text(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		blocks = append(blocks, models.ToolUse(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
	}

	stop := llm.ParseStopReason(string(choice.FinishReason))
	return &llm.CompletionResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Message:    models.NewMessage(models.RoleAssistant, blocks...),
		StopReason: &stop,
		Usage: models.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Stream performs a streaming completion and normalizes the vendor
// stream into the shared chunk alphabet.
func (p *Provider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	chatReq, model := p.buildRequest(req, true)

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !llm.IsRetryable(p.wrapError(model, lastErr)) {
			return nil, p.wrapError(model, lastErr)
		}
	}
	if lastErr != nil {
		return nil, p.wrapError(model, lastErr)
	}

	chunks := make(chan llm.StreamChunk)
	go p.pump(ctx, stream, model, chunks)
	return chunks, nil
}

// openTool tracks a tool call being assembled from incremental deltas.
type openTool struct {
	id      string
	started bool
}

func (p *Provider) pump(ctx context.Context, stream *openai.ChatCompletionStream, model string, chunks chan<- llm.StreamChunk) {
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

	started := false
	var usage *models.Usage
	var stop *llm.StopReason
	open := make(map[int]*openTool)

	closeTools := func() bool {
		indexes := make([]int, 0, len(open))
		for i, t := range open {
			if t.started {
				indexes = append(indexes, i)
			}
		}
		sort.Ints(indexes)
		for _, i := range indexes {
			if !send(llm.ToolUseEndChunk(open[i].id)) {
				return false
			}
		}
		clear(open)
		return true
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !closeTools() {
					return
				}
				if usage != nil {
					if !send(llm.UsageChunk(*usage)) {
						return
					}
				}
				send(llm.MessageEndChunk(stop))
				return
			}
			send(p.streamErrorChunk(model, err))
			return
		}

		if !started {
			started = true
			if !send(llm.MessageStartChunk(resp.ID)) {
				return
			}
		}
		if resp.Usage != nil {
			usage = &models.Usage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]

		if choice.Delta.Content != "" {
			if !send(llm.TextDeltaChunk(choice.Delta.Content)) {
				return
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			t := open[index]
			if t == nil {
				t = &openTool{}
				open[index] = t
			}
			if tc.ID != "" {
				t.id = tc.ID
			}
			if tc.Function.Name != "" && !t.started {
				t.started = true
				if !send(llm.ToolUseStartChunk(t.id, tc.Function.Name)) {
					return
				}
			}
			if tc.Function.Arguments != "" && t.started {
				if !send(llm.ToolUseDeltaChunk(t.id, tc.Function.Arguments)) {
					return
				}
			}
		}

		if choice.FinishReason != "" {
			s := llm.ParseStopReason(string(choice.FinishReason))
			stop = &s
		}
	}
}

// streamErrorChunk maps a mid-stream read failure to an error chunk.
// wrapError passes cancellation-wrapping errors through raw, so the
// result is not always an *llm.Error.
func (p *Provider) streamErrorChunk(model string, err error) llm.StreamChunk {
	wrapped := p.wrapError(model, err)
	var llmErr *llm.Error
	if errors.As(wrapped, &llmErr) {
		return llm.ErrorChunk(string(llmErr.Kind), llmErr.Error())
	}
	return llm.ErrorChunk(string(llm.KindStream), err.Error())
}

func (p *Provider) buildRequest(req *llm.CompletionRequest, streaming bool) (openai.ChatCompletionRequest, string) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertMessages(req),
		Stream:   streaming,
	}
	if streaming {
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		chatReq.TopP = float32(*req.TopP)
	}
	if len(req.Stop) > 0 {
		chatReq.Stop = req.Stop
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
		chatReq.ToolChoice = convertToolChoice(req.ToolChoice)
	}
	return chatReq, model
}

func convertMessages(req *llm.CompletionRequest) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	// OpenAI takes the system prompt as the first message.
	if req.System != nil && *req.System != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: *req.System,
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})

		case models.RoleUser:
			result = append(result, convertUserMessage(msg))

		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, use := range msg.ToolUses() {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   use.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      use.Name,
						Arguments: string(use.Input),
					},
				})
			}
			result = append(result, oaiMsg)

		case models.RoleTool:
			// One message per result, linked by tool call id.
			for _, b := range msg.Content {
				if b.Type != models.BlockToolResult {
					continue
				}
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.ResultText(),
					ToolCallID: b.ToolUseID,
				})
			}
		}
	}
	return result
}

func convertUserMessage(msg models.Message) openai.ChatCompletionMessage {
	hasImages := false
	for _, b := range msg.Content {
		if b.Type == models.BlockImage {
			hasImages = true
			break
		}
	}
	if !hasImages {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: msg.Text(),
		}
	}

	var parts []openai.ChatMessagePart
	for _, b := range msg.Content {
		switch b.Type {
		case models.BlockText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: b.Text,
			})
		case models.BlockImage:
			if b.Source == nil {
				continue
			}
			url := b.Source.URL
			if b.Source.Type == models.SourceBase64 {
				url = "data:" + b.Source.MediaType + ";base64," + b.Source.Data
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    url,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}
}

func convertTools(defs []tools.Definition) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		var schema map[string]any
		if err := json.Unmarshal(def.ParametersJSON(), &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema,
			},
		}
	}
	return result
}

func convertToolChoice(choice *llm.ToolChoice) any {
	if choice == nil {
		return nil
	}
	switch choice.Type {
	case llm.ToolChoiceNone:
		return "none"
	case llm.ToolChoiceRequired:
		return "required"
	case llm.ToolChoiceTool:
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: choice.Name},
		}
	default:
		return "auto"
	}
}

func (p *Provider) wrapError(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	e := llm.NewError("openai", model, err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e = e.WithMessage(apiErr.Message).WithStatus(apiErr.HTTPStatusCode)
		if code, ok := apiErr.Code.(string); ok {
			e = e.WithCode(code)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		e = e.WithStatus(reqErr.HTTPStatusCode)
	}
	return e
}
