// Package google adapts the Gemini API to the llm.Provider contract.
// Gemini does not assign tool-call ids, so the adapter synthesizes them
// and maps them back to function names when sending results.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/pkg/models"
)

const defaultModel = "gemini-2.0-flash"

// Config holds Gemini client settings.
type Config struct {
	APIKey string

	// DefaultModel is used when a request leaves Model empty.
	DefaultModel string
}

// Provider implements llm.Provider backed by Gemini.
type Provider struct {
	client       *genai.Client
	defaultModel string
}

// New builds a Gemini provider. The API key is required.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, &llm.Error{
			Kind:     llm.KindConfig,
			Provider: "google",
			Message:  "API key not configured",
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llm.NewError("google", "", err)
	}

	p := &Provider{client: client, defaultModel: cfg.DefaultModel}
	if p.defaultModel == "" {
		p.defaultModel = defaultModel
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "google"
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Capabilities reports the feature set of the Gemini API.
func (p *Provider) Capabilities() models.Capabilities {
	return models.ToolCapabilities().With(
		models.CapImageInput, models.CapVision,
		models.CapAudioInput, models.CapFileInput,
		models.CapJSONMode,
	)
}

// HealthCheck verifies the provider is usable. The model catalog is
// static, so this only exercises the client configuration.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	infos := []llm.ModelInfo{
		{ID: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash", ContextWindow: 1048576, SupportsTools: true, SupportsVision: true},
		{ID: "gemini-2.0-flash-lite", DisplayName: "Gemini 2.0 Flash-Lite", ContextWindow: 1048576, SupportsTools: true, SupportsVision: true},
		{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", ContextWindow: 2097152, SupportsTools: true, SupportsVision: true},
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Complete performs a blocking completion.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := p.model(req)
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, p.invalidRequest(model, err)
	}
	config := buildConfig(req)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, p.wrapError(model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: "google",
			Model:    model,
			Message:  "response contained no candidates",
		}
	}
	candidate := resp.Candidates[0]

	var blocks []models.ContentBlock
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			blocks = append(blocks, models.Text(part.Text))
		}
		if part.FunctionCall != nil {
			input, jerr := json.Marshal(part.FunctionCall.Args)
			if jerr != nil {
				input = []byte("{}")
			}
			blocks = append(blocks, models.ToolUse(newToolCallID(part.FunctionCall.Name), part.FunctionCall.Name, input))
		}
	}

	stop := llm.ParseStopReason(string(candidate.FinishReason))
	var usage models.Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &llm.CompletionResponse{
		ID:         resp.ResponseID,
		Model:      model,
		Message:    models.NewMessage(models.RoleAssistant, blocks...),
		StopReason: &stop,
		Usage:      usage,
	}, nil
}

// Stream performs a streaming completion. Gemini delivers function calls
// whole, so each one becomes a start/delta/end triple in the normalized
// stream.
func (p *Provider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	model := p.model(req)
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, p.invalidRequest(model, err)
	}
	config := buildConfig(req)

	chunks := make(chan llm.StreamChunk)
	go func() {
		defer close(chunks)

		send := func(c llm.StreamChunk) bool {
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		started := false
		sawToolCall := false
		var usage *models.Usage
		var stop *llm.StopReason

		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				wrapped := p.wrapError(model, err)
				var llmErr *llm.Error
				if errors.As(wrapped, &llmErr) {
					send(llm.ErrorChunk(string(llmErr.Kind), llmErr.Error()))
				} else {
					send(llm.ErrorChunk(string(llm.KindStream), err.Error()))
				}
				return
			}
			if resp == nil {
				continue
			}

			if !started {
				started = true
				if !send(llm.MessageStartChunk(resp.ResponseID)) {
					return
				}
			}
			if resp.UsageMetadata != nil {
				usage = &models.Usage{
					InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
					OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate == nil {
					continue
				}
				if candidate.FinishReason != "" {
					s := llm.ParseStopReason(string(candidate.FinishReason))
					stop = &s
				}
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part == nil {
						continue
					}
					if part.Text != "" {
						if !send(llm.TextDeltaChunk(part.Text)) {
							return
						}
					}
					if part.FunctionCall != nil {
						sawToolCall = true
						id := newToolCallID(part.FunctionCall.Name)
						input, jerr := json.Marshal(part.FunctionCall.Args)
						if jerr != nil {
							input = []byte("{}")
						}
						if !send(llm.ToolUseStartChunk(id, part.FunctionCall.Name)) {
							return
						}
						if !send(llm.ToolUseDeltaChunk(id, string(input))) {
							return
						}
						if !send(llm.ToolUseEndChunk(id)) {
							return
						}
					}
				}
			}
		}

		if !started {
			if !send(llm.MessageStartChunk("")) {
				return
			}
		}
		if usage != nil {
			if !send(llm.UsageChunk(*usage)) {
				return
			}
		}
		if stop == nil && sawToolCall {
			s := llm.StopToolUse
			stop = &s
		}
		send(llm.MessageEndChunk(stop))
	}()
	return chunks, nil
}

func (p *Provider) model(req *llm.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func buildConfig(req *llm.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != nil && *req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: *req.System}},
		}
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}
	if len(req.Tools) > 0 {
		config.Tools = convertTools(req.Tools)
	}
	return config
}

func convertMessages(msgs []models.Message) ([]*genai.Content, error) {
	// Tool results reference call ids; Gemini wants function names, so
	// build the id to name index first.
	callNames := make(map[string]string)
	for _, msg := range msgs {
		for _, use := range msg.ToolUses() {
			callNames[use.ID] = use.Name
		}
	}

	var result []*genai.Content
	for _, msg := range msgs {
		// System prompts travel in GenerateContentConfig.
		if msg.Role == models.RoleSystem {
			continue
		}

		content := &genai.Content{Role: genai.RoleUser}
		if msg.Role == models.RoleAssistant {
			content.Role = genai.RoleModel
		}

		for _, b := range msg.Content {
			switch b.Type {
			case models.BlockText:
				if b.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
				}
			case models.BlockToolUse:
				var args map[string]any
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return nil, errors.New("invalid tool use input: " + err.Error())
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: b.Name, Args: args},
				})
			case models.BlockToolResult:
				name := callNames[b.ToolUseID]
				if name == "" {
					name = nameFromCallID(b.ToolUseID)
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name: name,
						Response: map[string]any{
							"result": b.ResultText(),
						},
					},
				})
			case models.BlockImage:
				if b.Source == nil {
					continue
				}
				if b.Source.Type == models.SourceBase64 {
					content.Parts = append(content.Parts, &genai.Part{
						InlineData: &genai.Blob{
							MIMEType: b.Source.MediaType,
							Data:     []byte(b.Source.Data),
						},
					})
				} else if b.Source.Type == models.SourceURL {
					content.Parts = append(content.Parts, &genai.Part{
						FileData: &genai.FileData{FileURI: b.Source.URL},
					})
				}
			}
		}
		if len(content.Parts) == 0 {
			continue
		}
		result = append(result, content)
	}
	return result, nil
}

func convertTools(defs []tools.Definition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		var schemaMap map[string]any
		if err := json.Unmarshal(def.ParametersJSON(), &schemaMap); err != nil {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGeminiSchema(schemaMap),
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a JSON Schema map to Gemini's Schema type,
// uppercasing type names as the API requires.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}

	schema := &genai.Schema{}
	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

// newToolCallID synthesizes a call id; Gemini does not assign them.
func newToolCallID(name string) string {
	return fmt.Sprintf("call_%s_%d", name, time.Now().UnixNano())
}

// nameFromCallID recovers the function name from a synthesized id of the
// form call_<name>_<nanos>.
func nameFromCallID(id string) string {
	trimmed := strings.TrimPrefix(id, "call_")
	if i := strings.LastIndex(trimmed, "_"); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}

func (p *Provider) invalidRequest(model string, err error) error {
	return &llm.Error{
		Kind:     llm.KindInvalidRequest,
		Provider: "google",
		Model:    model,
		Message:  err.Error(),
		Cause:    err,
	}
}

func (p *Provider) wrapError(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	e := llm.NewError("google", model, err)

	// The SDK does not expose a stable error type, so recover the status
	// from the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthenticated"):
		e = e.WithStatus(http.StatusUnauthorized)
	case strings.Contains(msg, "403") || strings.Contains(msg, "permission denied"):
		e = e.WithStatus(http.StatusForbidden)
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		e = e.WithStatus(http.StatusNotFound)
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted"):
		e = e.WithStatus(http.StatusTooManyRequests)
	case strings.Contains(msg, "500"):
		e = e.WithStatus(http.StatusInternalServerError)
	case strings.Contains(msg, "503"):
		e = e.WithStatus(http.StatusServiceUnavailable)
	}
	return e
}
