// Package embeddings defines the embedding provider contract and an
// OpenAI-backed implementation, used by the vector store for semantic
// search.
package embeddings

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/strand/internal/llm"
)

const (
	defaultModel     = string(openai.SmallEmbedding3)
	defaultBatchSize = 100
)

// Provider produces vector embeddings for text.
type Provider interface {
	// Name returns the stable lowercase provider identifier.
	Name() string

	// Dimension returns the embedding vector size.
	Dimension() int

	// MaxBatchSize returns the largest number of inputs a single
	// Embed call sends to the backend at once.
	MaxBatchSize() int

	// Embed returns one embedding per input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// OpenAIConfig holds settings for the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string

	// Model defaults to text-embedding-3-small.
	Model string

	// Dimension defaults to 1536.
	Dimension int

	// MaxBatchSize defaults to 100.
	MaxBatchSize int
}

// OpenAI implements Provider using OpenAI's embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     string
	dimension int
	maxBatch  int
}

// NewOpenAI builds an OpenAI embedding provider. The API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
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

	p := &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		maxBatch:  cfg.MaxBatchSize,
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.dimension <= 0 {
		p.dimension = 1536
	}
	if p.maxBatch <= 0 {
		p.maxBatch = defaultBatchSize
	}
	return p, nil
}

func (p *OpenAI) Name() string {
	return "openai"
}

func (p *OpenAI) Dimension() int {
	return p.dimension
}

func (p *OpenAI) MaxBatchSize() int {
	return p.maxBatch
}

// Embed splits the inputs into batches of at most MaxBatchSize and
// returns the embeddings in input order.
func (p *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.maxBatch {
		end := start + p.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedOne embeds a single text.
func (p *OpenAI) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: "openai",
			Model:    p.model,
			Message:  "empty embedding result",
		}
	}
	return vectors[0], nil
}

func (p *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, llm.NewError("openai", p.model, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, &llm.Error{
			Kind:     llm.KindInvalidResponse,
			Provider: "openai",
			Model:    p.model,
			Message:  "empty embedding result",
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, &llm.Error{
				Kind:     llm.KindInvalidResponse,
				Provider: "openai",
				Model:    p.model,
				Message:  "embedding index out of range",
			}
		}
		vectors[item.Index] = item.Embedding
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return nil, &llm.Error{
				Kind:     llm.KindInvalidResponse,
				Provider: "openai",
				Model:    p.model,
				Message:  "empty embedding result",
			}
		}
	}
	return vectors, nil
}
