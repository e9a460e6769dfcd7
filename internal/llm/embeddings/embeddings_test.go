package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/strand/internal/llm"
)

func newTestOpenAI(t *testing.T, handler http.Handler) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	llmErr, ok := llm.AsError(err)
	if !ok || llmErr.Kind != llm.KindConfig {
		t.Fatalf("err = %v", err)
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	p := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose; the provider must reorder by index.
		fmt.Fprint(w, `{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]},
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`)
	}))

	vectors, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors = %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("vectors = %v", vectors)
	}
}

func TestEmbedEmptyInputs(t *testing.T) {
	p := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	}))

	vectors, err := p.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("got %v, %v", vectors, err)
	}
}

func TestEmbedBatches(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}

		data := make([]string, len(req.Input))
		for i := range req.Input {
			data[i] = fmt.Sprintf(`{"object": "embedding", "index": %d, "embedding": [0.1, 0.2]}`, i)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object": "list", "data": [%s], "model": "text-embedding-3-small", "usage": {"prompt_tokens": 1, "total_tokens": 1}}`,
			strings.Join(data, ","))
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", MaxBatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 3 {
		t.Fatalf("vectors = %d", len(vectors))
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestEmbedOne(t *testing.T) {
	p := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object": "list", "data": [{"object": "embedding", "index": 0, "embedding": [0.5, 0.6]}], "model": "text-embedding-3-small", "usage": {"prompt_tokens": 1, "total_tokens": 1}}`)
	}))

	vector, err := p.EmbedOne(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("vector = %v", vector)
	}
}

func TestEmbedEmptyResult(t *testing.T) {
	p := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object": "list", "data": [], "model": "text-embedding-3-small", "usage": {"prompt_tokens": 0, "total_tokens": 0}}`)
	}))

	_, err := p.Embed(context.Background(), []string{"text"})
	llmErr, ok := llm.AsError(err)
	if !ok || llmErr.Kind != llm.KindInvalidResponse {
		t.Fatalf("err = %v", err)
	}
}
