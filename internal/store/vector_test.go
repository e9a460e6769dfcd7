package store

import (
	"context"
	"strings"
	"testing"
)

func TestVectorDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(3)

	err := s.Upsert(ctx, VectorDoc{ID: "a", Vector: []float32{1, 2}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "vector dimension mismatch: expected 3, got 2") {
		t.Errorf("err = %v", err)
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestVectorAdoptsFirstDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(0)

	if err := s.Upsert(ctx, VectorDoc{ID: "a", Vector: []float32{1, 0, 0, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	err := s.Upsert(ctx, VectorDoc{ID: "b", Vector: []float32{1, 0}})
	if err == nil {
		t.Fatal("second dimension should be rejected")
	}
}

func TestVectorSearchOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(2)

	docs := []VectorDoc{
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "northeast", Vector: []float32{1, 1}},
	}
	if err := s.Upsert(ctx, docs...); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "east" {
		t.Errorf("best hit = %s, want east", hits[0].ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not sorted by similarity")
	}
	if hits[1].ID != "northeast" {
		t.Errorf("second hit = %s, want northeast", hits[1].ID)
	}
}

func TestVectorSearchFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(2)

	_ = s.Upsert(ctx,
		VectorDoc{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "go", "stars": 10}},
		VectorDoc{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "rust", "stars": 5}},
		VectorDoc{ID: "c", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "go", "stars": 2}},
	)

	tests := []struct {
		name    string
		filters []Filter
		wantIDs []string
	}{
		{"eq", []Filter{{Field: "lang", Op: FilterEq, Value: "go"}}, []string{"a", "c"}},
		{"ne", []Filter{{Field: "lang", Op: FilterNe, Value: "go"}}, []string{"b"}},
		{"gt", []Filter{{Field: "stars", Op: FilterGt, Value: 4}}, []string{"a", "b"}},
		{"lte", []Filter{{Field: "stars", Op: FilterLte, Value: 5}}, []string{"b", "c"}},
		{"in", []Filter{{Field: "lang", Op: FilterIn, Value: []any{"rust", "zig"}}}, []string{"b"}},
		{"contains", []Filter{{Field: "lang", Op: FilterContains, Value: "us"}}, []string{"b"}},
		{"conjunction", []Filter{
			{Field: "lang", Op: FilterEq, Value: "go"},
			{Field: "stars", Op: FilterGte, Value: 10},
		}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.Search(ctx, []float32{1, 0}, 0, tt.filters...)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			got := make([]string, len(hits))
			for i, hit := range hits {
				got[i] = hit.ID
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
				}
			}
		})
	}
}

func TestVectorDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(2)
	_ = s.Upsert(ctx, VectorDoc{ID: "a", Vector: []float32{1, 0}})

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Len() != 0 {
		t.Error("document not deleted")
	}
}
