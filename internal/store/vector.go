package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryVectorStore is an in-process VectorStore using exact cosine
// similarity. The dimension is fixed at construction, or adopted from
// the first upserted vector when built with dimension 0.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]VectorDoc
}

// NewMemoryVectorStore creates a store for vectors of the given
// dimension; 0 adopts the first vector's dimension.
func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{
		dimension: dimension,
		docs:      make(map[string]VectorDoc),
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, docs ...VectorDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return NewError(KindInvalidInput, "vector.upsert", "document id must not be empty")
		}
		if err := s.checkDimension(doc.Vector); err != nil {
			return err
		}
		if s.dimension == 0 {
			s.dimension = len(doc.Vector)
		}
		stored := VectorDoc{
			ID:       doc.ID,
			Vector:   append([]float32(nil), doc.Vector...),
			Metadata: copyMetadata(doc.Metadata),
		}
		s.docs[doc.ID] = stored
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, vector []float32, limit int, filters ...Filter) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkDimension(vector); err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(s.docs))
	for _, doc := range s.docs {
		if !matchesFilters(doc.Metadata, filters) {
			continue
		}
		hits = append(hits, VectorHit{
			ID:       doc.ID,
			Score:    cosineSimilarity(vector, doc.Vector),
			Metadata: copyMetadata(doc.Metadata),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *MemoryVectorStore) Delete(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// checkDimension must be called with at least a read lock held; it never
// mutates, so Upsert adopts the dimension itself under the write lock.
func (s *MemoryVectorStore) checkDimension(vector []float32) error {
	if len(vector) == 0 {
		return NewError(KindInvalidInput, "vector", "vector must not be empty")
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return NewError(KindInvalidInput, "vector",
			fmt.Sprintf("vector dimension mismatch: expected %d, got %d", s.dimension, len(vector)))
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func matchesFilters(metadata map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !matchesFilter(metadata, f) {
			return false
		}
	}
	return true
}

func matchesFilter(metadata map[string]any, f Filter) bool {
	value, ok := metadata[f.Field]
	if !ok {
		return false
	}

	switch f.Op {
	case FilterEq:
		return compareValues(value, f.Value) == 0
	case FilterNe:
		return compareValues(value, f.Value) != 0
	case FilterGt:
		return compareValues(value, f.Value) > 0
	case FilterGte:
		return compareValues(value, f.Value) >= 0
	case FilterLt:
		return compareValues(value, f.Value) < 0
	case FilterLte:
		return compareValues(value, f.Value) <= 0
	case FilterIn:
		options, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, opt := range options {
			if compareValues(value, opt) == 0 {
				return true
			}
		}
		return false
	case FilterContains:
		haystack, hok := value.(string)
		needle, nok := f.Value.(string)
		return hok && nok && strings.Contains(haystack, needle)
	default:
		return false
	}
}

// compareValues orders two metadata values. Numbers compare numerically
// across int/float forms; everything else compares as strings. Returns
// -1, 0, or 1; incomparable values report 2 so both Eq and ordered
// comparisons fail.
func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	if a == b {
		return 0
	}
	return 2
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
