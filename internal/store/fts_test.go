package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestFts(t *testing.T) *Fts {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "fts.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewFts(s)
}

func TestFtsSearch(t *testing.T) {
	ctx := context.Background()
	f := openTestFts(t)

	if err := f.CreateIndex(ctx, "docs", []string{"title", "body"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	seed := map[string]map[string]string{
		"d1": {"title": "Concurrency in Go", "body": "goroutines and channels compose"},
		"d2": {"title": "Storage engines", "body": "b-trees and write-ahead logs"},
		"d3": {"title": "Channel patterns", "body": "fan-in, fan-out, pipelines with channels"},
	}
	for id, fields := range seed {
		if err := f.Index(ctx, "docs", id, fields); err != nil {
			t.Fatalf("Index %s: %v", id, err)
		}
	}

	hits, err := f.Search(ctx, "docs", "channels", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, hit := range hits {
		if hit.DocID != "d1" && hit.DocID != "d3" {
			t.Errorf("unexpected hit %s", hit.DocID)
		}
		if hit.Rank <= 0 {
			t.Errorf("rank = %g, want positive (negated bm25)", hit.Rank)
		}
	}
	if hits[0].Rank < hits[1].Rank {
		t.Error("hits not ordered best-first")
	}
}

func TestFtsPorterStemming(t *testing.T) {
	ctx := context.Background()
	f := openTestFts(t)

	if err := f.CreateIndex(ctx, "notes", []string{"body"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := f.Index(ctx, "notes", "n1", map[string]string{"body": "running quickly"}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, err := f.Search(ctx, "notes", "run", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("stemmed query got %d hits, want 1", len(hits))
	}
}

func TestFtsUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	f := openTestFts(t)

	if err := f.CreateIndex(ctx, "docs", []string{"body"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := f.Index(ctx, "docs", "d1", map[string]string{"body": "alpha"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := f.Index(ctx, "docs", "d1", map[string]string{"body": "beta"}); err != nil {
		t.Fatalf("re-Index: %v", err)
	}

	if hits, _ := f.Search(ctx, "docs", "alpha", 10); len(hits) != 0 {
		t.Errorf("old content still indexed: %v", hits)
	}
	hits, err := f.Search(ctx, "docs", "beta", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "d1" {
		t.Errorf("hits = %v", hits)
	}
}

func TestFtsDeleteDoc(t *testing.T) {
	ctx := context.Background()
	f := openTestFts(t)

	if err := f.CreateIndex(ctx, "docs", []string{"body"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	_ = f.Index(ctx, "docs", "d1", map[string]string{"body": "ephemeral"})
	if err := f.DeleteDoc(ctx, "docs", "d1"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	if hits, _ := f.Search(ctx, "docs", "ephemeral", 10); len(hits) != 0 {
		t.Errorf("deleted doc still indexed: %v", hits)
	}
}

func TestFtsRejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	f := openTestFts(t)

	if err := f.CreateIndex(ctx, "docs; DROP TABLE x", []string{"body"}); err == nil {
		t.Error("index name with SQL should be rejected")
	}
	if err := f.CreateIndex(ctx, "docs", []string{"body, evil"}); err == nil {
		t.Error("field name with SQL should be rejected")
	}
}
