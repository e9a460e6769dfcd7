package store

import (
	"context"
	"os"
	"path/filepath"
)

// Router composes the storage surfaces under a single handle.
// Relational and FTS are nil in the memory-only configuration.
type Router struct {
	Cache      CacheStore
	Relational RelationalStore
	FTS        *Fts
	Vectors    VectorStore

	sqlite *SQLiteStore
}

// LocalDefault returns an all-memory router: no files, nothing to close.
func LocalDefault() *Router {
	return &Router{
		Cache:   NewMemoryCache(),
		Vectors: NewMemoryVectorStore(0),
	}
}

// LocalPersistent returns a router backed by <dir>/strand.db, creating
// the directory if needed. The cache and vector store stay in memory.
func LocalPersistent(dir string) (*Router, error) {
	if dir == "" {
		return nil, NewError(KindInvalidInput, "router", "dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewError(KindIO, "router", err.Error()).WithCause(err)
	}
	sqlite, err := OpenSQLite(filepath.Join(dir, "strand.db"))
	if err != nil {
		return nil, err
	}
	return &Router{
		Cache:      NewMemoryCache(),
		Relational: sqlite,
		FTS:        NewFts(sqlite),
		Vectors:    NewMemoryVectorStore(0),
		sqlite:     sqlite,
	}, nil
}

// Health verifies every configured surface responds.
func (r *Router) Health(ctx context.Context) error {
	if r.Cache != nil {
		if err := r.Cache.Set(ctx, "_health", []byte("ok"), 0); err != nil {
			return err
		}
		if _, _, err := r.Cache.Get(ctx, "_health"); err != nil {
			return err
		}
	}
	if r.sqlite != nil {
		if err := r.sqlite.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases backing resources.
func (r *Router) Close() error {
	if r.sqlite != nil {
		return r.sqlite.Close()
	}
	return nil
}
