// Package store is the storage library for the runtime: a TTL cache, a
// SQLite-backed relational store with migrations, full-text search on
// FTS5, and a vector store with metadata filtering.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes storage failures.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindAlreadyExists ErrorKind = "already_exists"
	KindInvalidInput  ErrorKind = "invalid_input"
	KindIO            ErrorKind = "io"
	KindBackend       ErrorKind = "backend"
	KindMigration     ErrorKind = "migration"
)

// Error is a structured storage failure.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error.
func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WithCause attaches an underlying error for Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// KindOf extracts the kind from an error chain. Foreign errors report
// KindBackend.
func KindOf(err error) ErrorKind {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return KindBackend
}

// CacheStore is a byte cache with per-entry TTL.
type CacheStore interface {
	// Get returns the value and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Row is one relational result row keyed by column name.
type Row map[string]any

// Migration is one schema step. Versions must be unique and are applied
// in ascending order.
type Migration struct {
	Version int
	SQL     string
}

// RelationalStore executes SQL against a backing database.
type RelationalStore interface {
	// Execute runs a statement and returns the affected row count.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a select and materializes all rows.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Migrate applies pending migrations, recording versions so reruns
	// are no-ops.
	Migrate(ctx context.Context, migrations []Migration) error

	Close() error
}

// FtsHit is one full-text search result, best first.
type FtsHit struct {
	DocID  string
	Rank   float64
	Fields map[string]string
}

// FilterOp enumerates metadata comparison operators.
type FilterOp string

const (
	FilterEq       FilterOp = "eq"
	FilterNe       FilterOp = "ne"
	FilterGt       FilterOp = "gt"
	FilterGte      FilterOp = "gte"
	FilterLt       FilterOp = "lt"
	FilterLte      FilterOp = "lte"
	FilterIn       FilterOp = "in"
	FilterContains FilterOp = "contains"
)

// Filter is one metadata predicate; all filters of a search must hold.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// VectorDoc is one embedded document.
type VectorDoc struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorHit is one similarity result.
type VectorHit struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorStore stores embeddings and searches by cosine similarity.
type VectorStore interface {
	Upsert(ctx context.Context, docs ...VectorDoc) error
	Search(ctx context.Context, vector []float32, limit int, filters ...Filter) ([]VectorHit, error)
	Delete(ctx context.Context, ids ...string) error
}
