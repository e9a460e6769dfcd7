package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Fts provides full-text search over FTS5 virtual tables on a shared
// SQLite handle. Each index becomes a table fts_<name> with porter
// stemming over unicode61 tokenization.
type Fts struct {
	store *SQLiteStore
}

// NewFts creates a full-text layer over an open SQLite store.
func NewFts(store *SQLiteStore) *Fts {
	return &Fts{store: store}
}

var identRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func checkIdent(op, name string) error {
	if !identRe.MatchString(name) {
		return NewError(KindInvalidInput, op, fmt.Sprintf("invalid identifier %q", name))
	}
	return nil
}

// CreateIndex creates the index's virtual table if it does not exist.
// The doc id column is unindexed; fields are searchable.
func (f *Fts) CreateIndex(ctx context.Context, index string, fields []string) error {
	if err := checkIdent("fts.create", index); err != nil {
		return err
	}
	if len(fields) == 0 {
		return NewError(KindInvalidInput, "fts.create", "at least one field is required")
	}
	cols := []string{"doc_id UNINDEXED"}
	for _, field := range fields {
		if err := checkIdent("fts.create", field); err != nil {
			return err
		}
		cols = append(cols, field)
	}
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS fts_%s USING fts5(%s, tokenize = 'porter unicode61')",
		index, strings.Join(cols, ", "),
	)
	if _, err := f.store.Execute(ctx, stmt); err != nil {
		return NewError(KindBackend, "fts.create", err.Error()).WithCause(err)
	}
	return nil
}

// Index upserts one document. FTS5 has no primary keys, so upsert is
// delete-then-insert keyed on doc_id.
func (f *Fts) Index(ctx context.Context, index, docID string, fields map[string]string) error {
	if err := checkIdent("fts.index", index); err != nil {
		return err
	}
	if docID == "" {
		return NewError(KindInvalidInput, "fts.index", "doc id must not be empty")
	}
	if len(fields) == 0 {
		return NewError(KindInvalidInput, "fts.index", "at least one field is required")
	}

	if _, err := f.store.Execute(ctx,
		fmt.Sprintf("DELETE FROM fts_%s WHERE doc_id = ?", index), docID); err != nil {
		return NewError(KindBackend, "fts.index", err.Error()).WithCause(err)
	}

	cols := []string{"doc_id"}
	placeholders := []string{"?"}
	args := []any{docID}
	for field, value := range fields {
		if err := checkIdent("fts.index", field); err != nil {
			return err
		}
		cols = append(cols, field)
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	stmt := fmt.Sprintf("INSERT INTO fts_%s (%s) VALUES (%s)",
		index, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := f.store.Execute(ctx, stmt, args...); err != nil {
		return NewError(KindBackend, "fts.index", err.Error()).WithCause(err)
	}
	return nil
}

// Search runs an FTS5 match query, best results first. Rank is the
// negated bm25 score, so higher is better.
func (f *Fts) Search(ctx context.Context, index, query string, limit int) ([]FtsHit, error) {
	if err := checkIdent("fts.search", index); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	table := "fts_" + index
	rows, err := f.store.Query(ctx,
		fmt.Sprintf("SELECT *, -bm25(%s) AS rank FROM %s WHERE %s MATCH ? ORDER BY bm25(%s) LIMIT ?",
			table, table, table, table),
		query, limit,
	)
	if err != nil {
		return nil, NewError(KindBackend, "fts.search", err.Error()).WithCause(err)
	}

	hits := make([]FtsHit, 0, len(rows))
	for _, row := range rows {
		hit := FtsHit{Fields: make(map[string]string)}
		for col, value := range row {
			switch col {
			case "doc_id":
				hit.DocID = fmt.Sprint(value)
			case "rank":
				if v, ok := value.(float64); ok {
					hit.Rank = v
				}
			default:
				hit.Fields[col] = fmt.Sprint(value)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteDoc removes one document from an index.
func (f *Fts) DeleteDoc(ctx context.Context, index, docID string) error {
	if err := checkIdent("fts.delete", index); err != nil {
		return err
	}
	if _, err := f.store.Execute(ctx,
		fmt.Sprintf("DELETE FROM fts_%s WHERE doc_id = ?", index), docID); err != nil {
		return NewError(KindBackend, "fts.delete", err.Error()).WithCause(err)
	}
	return nil
}
