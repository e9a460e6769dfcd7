package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteStore is a RelationalStore on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// applies the runtime's pragmas. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, NewError(KindInvalidInput, "sqlite.open", "path must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, NewError(KindIO, "sqlite.open", err.Error()).WithCause(err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, NewError(KindBackend, "sqlite.open", fmt.Sprintf("%s: %v", pragma, err)).WithCause(err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// WrapDB adapts an existing handle, for callers that manage their own
// connection lifecycle.
func WrapDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB exposes the underlying handle for composed stores (FTS).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewError(KindBackend, "sqlite.ping", err.Error()).WithCause(err)
	}
	return nil
}

func (s *SQLiteStore) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, NewError(KindBackend, "sqlite.execute", err.Error()).WithCause(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewError(KindBackend, "sqlite.query", err.Error()).WithCause(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, NewError(KindBackend, "sqlite.query", err.Error()).WithCause(err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, NewError(KindBackend, "sqlite.query", err.Error()).WithCause(err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			value := values[i]
			// Normalize blobs to strings for text columns stored as []byte.
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[col] = value
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewError(KindBackend, "sqlite.query", err.Error()).WithCause(err)
	}
	return out, nil
}

// Migrate applies migrations in ascending version order, recording each
// in _migrations. Already-applied versions are skipped, so Migrate is
// idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context, migrations []Migration) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return NewError(KindMigration, "sqlite.migrate", err.Error()).WithCause(err)
	}

	applied := map[int]bool{}
	rows, err := s.Query(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return NewError(KindMigration, "sqlite.migrate", err.Error()).WithCause(err)
	}
	for _, row := range rows {
		if v, ok := row["version"].(int64); ok {
			applied[int(v)] = true
		}
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Version == ordered[i-1].Version {
			return NewError(KindMigration, "sqlite.migrate",
				fmt.Sprintf("duplicate migration version %d", ordered[i].Version))
		}
	}

	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return NewError(KindMigration, "sqlite.migrate", err.Error()).WithCause(err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return NewError(KindMigration, "sqlite.migrate",
				fmt.Sprintf("migration %d: %v", m.Version, err)).WithCause(err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO _migrations (version) VALUES (?)", m.Version); err != nil {
			_ = tx.Rollback()
			return NewError(KindMigration, "sqlite.migrate",
				fmt.Sprintf("record migration %d: %v", m.Version, err)).WithCause(err)
		}
		if err := tx.Commit(); err != nil {
			return NewError(KindMigration, "sqlite.migrate",
				fmt.Sprintf("commit migration %d: %v", m.Version, err)).WithCause(err)
		}
	}
	return nil
}
