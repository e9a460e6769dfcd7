package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteExecuteAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.Execute(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	affected, err := s.Execute(ctx, "INSERT INTO notes (body) VALUES (?), (?)", "first", "second")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, want 2", affected)
	}

	rows, err := s.Query(ctx, "SELECT id, body FROM notes ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0]["body"] != "first" || rows[1]["body"] != "second" {
		t.Errorf("rows = %v", rows)
	}
}

func TestSQLitePragmas(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rows, err := s.Query(ctx, "PRAGMA journal_mode")
	if err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if len(rows) != 1 || rows[0]["journal_mode"] != "wal" {
		t.Errorf("journal_mode = %v", rows)
	}

	rows, err = s.Query(ctx, "PRAGMA foreign_keys")
	if err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if len(rows) != 1 || rows[0]["foreign_keys"] != int64(1) {
		t.Errorf("foreign_keys = %v", rows)
	}
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	migrations := []Migration{
		{Version: 2, SQL: "ALTER TABLE items ADD COLUMN label TEXT"},
		{Version: 1, SQL: "CREATE TABLE items (id INTEGER PRIMARY KEY)"},
	}
	if err := s.Migrate(ctx, migrations); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	// Rerunning must not re-apply.
	if err := s.Migrate(ctx, migrations); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	rows, err := s.Query(ctx, "SELECT version FROM _migrations ORDER BY version")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("applied %d migrations, want 2", len(rows))
	}
	if rows[0]["version"] != int64(1) || rows[1]["version"] != int64(2) {
		t.Errorf("versions = %v", rows)
	}

	// The out-of-order slice must have applied ascending: the ALTER only
	// works if CREATE ran first.
	if _, err := s.Execute(ctx, "INSERT INTO items (label) VALUES ('x')"); err != nil {
		t.Fatalf("schema incomplete: %v", err)
	}
}

func TestSQLiteMigrateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.Migrate(ctx, []Migration{
		{Version: 1, SQL: "CREATE TABLE a (id INTEGER)"},
		{Version: 1, SQL: "CREATE TABLE b (id INTEGER)"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindMigration {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestSQLiteMigrateRollsBackFailures(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.Migrate(ctx, []Migration{
		{Version: 1, SQL: "CREATE TABLE ok (id INTEGER)"},
		{Version: 2, SQL: "THIS IS NOT SQL"},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	// Version 1 applied, version 2 must not be recorded.
	rows, err := s.Query(ctx, "SELECT version FROM _migrations")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0]["version"] != int64(1) {
		t.Errorf("recorded = %v", rows)
	}
}

func TestQueryColumnMapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := WrapDB(db)

	mock.ExpectQuery("SELECT name, size FROM files").WillReturnRows(
		sqlmock.NewRows([]string{"name", "size"}).
			AddRow([]byte("a.txt"), int64(42)),
	)

	rows, err := s.Query(context.Background(), "SELECT name, size FROM files")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	// Byte slices normalize to strings.
	if rows[0]["name"] != "a.txt" {
		t.Errorf("name = %v (%T)", rows[0]["name"], rows[0]["name"])
	}
	if rows[0]["size"] != int64(42) {
		t.Errorf("size = %v", rows[0]["size"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestExecuteWrapsBackendErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := WrapDB(db)

	boom := errors.New("disk full")
	mock.ExpectExec("INSERT INTO files").WillReturnError(boom)

	_, err = s.Execute(context.Background(), "INSERT INTO files VALUES (1)")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindBackend {
		t.Errorf("kind = %s", KindOf(err))
	}
	if !errors.Is(err, boom) {
		t.Error("cause not preserved")
	}
}
