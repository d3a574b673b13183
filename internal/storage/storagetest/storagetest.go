// Package storagetest opens the Postgres database used by integration
// tests. Tests are skipped when LIBRARY_TEST_DATABASE_URL is unset.
package storagetest

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/lib/pq"
)

// Open connects to the test database, applies the schema and truncates
// every table. Skips the calling test when no test database is
// configured.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	url := os.Getenv("LIBRARY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LIBRARY_TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping test database: %v", err)
	}

	schema, err := os.ReadFile(schemaPath())
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := db.Exec("TRUNCATE TABLE notifications, comments, borrowings, books, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// schemaPath resolves schema.sql at the repository root relative to this
// file, so tests work from any package directory.
func schemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "schema.sql")
}
