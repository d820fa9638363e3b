package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS user (
	id       TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	profile  TEXT
);
`

// OpenSQLite opens (creating if needed) the SQLite file at path and applies the
// user table schema. Caller should call db.Close().
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// single writer; concurrent requests queue on the pool instead of SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if err := EnsureUserSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureUserSchema creates the user table when missing. Idempotent.
func EnsureUserSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, userSchema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}
