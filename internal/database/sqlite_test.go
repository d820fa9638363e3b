package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "user.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO user VALUES (?, ?, ?)`, "u1", "naver", nil)
	require.NoError(t, err)

	// schema application is idempotent
	require.NoError(t, EnsureUserSchema(ctx, db))

	var provider string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT provider FROM user WHERE id = ?`, "u1").Scan(&provider))
	require.Equal(t, "naver", provider)

	_, err = db.ExecContext(ctx, `INSERT INTO user VALUES (?, ?, ?)`, "u1", "google", nil)
	require.Error(t, err, "primary key must reject a second row for the same id")
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	require.Error(t, err)
}
