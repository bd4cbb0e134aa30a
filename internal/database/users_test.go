package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, 42, "Alice Rahman", "alice"))

	u, err := db.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.UserID)
	assert.Equal(t, "Alice Rahman", u.FullName)
	assert.Equal(t, "alice", u.Username)

	// Re-contact refreshes the display data without creating a second row.
	require.NoError(t, db.UpsertUser(ctx, 42, "Alice R.", "alice_r"))

	refreshed, err := db.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refreshed.ID, "refresh keeps the same row")
	assert.Equal(t, "Alice R.", refreshed.FullName)
	assert.Equal(t, "alice_r", refreshed.Username)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE user_id = ?", 42).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
