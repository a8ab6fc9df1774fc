package storage_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docvec/internal/storage"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(storage.DriverName, ":memory:")
	require.NoError(t, err)
	// one connection so every statement sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	require.NoError(t, storage.ApplyMigrations(ctx, db))

	var version string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, storage.CurrentSchemaVersion, version)

	for _, table := range []string{"schema_version", "store_meta", "chunks", "chunks_fts", "index_runs"} {
		assert.True(t, tableExists(t, db, table), "table %s does not exist", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	require.NoError(t, storage.ApplyMigrations(ctx, db))
	require.NoError(t, storage.ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, 1, count, "expected one schema version record")
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	err := storage.RollbackMigration(ctx, db)
	assert.Error(t, err, "nothing to roll back on a fresh database")

	require.NoError(t, storage.ApplyMigrations(ctx, db))
	require.NoError(t, storage.RollbackMigration(ctx, db))

	assert.False(t, tableExists(t, db, "chunks"))
	assert.False(t, tableExists(t, db, "schema_version"))

	// A rolled back database migrates again from scratch
	require.NoError(t, storage.ApplyMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "chunks"))
}
