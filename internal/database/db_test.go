package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "nested", "cache.db"),
		Profile: ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndConnects(t *testing.T) {
	db := newTestDB(t)

	assert.Equal(t, "cache", db.Name())
	assert.Equal(t, ProfileCache, db.Profile())
	assert.True(t, filepath.IsAbs(db.Path()))
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestMigrate_CreatesCacheSchema(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Migrate())
	// Re-applying is a no-op
	require.NoError(t, db.Migrate())

	var name string
	err := db.Conn().QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'price_history'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "price_history", name)
}

func TestMigrate_UnknownNameIsSkipped(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestBuildConnectionString(t *testing.T) {
	cache := buildConnectionString("/tmp/cache.db", ProfileCache)
	assert.Contains(t, cache, "/tmp/cache.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")

	standard := buildConnectionString("file:mem?mode=memory", ProfileStandard)
	assert.Contains(t, standard, "file:mem?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	conn := db.Conn()

	err := WithTransaction(conn, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO price_history (cache_key, data, fetched_at, expires_at) VALUES ('a', x'00', 1, 2)")
		return err
	})
	require.NoError(t, err)

	err = WithTransaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO price_history (cache_key, data, fetched_at, expires_at) VALUES ('b', x'00', 1, 2)"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM price_history").Scan(&count))
	assert.Equal(t, 1, count, "failed transaction must roll back")

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}
