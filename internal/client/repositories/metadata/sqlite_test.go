package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:metadatarepo?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
DELETE FROM metadata;
`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SetGetDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, "last_pull_timestamp")
	require.NoError(t, err)
	assert.Nil(t, got, "absent key reads as nil")

	require.NoError(t, repo.Set(ctx, "last_pull_timestamp", []byte("1725180000000")))
	got, err = repo.Get(ctx, "last_pull_timestamp")
	require.NoError(t, err)
	assert.Equal(t, []byte("1725180000000"), got)

	// Set replaces the previous value.
	require.NoError(t, repo.Set(ctx, "last_pull_timestamp", []byte("1725180000999")))
	got, err = repo.Get(ctx, "last_pull_timestamp")
	require.NoError(t, err)
	assert.Equal(t, []byte("1725180000999"), got)

	require.NoError(t, repo.Delete(ctx, "last_pull_timestamp"))
	got, err = repo.Get(ctx, "last_pull_timestamp")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Delete(ctx, "never-existed"))
}

func TestSQLiteRepository_Int64Helpers(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	v, err := repo.GetInt64(ctx, "last_pull_timestamp", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "default applies when the key is absent")

	require.NoError(t, repo.SetInt64(ctx, "last_pull_timestamp", 42))
	v, err = repo.GetInt64(ctx, "last_pull_timestamp", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	require.NoError(t, repo.Set(ctx, "garbage", []byte("not-a-number")))
	_, err = repo.GetInt64(ctx, "garbage", 0)
	require.Error(t, err)
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "last_sync_items", []byte("10")))
	require.NoError(t, repo.Set(ctx, "last_sync_customers", []byte("20")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"last_sync_items":     []byte("10"),
		"last_sync_customers": []byte("20"),
	}, all)
}
