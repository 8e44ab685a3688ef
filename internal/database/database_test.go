package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Bootstrap(context.Background()))
	return store
}

func TestFetchAllEmptyResult(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	rows, err := store.FetchAll(context.Background(), "SELECT * FROM av_genre")
	require.NoError(t, err)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestInsertOrReplaceAndFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)
	rows := []catalog.Row{
		{"linkid": "g1", "name": "Drama", "title": "genre"},
		{"linkid": "g2", "name": "Comedy", "title": "genre"},
	}
	require.NoError(t, store.InsertOrReplace(ctx, "av_genre", rows))

	// Replace keeps one row per primary key.
	require.NoError(t, store.InsertOrReplace(ctx, "av_genre", []catalog.Row{
		{"linkid": "g1", "name": "Romance", "title": "genre"},
	}))

	columns, got, err := store.FetchAllOrdered(ctx, "SELECT linkid, name FROM av_genre ORDER BY linkid")
	require.NoError(t, err)
	assert.Equal(t, []string{"linkid", "name"}, columns)
	assert.Equal(t, []catalog.Row{
		{"linkid": "g1", "name": "Romance"},
		{"linkid": "g2", "name": "Comedy"},
	}, got)
}

func TestInsertOrReplaceEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	require.NoError(t, store.InsertOrReplace(context.Background(), "no such table", nil))
}

func TestInsertOrReplaceRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)

	err := store.InsertOrReplace(ctx, "av_genre; DROP TABLE av_list", []catalog.Row{{"linkid": "x"}})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	err = store.InsertOrReplace(ctx, "av_genre", []catalog.Row{{"name) VALUES (1); --": "x"}})
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestInsertOrReplaceFailureDiscardsBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)
	err := store.InsertOrReplace(ctx, "av_extend", []catalog.Row{
		{"extend_name": "like", "key": "a", "val": "1"},
		{"extend_name": "like", "key": nil, "val": "2"},
	})
	require.Error(t, err)

	rows, err := store.FetchAll(ctx, "SELECT * FROM av_extend")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteAndQueryErrorsPropagate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)
	require.NoError(t, store.Execute(ctx,
		"INSERT INTO av_list (linkid, av_id, title, len) VALUES (?, ?, ?, ?)", "l1", "ABC-001", "Title", 120))

	rows, err := store.FetchAll(ctx, "SELECT linkid, len FROM av_list")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "l1", rows[0]["linkid"])
	assert.EqualValues(t, 120, rows[0]["len"])

	require.Error(t, store.Execute(ctx, "INSERT INTO missing VALUES (1)"))
	_, err = store.FetchAll(ctx, "SELECT * FROM missing")
	require.Error(t, err)
}

func TestOpenFileDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	store, err := Open(ctx, path, nil, WithMkdirAll(), WithBusyTimeout(500))
	require.NoError(t, err)
	require.NoError(t, store.Bootstrap(ctx))
	require.NoError(t, store.Bootstrap(ctx), "bootstrap must be idempotent")
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck
	rows, err := reopened.FetchAll(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'av_list'")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestValidIdentifier(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidIdentifier("av_list"))
	assert.True(t, ValidIdentifier("_x1"))
	assert.False(t, ValidIdentifier("1abc"))
	assert.False(t, ValidIdentifier("a-b"))
	assert.False(t, ValidIdentifier(""))
}
