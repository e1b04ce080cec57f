package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	store, err := New(storage.Config{
		DBPath: dir + "/test.db",
		FSPath: dir + "/files",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// fixedClock makes timestamps deterministic and strictly increasing.
func fixedClock(store *SQLiteStorage, start time.Time) func(time.Duration) {
	now := start
	store.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestPinnedItemsListFirst(t *testing.T) {
	store := newTestStore(t)
	advance := fixedClock(store, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	old, _, err := store.Store(ctx, types.Item{Content: "old", Type: types.TypeText})
	require.NoError(t, err)
	advance(time.Minute)
	newer, _, err := store.Store(ctx, types.Item{Content: "newer", Type: types.TypeText})
	require.NoError(t, err)

	items, err := store.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)

	pinned, err := store.SetPinned(ctx, old.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	items, err = store.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, old.ID, items[0].ID)

	yes := true
	onlyPinned, err := store.List(ctx, storage.ListFilter{Pinned: &yes})
	require.NoError(t, err)
	require.Len(t, onlyPinned, 1)
	assert.Equal(t, old.ID, onlyPinned[0].ID)
}

func TestTrashRestoreAndEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _, err := store.Store(ctx, types.Item{Content: "a", Type: types.TypeText})
	require.NoError(t, err)
	b, _, err := store.Store(ctx, types.Item{Content: "b", Type: types.TypeText})
	require.NoError(t, err)

	require.NoError(t, store.Trash(ctx, a.ID))
	require.NoError(t, store.Trash(ctx, a.ID), "trashing twice is a no-op")

	live, err := store.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, b.ID, live[0].ID)

	trash, err := store.List(ctx, storage.ListFilter{Trashed: true})
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.True(t, trash[0].Trashed)

	require.NoError(t, store.Restore(ctx, a.ID))
	n, err := store.Count(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, store.Trash(ctx, a.ID))
	require.NoError(t, store.Trash(ctx, b.ID))
	removed, err := store.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.Get(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Trash(ctx, "missing"), storage.ErrNotFound)
}

func TestUpdateAndTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, _, err := store.Store(ctx, types.Item{Content: "draft", Type: types.TypeText, Tags: []string{"work", " work ", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, item.Tags)

	content := "final"
	name := "Release notes"
	tags := []string{"work", "docs"}
	updated, err := store.Update(ctx, item.ID, storage.ItemPatch{Content: &content, DisplayName: &name, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	assert.Equal(t, "Release notes", updated.DisplayName)
	assert.True(t, updated.UpdatedAt.After(item.UpdatedAt) || updated.UpdatedAt.Equal(item.UpdatedAt))

	docs, err := store.List(ctx, storage.ListFilter{Tags: []string{"docs"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	none, err := store.List(ctx, storage.ListFilter{Tags: []string{"docs", "personal"}})
	require.NoError(t, err)
	assert.Empty(t, none)

	bad := "video"
	_, err = store.Update(ctx, item.ID, storage.ItemPatch{Type: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidType)

	_, err = store.Update(ctx, "missing", storage.ItemPatch{Content: &content})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
