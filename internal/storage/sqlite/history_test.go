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

func TestChangesAreRecorded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, _, err := store.Store(ctx, types.Item{Content: "hello", Type: types.TypeText})
	require.NoError(t, err)
	_, err = store.SetPinned(ctx, item.ID, true)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, item.ID))

	changes, err := store.ChangesSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	kinds := []string{changes[0].Kind, changes[1].Kind, changes[2].Kind}
	assert.Equal(t, []string{storage.ChangeInsert, storage.ChangeUpdate, storage.ChangeDelete}, kinds)
	for _, c := range changes {
		assert.Equal(t, item.ID, c.ItemID)
		assert.Equal(t, storage.AuthorLocal, c.Author)
	}
	assert.Less(t, changes[0].Seq, changes[1].Seq)

	after, err := store.ChangesSince(ctx, changes[1].Seq, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)

	require.NoError(t, store.PurgeHistory(ctx, changes[1].Seq))
	rest, err := store.ChangesSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, storage.ChangeDelete, rest[0].Kind)
}

func TestApplyRemoteLastWriterWins(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	advance := fixedClock(store, base)
	ctx := context.Background()

	local, _, err := store.Store(ctx, types.Item{Content: "local", Type: types.TypeText})
	require.NoError(t, err)

	// Older remote edit loses
	stale := *local
	stale.Content = "stale"
	stale.UpdatedAt = base.Add(-time.Minute)
	kind, err := store.ApplyRemote(ctx, stale)
	require.NoError(t, err)
	assert.Empty(t, kind)

	// Same timestamp keeps the local copy
	tie := *local
	tie.Content = "tie"
	kind, err = store.ApplyRemote(ctx, tie)
	require.NoError(t, err)
	assert.Empty(t, kind)

	// Newer remote edit wins
	advance(time.Hour)
	fresh := *local
	fresh.Content = "fresh"
	fresh.Pinned = true
	fresh.UpdatedAt = base.Add(time.Minute)
	kind, err = store.ApplyRemote(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, storage.ChangeUpdate, kind)

	got, err := store.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Content)
	assert.True(t, got.Pinned)
	assert.True(t, got.UpdatedAt.Equal(fresh.UpdatedAt))

	// Unknown remote items are inserted as-is
	remote := types.Item{
		ID:        "0b7d7c2e-5d0e-4a8f-9a53-1f1c3c9b2d11",
		Content:   "from another device",
		Type:      types.TypeText,
		Timestamp: base,
		UpdatedAt: base,
	}
	kind, err = store.ApplyRemote(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, storage.ChangeInsert, kind)

	changes, err := store.ChangesSince(ctx, 0, 0)
	require.NoError(t, err)
	last := changes[len(changes)-1]
	assert.Equal(t, storage.AuthorMirror, last.Author)
	assert.Equal(t, storage.ChangeInsert, last.Kind)
}

func TestDeleteRemote(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(store, base)
	ctx := context.Background()

	item, _, err := store.Store(ctx, types.Item{Content: "x", Type: types.TypeText})
	require.NoError(t, err)

	// Local edit after the remote delete survives
	deleted, err := store.DeleteRemote(ctx, item.ID, base.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeleteRemote(ctx, item.ID, base.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteRemote(ctx, item.ID, base.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, deleted, "already gone")
}
