package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTagFilterMatchesWholeTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stored := map[string]string{}
	for _, tags := range [][]string{{"R&D"}, {"axb"}, {"a<b>"}, {`say "hi"`}, {"Work"}, {`back\slash`}} {
		item, _, err := store.Store(ctx, types.Item{Content: "item " + tags[0], Type: types.TypeText, Tags: tags})
		require.NoError(t, err)
		stored[tags[0]] = item.ID
	}

	tests := []struct {
		name string
		tag  string
		want []string
	}{
		{"ampersand", "R&D", []string{"R&D"}},
		{"angle brackets", "a<b>", []string{"a<b>"}},
		{"quotes", `say "hi"`, []string{`say "hi"`}},
		{"backslash", `back\slash`, []string{`back\slash`}},
		{"case insensitive", "work", []string{"Work"}},
		{"surrounding space", "  Work ", []string{"Work"}},
		{"underscore is literal", "a_b", nil},
		{"percent is literal", "%", nil},
		{"prefix is not a match", "Wor", nil},
		{"json fragment is not a match", `"axb"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := store.List(ctx, storage.ListFilter{Tags: []string{tt.tag}})
			require.NoError(t, err)
			got := make([]string, 0, len(items))
			for _, item := range items {
				got = append(got, item.ID)
			}
			want := make([]string, 0, len(tt.want))
			for _, tag := range tt.want {
				want = append(want, stored[tag])
			}
			assert.ElementsMatch(t, want, got)

			n, err := store.Count(ctx, storage.ListFilter{Tags: []string{tt.tag}})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), n)

			results, err := store.Search(storage.SearchOptions{Tags: []string{tt.tag}})
			require.NoError(t, err)
			assert.Len(t, results, len(tt.want))
		})
	}
}

func TestItemsWithoutTagsNeverMatchATagFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Store(ctx, types.Item{Content: "untagged", Type: types.TypeText})
	require.NoError(t, err)

	n, err := store.Count(ctx, storage.ListFilter{Tags: []string{"anything"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"100% done", "1000 rows", "snake_case", "snakeXcase", `C:\temp`} {
		_, _, err := store.Store(ctx, types.Item{Content: content, Type: types.TypeText})
		require.NoError(t, err)
	}
	_, _, err := store.Store(ctx, types.Item{Content: "tagged", Type: types.TypeText, Tags: []string{"R&D"}})
	require.NoError(t, err)

	tests := []struct {
		query string
		want  int
	}{
		{"100%", 1},
		{"%", 1},
		{"snake_case", 1},
		{"_", 1},
		{`c:\temp`, 1},
		{"r&d", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := store.Search(storage.SearchOptions{Query: tt.query})
			require.NoError(t, err)
			assert.Len(t, results, tt.want)
		})
	}
}

func TestMissingRecordsAreNotLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dir := t.TempDir()
	store, err := New(storage.Config{
		DBPath: dir + "/test.db",
		FSPath: dir + "/files",
		Logger: zap.New(core),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	_, created, err := store.Store(ctx, types.Item{Content: "fresh", Type: types.TypeText})
	require.NoError(t, err)
	assert.True(t, created)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())
}
