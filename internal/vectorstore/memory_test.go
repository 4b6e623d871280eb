package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/thoughtweave/internal/vectorstore"
)

func TestMemoryIndexSearchRanksBySimilarity(t *testing.T) {
	idx := vectorstore.NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vectorstore.Document{
		{ID: "a", Embedding: []float32{1, 0}, Payload: map[string]any{"user": "alice"}},
		{ID: "b", Embedding: []float32{0, 1}, Payload: map[string]any{"user": "alice"}},
		{ID: "c", Embedding: []float32{0.9, 0.1}, Payload: map[string]any{"user": "alice"}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 2, vectorstore.Filter{User: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "a", hits[0].ID)
	require.Equal(t, "c", hits[1].ID)
}

func TestMemoryIndexSearchFiltersByUser(t *testing.T) {
	idx := vectorstore.NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vectorstore.Document{
		{ID: "a", Embedding: []float32{1, 0}, Payload: map[string]any{"user": "alice"}},
		{ID: "b", Embedding: []float32{1, 0}, Payload: map[string]any{"user": "bob"}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 10, vectorstore.Filter{User: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "a", hits[0].ID)
}

func TestMemoryIndexDeleteRemovesDocument(t *testing.T) {
	idx := vectorstore.NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vectorstore.Document{
		{ID: "a", Embedding: []float32{1, 0}, Payload: map[string]any{"user": "alice"}},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 10, vectorstore.Filter{User: "alice"})
	require.NoError(t, err)
	require.Empty(t, hits)
}
