package memory

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SourceRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	record := &core.SourceRecord{
		UniqueKey:       "TextSource_a",
		SourceType:      "TextSource",
		ChunksProcessed: 2,
	}
	require.NoError(t, store.AddSource(ctx, record))

	got, err := store.GetSource(ctx, "TextSource_a")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	// Mutating the returned record must not affect the stored copy
	got.ChunksProcessed = 99
	again, err := store.GetSource(ctx, "TextSource_a")
	require.NoError(t, err)
	assert.Equal(t, 2, again.ChunksProcessed)
}

func TestStore_ScopedValues(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SetScopedValue(ctx, "src", "k", map[string]string{"v": "1"}))

	value, err := store.GetScopedValue(ctx, "src", "k")
	require.NoError(t, err)
	assert.Equal(t, "1", value["v"])

	require.NoError(t, store.DeleteScopedValues(ctx, "src"))
	value, err = store.GetScopedValue(ctx, "src", "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStore_Conversations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.GetConversation(ctx, "default")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.AddConversation(ctx, "default"))
	msg := &core.Message{
		ID:        "m1",
		Timestamp: time.Now().UTC(),
		Actor:     core.ActorHuman,
		Content:   "hello",
	}
	require.NoError(t, store.AddEntry(ctx, "default", msg))

	conversation, err := store.GetConversation(ctx, "default")
	require.NoError(t, err)
	require.Len(t, conversation.Entries, 1)
	assert.Equal(t, "hello", conversation.Entries[0].Content)
}

func TestVectorStore_SearchAndDelete(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx, 2))

	chunk := func(src string, seq int, content string, vec []float32) *core.EmbeddedChunk {
		return &core.EmbeddedChunk{
			FormattedChunk: core.FormattedChunk{
				Chunk:     core.Chunk{PageContent: content},
				SourceKey: src,
				ChunkID:   core.ChunkID(src, seq),
			},
			Vector: vec,
		}
	}

	inserted, err := store.InsertChunks(ctx, []*core.EmbeddedChunk{
		chunk("a", 0, "aligned", []float32{1, 0}),
		chunk("a", 1, "orthogonal", []float32{0, 1}),
		chunk("b", 0, "other", []float32{0.5, 0.5}),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aligned", results[0].PageContent)

	deleted, err := store.DeleteKeys(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestVectorStore_DimensionChecks(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	_, err := store.SimilaritySearch(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, storage.ErrNotInitialized)

	require.NoError(t, store.Init(ctx, 2))
	assert.ErrorIs(t, store.Init(ctx, 3), storage.ErrDimensionMismatch)
}
