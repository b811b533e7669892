package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks(t *testing.T, n, dimensions int) []*core.EmbeddedChunk {
	t.Helper()
	chunks := make([]*core.EmbeddedChunk, n)
	for i := range chunks {
		vector := make([]float32, dimensions)
		vector[0] = 1
		chunks[i] = &core.EmbeddedChunk{
			FormattedChunk: core.FormattedChunk{
				Chunk: core.Chunk{
					PageContent: fmt.Sprintf("chunk %d", i),
					ContentHash: core.HashContent(fmt.Sprintf("chunk %d", i)),
				},
				SourceKey: "TextSource_test",
				ChunkID:   core.ChunkID("TextSource_test", i),
			},
			Vector: vector,
		}
	}
	return chunks
}

func newSourceStore(t *testing.T, chunks []*core.EmbeddedChunk, dimensions int) *memory.VectorStore {
	t.Helper()
	store := memory.NewVectorStore()
	require.NoError(t, store.Init(context.Background(), dimensions))
	_, err := store.InsertChunks(context.Background(), chunks)
	require.NoError(t, err)
	return store
}

func TestChunkIterator_Batches(t *testing.T) {
	chunks := testChunks(t, 25, 4)
	iterator := NewChunkIterator(chunks, 10)

	var sizes []int
	err := iterator.ForEach(context.Background(), func(batch []*core.EmbeddedChunk) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 5}, sizes)
}

func TestChunkIterator_StopsOnError(t *testing.T) {
	chunks := testChunks(t, 20, 4)
	iterator := NewChunkIterator(chunks, 10)

	boom := errors.New("batch failed")
	calls := 0
	err := iterator.ForEach(context.Background(), func(batch []*core.EmbeddedChunk) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestChunkIterator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	iterator := NewChunkIterator(testChunks(t, 5, 4), 10)
	err := iterator.ForEach(ctx, func(batch []*core.EmbeddedChunk) error {
		t.Fatal("fn must not be called with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMigrator_MigratesAllChunks(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks(t, 7, 4)
	source := newSourceStore(t, chunks, 4)
	target := memory.NewVectorStore()

	var progress bytes.Buffer
	migrator := NewMigrator(source, target, mock.NewMockEmbedder(), &Config{
		BatchSize:      3,
		ReportInterval: 1,
		MaxRetries:     1,
		RetryDelay:     time.Millisecond,
	}, &progress)

	require.NoError(t, migrator.Run(ctx))

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	// Payloads survive; vectors are regenerated at the new width.
	migrated, err := target.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, migrated, 7)
	for _, chunk := range migrated {
		assert.Len(t, chunk.Vector, 384)
		assert.NotEmpty(t, chunk.PageContent)
		assert.Equal(t, "TextSource_test", chunk.SourceKey)
	}

	assert.Contains(t, progress.String(), "Migration complete")
}

func TestMigrator_EmptySource(t *testing.T) {
	source := memory.NewVectorStore()
	require.NoError(t, source.Init(context.Background(), 4))
	target := memory.NewVectorStore()

	var progress bytes.Buffer
	migrator := NewMigrator(source, target, mock.NewMockEmbedder(), nil, &progress)
	require.NoError(t, migrator.Run(context.Background()))

	assert.Contains(t, progress.String(), "No chunks found")
}

func TestBatchProcessor_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	target := memory.NewVectorStore()
	require.NoError(t, target.Init(ctx, 384))

	embedder := mock.NewMockEmbedder()
	failures := 2
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("temporarily unavailable")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = make([]float32, 384)
		}
		return vectors, nil
	}

	processor := NewBatchProcessor(target, embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(ctx, testChunks(t, 2, 384)))

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBatchProcessor_ExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	target := memory.NewVectorStore()
	require.NoError(t, target.Init(ctx, 384))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("permanently unavailable")
	}

	processor := NewBatchProcessor(target, embedder, 2, time.Millisecond)
	err := processor.Process(ctx, testChunks(t, 1, 384))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
