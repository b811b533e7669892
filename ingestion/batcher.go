package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/source"
	"github.com/poiesic/recall/storage"
)

// DefaultBatchSize is the number of chunks buffered before an
// embed-and-insert round trip.
const DefaultBatchSize = 500

// Batcher drains a source's chunk stream into the vector store. Chunks
// are cleaned and hashed, buffered up to the batch size, embedded in
// one call per batch, and inserted.
type Batcher struct {
	embedder  ai.Embedder
	vectors   storage.VectorStore
	batchSize int
	logger    *slog.Logger
}

// newBatcher creates a batcher. batchSize below 1 falls back to the
// default.
func newBatcher(embedder ai.Embedder, vectors storage.VectorStore, batchSize int, logger *slog.Logger) *Batcher {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		embedder:  embedder,
		vectors:   vectors,
		batchSize: batchSize,
		logger:    logger.With("processor", "batcher"),
	}
}

// ProcessStream consumes the stream and returns how many chunks were
// embedded and inserted. Empty chunks (after cleaning) are dropped and
// do not advance the sequence. A stream error aborts processing;
// batches flushed before the error stay inserted.
func (b *Batcher) ProcessStream(ctx context.Context, sourceKey string, stream source.Stream) (int, error) {
	var (
		batch    []*core.FormattedChunk
		inserted int
		sequence int
	)

	for raw, err := range stream {
		if err != nil {
			return inserted, err
		}
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		chunk, ok := core.NewChunk(raw)
		if !ok {
			continue
		}
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]string, 1)
		}
		chunk.Metadata["sourceKey"] = sourceKey

		batch = append(batch, &core.FormattedChunk{
			Chunk:     *chunk,
			SourceKey: sourceKey,
			ChunkID:   core.ChunkID(sourceKey, sequence),
		})
		sequence++

		if len(batch) >= b.batchSize {
			count, err := b.flush(ctx, batch)
			inserted += count
			if err != nil {
				return inserted, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		count, err := b.flush(ctx, batch)
		inserted += count
		if err != nil {
			return inserted, err
		}
	}

	b.logger.Debug("stream processed", "source", sourceKey, "chunks", inserted)
	return inserted, nil
}

// flush embeds one batch and inserts it into the vector store.
func (b *Batcher) flush(ctx context.Context, batch []*core.FormattedChunk) (int, error) {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.PageContent
	}

	embeddings, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		b.logger.Error("error generating embeddings", "err", err)
		return 0, err
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(embeddings))
	}

	embedded := make([]*core.EmbeddedChunk, len(batch))
	for i, chunk := range batch {
		embedded[i] = &core.EmbeddedChunk{
			FormattedChunk: *chunk,
			Vector:         embeddings[i],
		}
	}

	return b.vectors.InsertChunks(ctx, embedded)
}
