package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

// BatchProcessor re-embeds batches of chunks and writes them to the
// target store. Embedding calls are retried with exponential backoff;
// target writes are not, since a failed write means the target store
// itself is unhealthy.
type BatchProcessor struct {
	target         ChunkWriter
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(target ChunkWriter, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BatchProcessor{
		target:         target,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process regenerates the embeddings for a batch of chunks and inserts
// them into the target store. The chunks' identities and payloads are
// preserved; only the vectors change.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.PageContent
	}

	embeddings, err := bp.embedWithRetry(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	migrated := make([]*core.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		clone := *chunk
		clone.Vector = embeddings[i]
		migrated[i] = &clone
	}

	if _, err := bp.target.InsertChunks(ctx, migrated); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return nil
}

// embedWithRetry calls the embedder, retrying failures with doubling
// delays. Cancellation is honored both between attempts and while
// waiting out a backoff delay.
func (bp *BatchProcessor) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := bp.retryBaseDelay

	for attempt := 1; attempt <= bp.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		embeddings, err := bp.embedder.EmbedTexts(ctx, texts)
		if err == nil {
			if attempt > 1 {
				slog.Debug("embedding batch succeeded after retry", "attempt", attempt, "chunks", len(texts))
			}
			return embeddings, nil
		}
		lastErr = err
		slog.Debug("embedding batch failed", "attempt", attempt, "maxAttempts", bp.maxRetries, "chunks", len(texts), "err", err)

		if attempt == bp.maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return nil, lastErr
}
