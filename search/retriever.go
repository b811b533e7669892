package search

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultResultCount is the number of chunks returned when the
	// caller does not configure one.
	DefaultResultCount = 7

	// DefaultRelevanceCutoff is the default similarity floor. Chunks
	// must score strictly above it to be returned.
	DefaultRelevanceCutoff float32 = 0

	// overfetchMargin is how many extra candidates are requested from
	// the vector store so filtering still leaves enough results.
	overfetchMargin = 10
)

// Retriever answers similarity queries over the embedded chunks.
type Retriever struct {
	vectors  storage.VectorStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(vectors storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		vectors:  vectors,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to resultCount chunks relevant to the query,
// ranked by similarity descending. Candidates are overfetched, then
// filtered to scores strictly above the cutoff.
func (r *Retriever) Retrieve(ctx context.Context, query string, resultCount int, cutoff float32) ([]*core.RetrievedChunk, error) {
	return r.RetrieveWithMonitor(ctx, query, resultCount, cutoff, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks for observing
// the retrieval process.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, resultCount int, cutoff float32, monitor Monitor) ([]*core.RetrievedChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if resultCount < 1 {
		resultCount = DefaultResultCount
	}

	cleaned := core.CleanQuery(query)
	monitor.Start(cleaned)

	embedding, err := r.embedder.EmbedText(ctx, cleaned)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	candidates, err := r.vectors.SimilaritySearch(ctx, embedding, resultCount+overfetchMargin)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(candidates)

	results := make([]*core.RetrievedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Score > cutoff {
			results = append(results, candidate)
		}
	}
	monitor.AfterFiltering(results)

	// Sort by score descending; the stable sort keeps insertion order
	// between equal scores
	slices.SortStableFunc(results, func(a, b *core.RetrievedChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > resultCount {
		results = results[:resultCount]
	}
	monitor.Finish(results)

	return results, nil
}

// Search retrieves relevant chunks and collapses duplicates by page
// content, keeping the first occurrence of each.
func (r *Retriever) Search(ctx context.Context, query string, resultCount int, cutoff float32) ([]*core.RetrievedChunk, error) {
	chunks, err := r.Retrieve(ctx, query, resultCount, cutoff)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(chunks))
	unique := make([]*core.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, dup := seen[chunk.PageContent]; dup {
			continue
		}
		seen[chunk.PageContent] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique, nil
}
