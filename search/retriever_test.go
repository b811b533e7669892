package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVectorStore returns canned similarity results.
type stubVectorStore struct {
	storage.VectorStore
	results []*core.RetrievedChunk
	lastK   int
	err     error
}

func (s *stubVectorStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]*core.RetrievedChunk, error) {
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	results := s.results
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func chunk(content string, score float32) *core.RetrievedChunk {
	return &core.RetrievedChunk{PageContent: content, Score: score}
}

func newTestRetriever(t *testing.T, results ...*core.RetrievedChunk) (*Retriever, *stubVectorStore) {
	t.Helper()
	vectors := &stubVectorStore{results: results}
	retriever, err := NewRetriever(vectors, mock.NewMockEmbedder())
	require.NoError(t, err)
	return retriever, vectors
}

func TestNewRetriever_RequiresDependencies(t *testing.T) {
	_, err := NewRetriever(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = NewRetriever(&stubVectorStore{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestRetrieve_FiltersSortsAndTruncates(t *testing.T) {
	retriever, _ := newTestRetriever(t,
		chunk("a", 0.9),
		chunk("b", 0.95),
		chunk("c", 0.3),
		chunk("d", 0.95),
	)

	results, err := retriever.Retrieve(context.Background(), "query", 2, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 0.3 filtered out, remaining sorted descending, truncated to 2.
	// The stable sort keeps "b" ahead of the equal-scored "d".
	assert.Equal(t, "b", results[0].PageContent)
	assert.Equal(t, "d", results[1].PageContent)
}

func TestRetrieve_CutoffIsStrict(t *testing.T) {
	retriever, _ := newTestRetriever(t,
		chunk("at cutoff", 0.5),
		chunk("above cutoff", 0.6),
	)

	results, err := retriever.Retrieve(context.Background(), "query", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "above cutoff", results[0].PageContent)
}

func TestRetrieve_ZeroCutoffDropsZeroScores(t *testing.T) {
	retriever, _ := newTestRetriever(t,
		chunk("zero", 0),
		chunk("positive", 0.01),
	)

	results, err := retriever.Retrieve(context.Background(), "query", 5, DefaultRelevanceCutoff)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "positive", results[0].PageContent)
}

func TestRetrieve_Overfetches(t *testing.T) {
	retriever, vectors := newTestRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "query", 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 17, vectors.lastK)
}

func TestRetrieve_DefaultsResultCount(t *testing.T) {
	retriever, vectors := newTestRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultResultCount+10, vectors.lastK)
}

func TestRetrieve_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("store offline")
	vectors := &stubVectorStore{err: boom}
	retriever, err := NewRetriever(vectors, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = retriever.Retrieve(context.Background(), "query", 5, 0)
	assert.ErrorIs(t, err, boom)
}

func TestRetrieve_MonitorSeesStages(t *testing.T) {
	retriever, _ := newTestRetriever(t,
		chunk("kept", 0.9),
		chunk("dropped", 0.1),
	)

	recorder := &recordingMonitor{}
	results, err := retriever.RetrieveWithMonitor(context.Background(), "some # query", 5, 0.5, recorder)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "some query", recorder.query)
	assert.Len(t, recorder.candidates, 2)
	assert.Len(t, recorder.surviving, 1)
	assert.Len(t, recorder.finished, 1)
}

func TestSearch_DeduplicatesFirstWins(t *testing.T) {
	retriever, _ := newTestRetriever(t,
		chunk("repeated", 0.9),
		chunk("unique", 0.8),
		chunk("repeated", 0.7),
	)

	results, err := retriever.Search(context.Background(), "query", 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The higher-ranked duplicate survives
	assert.Equal(t, "repeated", results[0].PageContent)
	assert.InDelta(t, 0.9, float64(results[0].Score), 1e-6)
	assert.Equal(t, "unique", results[1].PageContent)
}

// recordingMonitor captures the retrieval stages for assertions.
type recordingMonitor struct {
	query      string
	candidates []*core.RetrievedChunk
	surviving  []*core.RetrievedChunk
	finished   []*core.RetrievedChunk
}

var _ Monitor = (*recordingMonitor)(nil)

func (r *recordingMonitor) Start(query string) { r.query = query }

func (r *recordingMonitor) AfterVectorSearch(candidates []*core.RetrievedChunk) {
	r.candidates = candidates
}

func (r *recordingMonitor) AfterFiltering(surviving []*core.RetrievedChunk) {
	r.surviving = surviving
}

func (r *recordingMonitor) Finish(results []*core.RetrievedChunk) { r.finished = results }
