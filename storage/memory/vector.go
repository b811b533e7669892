package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// VectorStore implements storage.VectorStore in process memory with
// brute-force dot-product scoring.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string]*core.EmbeddedChunk
	bySource   map[string]map[string]struct{}
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		chunks:   make(map[string]*core.EmbeddedChunk),
		bySource: make(map[string]map[string]struct{}),
	}
}

func (s *VectorStore) Init(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return storage.ErrDimensionMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions != 0 && s.dimensions != dimensions {
		return storage.ErrDimensionMismatch
	}
	s.dimensions = dimensions
	return nil
}

func (s *VectorStore) InsertChunks(ctx context.Context, chunks []*core.EmbeddedChunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		return 0, storage.ErrNotInitialized
	}
	for _, chunk := range chunks {
		if len(chunk.Vector) != s.dimensions {
			return 0, storage.ErrDimensionMismatch
		}
	}
	for _, chunk := range chunks {
		clone := *chunk
		s.chunks[chunk.ChunkID] = &clone
		ids, ok := s.bySource[chunk.SourceKey]
		if !ok {
			ids = make(map[string]struct{})
			s.bySource[chunk.SourceKey] = ids
		}
		ids[chunk.ChunkID] = struct{}{}
	}
	return len(chunks), nil
}

func (s *VectorStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]*core.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimensions == 0 {
		return nil, storage.ErrNotInitialized
	}

	results := make([]*core.RetrievedChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, &core.RetrievedChunk{
			PageContent: chunk.PageContent,
			Metadata:    chunk.Metadata,
			Score:       dotProduct(vector, chunk.Vector),
		})
	}

	slices.SortStableFunc(results, func(a, b *core.RetrievedChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *VectorStore) DeleteKeys(ctx context.Context, sourceKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chunkID := range s.bySource[sourceKey] {
		delete(s.chunks, chunkID)
	}
	delete(s.bySource, sourceKey)
	return true, nil
}

// AllChunks returns every stored embedded chunk. Used by offline
// maintenance jobs such as embedding-model migration.
func (s *VectorStore) AllChunks(ctx context.Context) ([]*core.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]*core.EmbeddedChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		clone := *chunk
		chunks = append(chunks, &clone)
	}
	return chunks, nil
}

func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

func (s *VectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]*core.EmbeddedChunk)
	s.bySource = make(map[string]map[string]struct{})
	return nil
}

// Close is a no-op for the in-memory store.
func (s *VectorStore) Close() error {
	return nil
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
