package badger

import (
	"context"
	"encoding/binary"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// VectorStore implements storage.VectorStore on a BadgerDB backend.
// Similarity search is a brute-force scan with dot-product scoring,
// which assumes normalized embedding vectors.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger

	mu         sync.RWMutex
	dimensions int
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore opens a vector store at the given path.
func NewVectorStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newVectorStore(backend), nil
}

func newVectorStore(backend *Backend) *VectorStore {
	return &VectorStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectors"),
	}
}

// Init prepares the store for vectors of the given dimensionality. A
// store reopened with different dimensions is refused rather than
// silently mixing incompatible vectors.
func (s *VectorStore) Init(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return storage.ErrDimensionMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(vectorDimensionsKey))
		if err == nil {
			var stored uint64
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					stored = binary.BigEndian.Uint64(val)
				}
				return nil
			}); err != nil {
				return err
			}
			if int(stored) != dimensions {
				return storage.ErrDimensionMismatch
			}
			s.dimensions = dimensions
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(dimensions))
		if err := tx.Set([]byte(vectorDimensionsKey), buf); err != nil {
			return err
		}
		s.dimensions = dimensions
		return tx.Commit()
	}, true)
}

// InsertChunks stores embedded chunks and their source index entries.
func (s *VectorStore) InsertChunks(ctx context.Context, chunks []*core.EmbeddedChunk) (int, error) {
	s.mu.RLock()
	dimensions := s.dimensions
	s.mu.RUnlock()
	if dimensions == 0 {
		return 0, storage.ErrNotInitialized
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if len(chunk.Vector) != dimensions {
				return storage.ErrDimensionMismatch
			}
			key := makeVectorChunkKey(chunk.ChunkID)
			if err := tx.Set(key, storage.MarshalEmbeddedChunk(chunk)); err != nil {
				return err
			}
			indexKey := makeVectorSourceKey(chunk.SourceKey, chunk.ChunkID)
			if err := tx.Set(indexKey, []byte{1}); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// SimilaritySearch returns up to k chunks most similar to the query
// vector, ordered by score descending.
func (s *VectorStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]*core.RetrievedChunk, error) {
	s.mu.RLock()
	dimensions := s.dimensions
	s.mu.RUnlock()
	if dimensions == 0 {
		return nil, storage.ErrNotInitialized
	}

	var results []*core.RetrievedChunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.EmbeddedChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalEmbeddedChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil || len(chunk.Vector) == 0 {
				continue
			}

			results = append(results, &core.RetrievedChunk{
				PageContent: chunk.PageContent,
				Metadata:    chunk.Metadata,
				Score:       dotProduct(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
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

// DeleteKeys removes every chunk belonging to a source key.
func (s *VectorStore) DeleteKeys(ctx context.Context, sourceKey string) (bool, error) {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeVectorSourcePrefix(sourceKey)

		var chunkKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			indexKey := iter.Item().Key()
			chunkID := string(indexKey[len(prefix):])
			chunkKeys = append(chunkKeys, makeVectorChunkKey(chunkID))
		}
		iter.Close()

		for _, key := range chunkKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := deleteByPrefix(tx, prefix); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return false, err
	}
	return true, nil
}

// AllChunks returns every stored embedded chunk. Used by offline
// maintenance jobs such as embedding-model migration.
func (s *VectorStore) AllChunks(ctx context.Context) ([]*core.EmbeddedChunk, error) {
	var chunks []*core.EmbeddedChunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.EmbeddedChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalEmbeddedChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Count returns the number of stored embeddings.
func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorChunkPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Reset removes every stored embedding but keeps the configured
// dimensions.
func (s *VectorStore) Reset(ctx context.Context) error {
	return s.backend.DropPrefix(
		[]byte(vectorChunkPrefix+":"),
		[]byte(vectorSourcePrefix+":"),
	)
}

// Close closes the underlying backend.
func (s *VectorStore) Close() error {
	return s.backend.Close()
}

// dotProduct calculates the dot product of two vectors.
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
