package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/source"
	"github.com/poiesic/recall/storage"
)

// Manager orchestrates source registration: idempotent skipping,
// forced reprocessing, stream batching and incremental update workers.
type Manager struct {
	sources   storage.SourceStore
	vectors   storage.VectorStore
	embedder  ai.Embedder
	batcher   *Batcher
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// Option configures a Manager.
type Option func(*Manager) error

// WithPoolSize sets the worker pool size for incremental update
// processing. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(m *Manager) error {
		if size < 1 {
			size = 1
		}
		if m.pool != nil {
			m.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		m.pool = pool
		return nil
	}
}

// WithBatchSize sets the embedding batch size.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(m *Manager) error {
		if size > 0 {
			m.batchSize = size
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates a new ingestion manager.
func NewManager(
	sources storage.SourceStore,
	vectors storage.VectorStore,
	embedder ai.Embedder,
	opts ...Option,
) (*Manager, error) {
	if sources == nil {
		return nil, ErrSourceStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		sources:   sources,
		vectors:   vectors,
		embedder:  embedder,
		pool:      pool,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		active:    make(map[string]struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(m); optErr != nil {
			m.Release()
			return nil, optErr
		}
	}

	// Create the batcher after options are applied (so it gets final config)
	m.batcher = newBatcher(embedder, vectors, m.batchSize, m.logger)

	return m, nil
}

// AddSourceResult reports the outcome of a source registration.
type AddSourceResult struct {
	SourceKey   string
	SourceType  string
	ChunksAdded int
}

// RegisterSource processes a source into the vector store. A source
// already on record is skipped with ChunksAdded zero unless
// forceReprocess is set, in which case its previous data is deleted
// first. Incremental sources additionally get a background worker
// consuming their update streams.
func (m *Manager) RegisterSource(ctx context.Context, src source.Source, forceReprocess bool) (*AddSourceResult, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}

	key := src.UniqueKey()
	if !m.markActive(key) {
		return nil, ErrSourceBusy
	}
	defer m.markIdle(key)

	result := &AddSourceResult{
		SourceKey:  key,
		SourceType: src.Type(),
	}

	exists, err := m.sources.HasSource(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists && !forceReprocess {
		m.logger.Debug("source already processed, skipping", "source", key)
		return result, nil
	}
	if exists {
		m.logger.Info("reprocessing source", "source", key)
		record, err := m.sources.GetSource(ctx, key)
		if err != nil {
			return nil, err
		}
		// A record with no processed chunks has nothing to delete
		if record.ChunksProcessed > 0 {
			if _, err := m.deleteSourceData(ctx, key); err != nil {
				return nil, err
			}
		}
	}

	if err := src.Init(ctx, newStoreState(m.sources, key)); err != nil {
		return nil, err
	}

	count, err := m.batcher.ProcessStream(ctx, key, src.Chunks(ctx))
	if err != nil {
		return nil, err
	}

	record := &core.SourceRecord{
		UniqueKey:       key,
		SourceType:      src.Type(),
		ChunksProcessed: count,
		Metadata:        src.Metadata(),
	}
	if err := m.sources.AddSource(ctx, record); err != nil {
		return nil, err
	}
	result.ChunksAdded = count

	if incremental, ok := src.(source.IncrementalSource); ok {
		m.watchUpdates(key, incremental)
	}

	m.logger.Info("source registered", "source", key, "type", result.SourceType, "chunks", count)
	return result, nil
}

// DeleteSource removes a source's embeddings and, when that succeeds,
// its record and scoped values. Reports whether data was removed.
func (m *Manager) DeleteSource(ctx context.Context, sourceKey string) (bool, error) {
	return m.deleteSourceData(ctx, sourceKey)
}

// Release stops the update workers. The manager should not be used
// after calling Release.
func (m *Manager) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// deleteSourceData removes vector data first; metadata cleanup only
// happens once the vector store confirms the deletion.
func (m *Manager) deleteSourceData(ctx context.Context, sourceKey string) (bool, error) {
	deleted, err := m.vectors.DeleteKeys(ctx, sourceKey)
	if err != nil || !deleted {
		return deleted, err
	}
	if err := m.sources.DeleteSource(ctx, sourceKey); err != nil {
		return true, err
	}
	return true, nil
}

// watchUpdates submits a worker that reprocesses each update stream
// the source pushes. Every pass restarts chunk sequencing, so an
// updated file overwrites its previous chunk IDs in place.
func (m *Manager) watchUpdates(key string, incremental source.IncrementalSource) {
	err := m.pool.Submit(func() {
		for stream := range incremental.Updates() {
			if !m.markActive(key) {
				m.logger.Debug("skipping update, source busy", "source", key)
				continue
			}
			m.processUpdate(key, stream)
			m.markIdle(key)
		}
	})
	if err != nil {
		m.logger.Error("error starting update worker", "source", key, "err", err)
	}
}

// processUpdate runs one incremental pass. Errors are logged but do
// not stop the worker.
func (m *Manager) processUpdate(key string, stream source.Stream) {
	ctx := context.Background()

	count, err := m.batcher.ProcessStream(ctx, key, stream)
	if err != nil {
		m.logger.Error("error processing update", "source", key, "err", err)
		return
	}
	if count == 0 {
		return
	}

	record, err := m.sources.GetSource(ctx, key)
	if err != nil {
		m.logger.Error("error loading source record after update", "source", key, "err", err)
		return
	}
	record.ChunksProcessed = count
	if err := m.sources.AddSource(ctx, record); err != nil {
		m.logger.Error("error saving source record after update", "source", key, "err", err)
		return
	}
	m.logger.Info("source updated", "source", key, "chunks", count)
}

func (m *Manager) markActive(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[key]; busy {
		return false
	}
	m.active[key] = struct{}{}
	return true
}

func (m *Manager) markIdle(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, key)
}

// storeState adapts the source store's scoped values to the
// source.ScopedState interface for one source key.
type storeState struct {
	sources   storage.SourceStore
	sourceKey string
}

var _ source.ScopedState = (*storeState)(nil)

func newStoreState(sources storage.SourceStore, sourceKey string) *storeState {
	return &storeState{sources: sources, sourceKey: sourceKey}
}

func (s *storeState) Has(ctx context.Context, key string) (bool, error) {
	return s.sources.HasScopedValue(ctx, s.sourceKey, key)
}

func (s *storeState) Get(ctx context.Context, key string) (map[string]string, error) {
	return s.sources.GetScopedValue(ctx, s.sourceKey, key)
}

func (s *storeState) Set(ctx context.Context, key string, value map[string]string) error {
	return s.sources.SetScopedValue(ctx, s.sourceKey, key, value)
}

func (s *storeState) Delete(ctx context.Context, key string) error {
	return s.sources.DeleteScopedValue(ctx, s.sourceKey, key)
}
