package source

import (
	"context"
	"iter"

	"github.com/poiesic/recall/core"
)

// Stream is a lazy, possibly infinite sequence of raw chunks. A stream
// is not restartable; iterating it a second time is undefined. A non-nil
// error terminates iteration.
type Stream = iter.Seq2[*core.RawChunk, error]

// Source produces content chunks for ingestion. Implementations are
// identified by a stable unique key derived from their defining
// parameters, so registering an identical source twice is a no-op.
type Source interface {
	// Init prepares the source for streaming. The scoped state handle
	// lets the source persist small per-item records across runs; it
	// is never nil (a no-op handle is passed when no store is
	// configured).
	Init(ctx context.Context, state ScopedState) error

	// UniqueKey returns the source's stable unique key.
	UniqueKey() string

	// Type returns the source's type name, recorded on its SourceRecord.
	Type() string

	// Metadata returns display metadata describing the source.
	Metadata() map[string]string

	// Chunks returns the source's chunk stream for one processing pass.
	Chunks(ctx context.Context) Stream
}

// IncrementalSource is a Source that can produce additional chunks
// after its initial pass.
type IncrementalSource interface {
	Source

	// Updates returns a channel of additional chunk streams. Each
	// received stream is processed as an independent pass scoped to
	// the same source key. The channel is closed when the source will
	// produce no further updates.
	Updates() <-chan Stream
}

// ScopedState is per-source key/value storage handed to sources at
// Init. Values live until the owning source is deleted.
type ScopedState interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (map[string]string, error)
	Set(ctx context.Context, key string, value map[string]string) error
	Delete(ctx context.Context, key string) error
}

// NoState is a ScopedState that remembers nothing. Sources receive it
// when the application runs without a metadata store.
type NoState struct{}

var _ ScopedState = NoState{}

func (NoState) Has(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (NoState) Get(ctx context.Context, key string) (map[string]string, error) {
	return nil, nil
}

func (NoState) Set(ctx context.Context, key string, value map[string]string) error {
	return nil
}

func (NoState) Delete(ctx context.Context, key string) error {
	return nil
}
