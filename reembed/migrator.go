// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

// ChunkLister enumerates the embedded chunks of a vector store.
// Implemented by the badger and memory vector stores.
type ChunkLister interface {
	AllChunks(ctx context.Context) ([]*core.EmbeddedChunk, error)
}

// ChunkWriter receives the re-embedded chunks. storage.VectorStore
// satisfies this.
type ChunkWriter interface {
	Init(ctx context.Context, dimensions int) error
	InsertChunks(ctx context.Context, chunks []*core.EmbeddedChunk) (int, error)
}

// Config holds configuration for the migration.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Migrator re-embeds every chunk of a vector store with a new embedder
// and writes the results into a target store.
type Migrator struct {
	source    ChunkLister
	target    ChunkWriter
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewMigrator creates a migrator.
// progress: where to write progress output (typically os.Stderr)
func NewMigrator(source ChunkLister, target ChunkWriter, embedder ai.Embedder, config *Config, progress io.Writer) *Migrator {
	if config == nil {
		config = DefaultConfig()
	}

	return &Migrator{
		source:    source,
		target:    target,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(target, embedder, config.MaxRetries, config.RetryDelay),
	}
}

// Run executes the migration. The target store is initialized to the
// embedder's dimensionality before the first batch is written.
func (m *Migrator) Run(ctx context.Context) error {
	chunks, err := m.source.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chunks: %w", err)
	}

	total := len(chunks)
	if total == 0 {
		fmt.Fprintf(m.progress, "No chunks found in source store (0 chunks)\n")
		return nil
	}

	dimensions, err := m.embedder.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine embedding dimensions: %w", err)
	}
	if err := m.target.Init(ctx, dimensions); err != nil {
		return fmt.Errorf("failed to initialize target store: %w", err)
	}

	fmt.Fprintf(m.progress, "Starting migration of %d chunks (batch size: %d, dimensions: %d)\n",
		total, m.config.BatchSize, dimensions)

	tracker := NewProgressTracker(m.progress, total, m.config.ReportInterval)

	iterator := NewChunkIterator(chunks, m.config.BatchSize)
	err = iterator.ForEach(ctx, func(batch []*core.EmbeddedChunk) error {
		if err := m.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.BatchDone(len(batch))
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()
	return nil
}
