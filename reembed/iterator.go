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

	"github.com/poiesic/recall/core"
)

const (
	// DefaultBatchSize is the default number of chunks in each batch
	DefaultBatchSize = 100
)

// ChunkIterator walks a chunk list in fixed-size batches.
type ChunkIterator struct {
	chunks    []*core.EmbeddedChunk
	batchSize int
}

// NewChunkIterator creates an iterator over the given chunks.
// batchSize: number of chunks in each batch (must be > 0)
func NewChunkIterator(chunks []*core.EmbeddedChunk, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		chunks:    chunks,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch. Iteration stops on the first error
// from fn. Context cancellation is checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.EmbeddedChunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for i := 0; i < len(it.chunks); i += it.batchSize {
		end := i + it.batchSize
		if end > len(it.chunks) {
			end = len(it.chunks)
		}

		if err := fn(it.chunks[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
