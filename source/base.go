package source

import (
	"context"

	"github.com/poiesic/recall/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Default chunking hints, overridable per source with WithChunkSize /
// WithChunkOverlap.
const (
	defaultChunkSize    = 2000
	defaultChunkOverlap = 0
)

// base carries the fields every source shares: the derived unique key,
// display metadata, chunking hints and the scoped state handle.
type base struct {
	uniqueKey    string
	sourceType   string
	metadata     map[string]string
	chunkSize    int
	chunkOverlap int
	state        ScopedState
}

func newBase(sourceType, keyMaterial string, metadata map[string]string) base {
	return base{
		uniqueKey:    sourceType + "_" + core.KeyFromContent(keyMaterial),
		sourceType:   sourceType,
		metadata:     metadata,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		state:        NoState{},
	}
}

// Init stores the scoped state handle. Sources needing more setup
// override this and call it themselves.
func (b *base) Init(ctx context.Context, state ScopedState) error {
	if state == nil {
		state = NoState{}
	}
	b.state = state
	return nil
}

func (b *base) UniqueKey() string {
	return b.uniqueKey
}

func (b *base) Type() string {
	return b.sourceType
}

func (b *base) Metadata() map[string]string {
	return b.metadata
}

// splitter builds the text splitter configured with this source's
// chunking hints.
func (b *base) splitter() textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(b.chunkSize),
		textsplitter.WithChunkOverlap(b.chunkOverlap),
	)
}

// Option configures a source's chunking hints.
type Option func(*base)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(b *base) {
		if size > 0 {
			b.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks in characters.
func WithChunkOverlap(overlap int) Option {
	return func(b *base) {
		if overlap >= 0 {
			b.chunkOverlap = overlap
		}
	}
}

// truncateCenter shortens a string to maxLen by replacing its middle
// with an ellipsis. Used to keep display metadata compact.
func truncateCenter(full string, maxLen int) string {
	if len(full) <= maxLen {
		return full
	}
	const separator = "..."
	charsToShow := maxLen - len(separator)
	front := (charsToShow + 1) / 2
	back := charsToShow / 2
	return full[:front] + separator + full[len(full)-back:]
}

// streamOf builds a finite Stream from pre-built chunks.
func streamOf(chunks []*core.RawChunk) Stream {
	return func(yield func(*core.RawChunk, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// streamError builds a Stream that fails immediately.
func streamError(err error) Stream {
	return func(yield func(*core.RawChunk, error) bool) {
		yield(nil, err)
	}
}
