package source

import (
	"context"

	"github.com/poiesic/recall/core"
)

// TextSource ingests a literal block of text, split into chunks with
// the configured size and overlap.
type TextSource struct {
	base
	text string
}

var _ Source = (*TextSource)(nil)

// NewText creates a source for a literal block of text. The unique key
// is derived from the normalized text, so identical text registers as
// the same source.
func NewText(text string, opts ...Option) *TextSource {
	display := truncateCenter(core.NormalizeText(text), 50)
	s := &TextSource{
		base: newBase("TextSource", core.NormalizeText(text), map[string]string{
			"source": display,
		}),
		text: text,
	}
	s.chunkSize = 300 // short-form default, matching prose paragraphs
	for _, opt := range opts {
		opt(&s.base)
	}
	return s
}

// Chunks splits the text and yields one raw chunk per part.
func (s *TextSource) Chunks(ctx context.Context) Stream {
	parts, err := s.splitter().SplitText(s.text)
	if err != nil {
		return streamError(err)
	}

	chunks := make([]*core.RawChunk, 0, len(parts))
	for _, part := range parts {
		chunks = append(chunks, &core.RawChunk{
			PageContent: part,
			Metadata: map[string]string{
				"type":   s.sourceType,
				"source": s.metadata["source"],
			},
		})
	}
	return streamOf(chunks)
}
