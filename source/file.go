package source

import (
	"context"
	"os"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/poiesic/recall/core"
)

// The built-in formats. Applications can extend the set with Register.
func init() {
	Register("text/plain", newTextFile)
	Register("text/markdown", newTextFile)
	Register("text/csv", newTextFile)
	Register("text/html", newHTMLFile)
	Register("application/json", newJSONFile)
}

// FileSource ingests a local file. The file is read lazily when chunks
// are requested, converted to plain text by the configured converter,
// and split with the source's chunking hints.
type FileSource struct {
	base
	path    string
	convert func([]byte) (string, error)
}

var _ Source = (*FileSource)(nil)

func newFileSource(path string, convert func([]byte) (string, error), opts ...Option) *FileSource {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s := &FileSource{
		base: newBase("LocalFileSource", abs, map[string]string{
			"source": abs,
			"path":   abs,
		}),
		path:    abs,
		convert: convert,
	}
	for _, opt := range opts {
		opt(&s.base)
	}
	return s
}

func newTextFile(path string, opts ...Option) (Source, error) {
	return newFileSource(path, func(data []byte) (string, error) {
		return string(data), nil
	}, opts...), nil
}

func newHTMLFile(path string, opts ...Option) (Source, error) {
	return newFileSource(path, func(data []byte) (string, error) {
		return htmltomarkdown.ConvertString(string(data))
	}, opts...), nil
}

// newJSONFile defers to JSONSource for record handling but keys the
// source by path, so re-registering the same file is idempotent even
// when its records changed.
func newJSONFile(path string, opts ...Option) (Source, error) {
	return newFileSource(path, nil, opts...), nil
}

// Chunks reads and converts the file, then yields its content split
// into chunks. A nil converter means the file holds JSON records and
// delegates to JSONSource semantics.
func (s *FileSource) Chunks(ctx context.Context) Stream {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return streamError(err)
	}

	if s.convert == nil {
		inner, err := NewJSON(data)
		if err != nil {
			return streamError(err)
		}
		inner.metadata["source"] = s.path
		inner.sourceType = s.sourceType
		return inner.Chunks(ctx)
	}

	text, err := s.convert(data)
	if err != nil {
		return streamError(err)
	}

	parts, err := s.splitter().SplitText(text)
	if err != nil {
		return streamError(err)
	}

	chunks := make([]*core.RawChunk, 0, len(parts))
	for _, part := range parts {
		chunks = append(chunks, &core.RawChunk{
			PageContent: part,
			Metadata: map[string]string{
				"type":   s.sourceType,
				"source": s.path,
			},
		})
	}
	return streamOf(chunks)
}
