package core

import (
	"regexp"
	"strings"
)

var (
	newlineRuns    = regexp.MustCompile(`(\r\n|\n|\r)`)
	whitespaceRuns = regexp.MustCompile(`\s\s+`)
)

// NormalizeText collapses newlines and runs of whitespace into single
// spaces and trims the result. Chunks whose normalized text is empty
// are discarded before batching.
func NormalizeText(text string) string {
	text = newlineRuns.ReplaceAllString(text, " ")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanQuery normalizes a user query before it is embedded. On top of
// whitespace normalization it strips characters that degrade embedding
// quality for typical document text.
func CleanQuery(text string) string {
	text = strings.ReplaceAll(text, `\`, "")
	text = strings.ReplaceAll(text, "#", " ")
	return NormalizeText(text)
}

// NewChunk normalizes a raw chunk and stamps it with its content hash.
// Returns false when the normalized text is empty and the chunk should
// be dropped.
func NewChunk(raw *RawChunk) (*Chunk, bool) {
	content := NormalizeText(raw.PageContent)
	if content == "" {
		return nil, false
	}
	return &Chunk{
		PageContent: content,
		Metadata:    raw.Metadata,
		ContentHash: HashContent(content),
	}, true
}
