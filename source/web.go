package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/poiesic/recall/core"
)

const webFetchTimeout = 15 * time.Second

// WebSource ingests a web page: the page is fetched, converted from
// HTML to markdown, and split into chunks.
//
// The source remembers the content hash of the last ingested page in
// its scoped state, so re-registering an unchanged page with
// forceReprocess yields no chunks to re-embed.
type WebSource struct {
	base
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ Source = (*WebSource)(nil)

// NewWeb creates a source for a web page URL. The unique key is
// derived from the URL.
func NewWeb(url string, opts ...Option) *WebSource {
	s := &WebSource{
		base: newBase("WebSource", url, map[string]string{
			"source": url,
			"url":    url,
		}),
		url:    url,
		client: &http.Client{Timeout: webFetchTimeout},
		logger: slog.Default().With("component", "web-source", "url", url),
	}
	for _, opt := range opts {
		opt(&s.base)
	}
	return s
}

// Chunks fetches the page and yields its markdown content in chunks.
// An unchanged page (same content hash as the previous run) yields an
// empty stream.
func (s *WebSource) Chunks(ctx context.Context) Stream {
	markdown, err := s.fetch(ctx)
	if err != nil {
		return streamError(err)
	}

	unchanged, err := s.isUnchanged(ctx, markdown)
	if err != nil {
		return streamError(err)
	}
	if unchanged {
		s.logger.Debug("page content unchanged, skipping")
		return streamOf(nil)
	}

	parts, err := s.splitter().SplitText(markdown)
	if err != nil {
		return streamError(err)
	}

	chunks := make([]*core.RawChunk, 0, len(parts))
	for _, part := range parts {
		chunks = append(chunks, &core.RawChunk{
			PageContent: part,
			Metadata: map[string]string{
				"type":   s.sourceType,
				"source": s.url,
			},
		})
	}
	return streamOf(chunks)
}

func (s *WebSource) fetch(ctx context.Context) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}

	response, err := s.client.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %s", s.url, response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	contentType := response.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		return string(body), nil
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", err
	}
	return markdown, nil
}

// isUnchanged compares the page's content hash against the one
// recorded on the previous run and records the new hash.
func (s *WebSource) isUnchanged(ctx context.Context, markdown string) (bool, error) {
	hash := fmt.Sprintf("%d", core.HashContent(core.NormalizeText(markdown)))

	previous, err := s.state.Get(ctx, "content-hash")
	if err != nil {
		return false, err
	}
	if previous != nil && previous["hash"] == hash {
		return true, nil
	}

	if err := s.state.Set(ctx, "content-hash", map[string]string{"hash": hash}); err != nil {
		return false, err
	}
	return false, nil
}
