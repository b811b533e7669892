package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapState is an in-memory ScopedState for tests.
type mapState map[string]map[string]string

func (m mapState) Has(_ context.Context, key string) (bool, error) {
	_, ok := m[key]
	return ok, nil
}

func (m mapState) Get(_ context.Context, key string) (map[string]string, error) {
	return m[key], nil
}

func (m mapState) Set(_ context.Context, key string, value map[string]string) error {
	m[key] = value
	return nil
}

func (m mapState) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestWebSourceFetchesAndConverts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1><p>Body text.</p></body></html>"))
	}))
	defer server.Close()

	s := NewWeb(server.URL)
	require.NoError(t, s.Init(context.Background(), nil))

	var content string
	for chunk, err := range s.Chunks(context.Background()) {
		require.NoError(t, err)
		content += chunk.PageContent
	}
	assert.Contains(t, content, "Title")
	assert.Contains(t, content, "Body text.")
	assert.NotContains(t, content, "<h1>")
}

func TestWebSourcePlainTextPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("already plain"))
	}))
	defer server.Close()

	s := NewWeb(server.URL)
	chunks := collect(t, s.Chunks(context.Background()))
	require.Len(t, chunks, 1)
	assert.Equal(t, "already plain", chunks[0].PageContent)
}

func TestWebSourceSkipsUnchangedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("stable page content"))
	}))
	defer server.Close()

	state := mapState{}
	s := NewWeb(server.URL)
	require.NoError(t, s.Init(context.Background(), state))

	first := collect(t, s.Chunks(context.Background()))
	require.Len(t, first, 1)

	second := collect(t, s.Chunks(context.Background()))
	assert.Empty(t, second)
}

func TestWebSourceReprocessesChangedContent(t *testing.T) {
	content := "version one"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(content))
	}))
	defer server.Close()

	state := mapState{}
	s := NewWeb(server.URL)
	require.NoError(t, s.Init(context.Background(), state))

	collect(t, s.Chunks(context.Background()))

	content = "version two"
	second := collect(t, s.Chunks(context.Background()))
	require.Len(t, second, 1)
	assert.Equal(t, "version two", second[0].PageContent)
}

func TestWebSourceErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := NewWeb(server.URL)
	var sawErr error
	for _, err := range s.Chunks(context.Background()) {
		sawErr = err
		break
	}
	assert.Error(t, sawErr)
}

func TestWebSourceKeyFromURL(t *testing.T) {
	a := NewWeb("https://example.com/page")
	b := NewWeb("https://example.com/page")
	c := NewWeb("https://example.com/other")

	assert.Equal(t, a.UniqueKey(), b.UniqueKey())
	assert.NotEqual(t, a.UniqueKey(), c.UniqueKey())
	assert.Equal(t, "https://example.com/page", a.Metadata()["url"])
}
