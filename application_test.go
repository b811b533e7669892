package recall

import (
	"context"
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/chat"
	"github.com/poiesic/recall/source"
	"github.com/poiesic/recall/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T, opts ...ApplicationOption) *Application {
	t.Helper()
	base := []ApplicationOption{
		WithEmbedder(mock.NewMockEmbedder()),
		WithVectorStore(memory.NewVectorStore()),
		WithStore(memory.NewStore()),
		WithModel(mock.NewMockChatModel()),
	}
	app, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_RequiresEmbedderAndVectorStore(t *testing.T) {
	_, err := New(context.Background(), WithVectorStore(memory.NewVectorStore()))
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = New(context.Background(), WithEmbedder(mock.NewMockEmbedder()))
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
}

func TestApplication_IngestAndSearch(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	result, err := app.AddSource(ctx, source.NewText("The quick brown fox jumps over the lazy dog."))
	require.NoError(t, err)
	assert.Positive(t, result.ChunksAdded)

	count, err := app.EmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(result.ChunksAdded), count)

	results, err := app.Search(ctx, "quick brown fox")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestApplication_AddSourceIsIdempotent(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	src := source.NewText("Some content worth remembering.")
	first, err := app.AddSource(ctx, src)
	require.NoError(t, err)
	assert.Positive(t, first.ChunksAdded)

	second, err := app.AddSource(ctx, source.NewText("Some content worth remembering."))
	require.NoError(t, err)
	assert.Zero(t, second.ChunksAdded)

	forced, err := app.ReprocessSource(ctx, source.NewText("Some content worth remembering."))
	require.NoError(t, err)
	assert.Equal(t, first.ChunksAdded, forced.ChunksAdded)
}

func TestApplication_NoStoreAlwaysReprocesses(t *testing.T) {
	app, err := New(context.Background(),
		WithEmbedder(mock.NewMockEmbedder()),
		WithVectorStore(memory.NewVectorStore()),
	)
	require.NoError(t, err)
	defer app.Close()
	ctx := context.Background()

	first, err := app.AddSource(ctx, source.NewText("ephemeral content"))
	require.NoError(t, err)
	assert.Positive(t, first.ChunksAdded)

	second, err := app.AddSource(ctx, source.NewText("ephemeral content"))
	require.NoError(t, err)
	assert.Equal(t, first.ChunksAdded, second.ChunksAdded)

	records, err := app.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestApplication_SourcesAndDelete(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	result, err := app.AddSource(ctx, source.NewText("content to delete"))
	require.NoError(t, err)

	records, err := app.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.SourceKey, records[0].UniqueKey)

	deleted, err := app.DeleteSource(ctx, result.SourceKey)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, err = app.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	count, err := app.EmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplication_Query(t *testing.T) {
	model := mock.NewMockChatModel()
	model.Reply = &ai.ModelReply{Content: "grounded answer", InputTokens: 3, OutputTokens: 2}
	app := newTestApplication(t, WithModel(model))
	ctx := context.Background()

	_, err := app.AddSource(ctx, source.NewText("Paris is the capital of France."))
	require.NoError(t, err)

	response, err := app.Query(ctx, "What is the capital of France?", nil)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", response.Content)
	assert.NotEmpty(t, model.LastRequest().Context)

	require.NoError(t, app.DeleteConversation(ctx, chat.DefaultConversationID))
}

func TestApplication_QueryWithoutDefaultConversation(t *testing.T) {
	model := mock.NewMockChatModel()
	app := newTestApplication(t, WithModel(model), WithDefaultConversation(false))
	ctx := context.Background()

	_, err := app.Query(ctx, "first question", nil)
	require.NoError(t, err)
	_, err = app.Query(ctx, "second question", nil)
	require.NoError(t, err)

	// Nothing was recorded between the calls.
	assert.Empty(t, model.LastRequest().History)
}

func TestApplication_QueryWithoutModel(t *testing.T) {
	app, err := New(context.Background(),
		WithEmbedder(mock.NewMockEmbedder()),
		WithVectorStore(memory.NewVectorStore()),
	)
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Query(context.Background(), "question", nil)
	assert.ErrorIs(t, err, chat.ErrModelNotSet)
}

func TestApplication_Reset(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	_, err := app.AddSource(ctx, source.NewText("first source"))
	require.NoError(t, err)
	_, err = app.AddSource(ctx, source.NewText("second source"))
	require.NoError(t, err)

	require.NoError(t, app.Reset(ctx))

	count, err := app.EmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	records, err := app.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
