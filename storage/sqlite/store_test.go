package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_RunsMigrations(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run migrations
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()
	assert.NotEmpty(t, store.Path())
}

func TestSourceRecord_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &core.SourceRecord{
		UniqueKey:       "WebSource_a",
		SourceType:      "WebSource",
		ChunksProcessed: 5,
		Metadata:        map[string]string{"url": "https://example.com"},
	}
	require.NoError(t, store.AddSource(ctx, record))

	got, err := store.GetSource(ctx, "WebSource_a")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	_, err = store.GetSource(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSourceRecord_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &core.SourceRecord{UniqueKey: "k", SourceType: "TextSource"}
	require.NoError(t, store.AddSource(ctx, record))

	record.ChunksProcessed = 7
	require.NoError(t, store.AddSource(ctx, record))

	all, err := store.GetAllSources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 7, all[0].ChunksProcessed)
}

func TestDeleteSource_CascadesScopedValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSource(ctx, &core.SourceRecord{UniqueKey: "k", SourceType: "WebSource"}))
	require.NoError(t, store.SetScopedValue(ctx, "k", "content-hash", map[string]string{"hash": "1"}))

	require.NoError(t, store.DeleteSource(ctx, "k"))

	exists, err := store.HasSource(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	value, err := store.GetScopedValue(ctx, "k", "content-hash")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestScopedValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetScopedValue(ctx, "src", "k", map[string]string{"v": "1"}))
	require.NoError(t, store.SetScopedValue(ctx, "src", "k", map[string]string{"v": "2"}))

	value, err := store.GetScopedValue(ctx, "src", "k")
	require.NoError(t, err)
	assert.Equal(t, "2", value["v"])

	exists, err := store.HasScopedValue(ctx, "src", "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteScopedValue(ctx, "src", "k"))
	exists, err = store.HasScopedValue(ctx, "src", "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConversations_AppendOrderAndSources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddConversation(ctx, "default"))

	now := time.Now().UTC().Truncate(time.Microsecond)
	human := &core.Message{ID: "m1", Timestamp: now, Actor: core.ActorHuman, Content: "question"}
	ai := &core.Message{
		ID: "m2", Timestamp: now, Actor: core.ActorAI, Content: "answer",
		Sources: []core.SourceRef{{Source: "notes.txt", SourceKey: "LocalFileSource_x"}},
	}
	require.NoError(t, store.AddEntry(ctx, "default", human))
	require.NoError(t, store.AddEntry(ctx, "default", ai))

	conversation, err := store.GetConversation(ctx, "default")
	require.NoError(t, err)
	require.Len(t, conversation.Entries, 2)
	assert.Equal(t, *human, conversation.Entries[0])
	assert.Equal(t, *ai, conversation.Entries[1])
}

func TestAddEntry_MissingConversation(t *testing.T) {
	store := newTestStore(t)
	msg := &core.Message{ID: "m1", Timestamp: time.Now().UTC(), Actor: core.ActorHuman, Content: "hi"}
	err := store.AddEntry(context.Background(), "missing", msg)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteConversation_CascadesEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddConversation(ctx, "default"))
	msg := &core.Message{ID: "m1", Timestamp: time.Now().UTC(), Actor: core.ActorHuman, Content: "hi"}
	require.NoError(t, store.AddEntry(ctx, "default", msg))

	require.NoError(t, store.DeleteConversation(ctx, "default"))

	// Recreate and verify no stale entries survive
	require.NoError(t, store.AddConversation(ctx, "default"))
	conversation, err := store.GetConversation(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, conversation.Entries)
}

func TestClearConversations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddConversation(ctx, "a"))
	require.NoError(t, store.AddConversation(ctx, "b"))
	require.NoError(t, store.ClearConversations(ctx))

	exists, err := store.HasConversation(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}
