package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// SourceStore persists source records and per-source scoped values.
// Implementations must be thread-safe and support concurrent access.
type SourceStore interface {
	// AddSource stores a source record, replacing any record with the
	// same unique key.
	AddSource(ctx context.Context, record *core.SourceRecord) error

	// GetSource retrieves a source record by unique key.
	// Returns ErrNotFound if no record exists.
	GetSource(ctx context.Context, uniqueKey string) (*core.SourceRecord, error)

	// HasSource reports whether a source record exists.
	HasSource(ctx context.Context, uniqueKey string) (bool, error)

	// GetAllSources retrieves every stored source record.
	GetAllSources(ctx context.Context) ([]*core.SourceRecord, error)

	// DeleteSource removes a source record. Deleting an absent record
	// is not an error.
	DeleteSource(ctx context.Context, uniqueKey string) error

	// SetScopedValue stores a value scoped to (sourceKey, key).
	SetScopedValue(ctx context.Context, sourceKey, key string, value map[string]string) error

	// GetScopedValue retrieves a scoped value. Returns nil with no
	// error when the value is absent.
	GetScopedValue(ctx context.Context, sourceKey, key string) (map[string]string, error)

	// HasScopedValue reports whether a scoped value exists.
	HasScopedValue(ctx context.Context, sourceKey, key string) (bool, error)

	// DeleteScopedValue removes a single scoped value.
	DeleteScopedValue(ctx context.Context, sourceKey, key string) error

	// DeleteScopedValues removes every scoped value of a source.
	DeleteScopedValues(ctx context.Context, sourceKey string) error
}

// ConversationStore persists conversations and their entries.
// Implementations must be thread-safe and support concurrent access.
type ConversationStore interface {
	// AddConversation creates an empty conversation. Creating an
	// existing conversation is a no-op.
	AddConversation(ctx context.Context, conversationID string) error

	// GetConversation retrieves a conversation with its entries in
	// append order. Returns ErrNotFound if it does not exist.
	GetConversation(ctx context.Context, conversationID string) (*core.Conversation, error)

	// HasConversation reports whether a conversation exists.
	HasConversation(ctx context.Context, conversationID string) (bool, error)

	// DeleteConversation removes a conversation and its entries.
	// Deleting an absent conversation is not an error.
	DeleteConversation(ctx context.Context, conversationID string) error

	// AddEntry appends a message to a conversation.
	// Returns ErrNotFound if the conversation does not exist.
	AddEntry(ctx context.Context, conversationID string, entry *core.Message) error

	// ClearConversations removes every conversation.
	ClearConversations(ctx context.Context) error
}

// Store combines the metadata stores behind one backend handle.
type Store interface {
	SourceStore
	ConversationStore

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorStore persists embedded chunks and answers similarity queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Init prepares the store for vectors of the given dimensionality.
	// Called once before any insert or search.
	Init(ctx context.Context, dimensions int) error

	// InsertChunks stores embedded chunks and returns how many were
	// written. Re-inserting a chunk ID overwrites the previous entry.
	InsertChunks(ctx context.Context, chunks []*core.EmbeddedChunk) (int, error)

	// SimilaritySearch returns up to k chunks most similar to the query
	// vector, ordered by score descending.
	SimilaritySearch(ctx context.Context, vector []float32, k int) ([]*core.RetrievedChunk, error)

	// DeleteKeys removes every chunk belonging to a source key.
	// Reports whether the deletion was carried out.
	DeleteKeys(ctx context.Context, sourceKey string) (bool, error)

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int64, error)

	// Reset removes every stored embedding.
	Reset(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
