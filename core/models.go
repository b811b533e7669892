package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash is a deterministic hash of a chunk's normalized text.
// Identical normalized text always produces the same hash.
type ContentHash uint64

// HashContent computes a ContentHash from text using BLAKE2b hashing.
func HashContent(text string) ContentHash {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ContentHash(binary.LittleEndian.Uint64(sum))
}

// KeyFromContent derives a deterministic key component from text using
// BLAKE2b. Sources build their unique keys from their defining
// parameters with this, so registering an identical source twice is a
// no-op.
func KeyFromContent(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// RawChunk is a unit of text produced by a source before cleaning.
// It is ephemeral and never persisted directly.
type RawChunk struct {
	PageContent string
	Metadata    map[string]string
}

// Chunk is a RawChunk after whitespace normalization, carrying the
// content hash of its normalized text.
type Chunk struct {
	PageContent string
	Metadata    map[string]string
	ContentHash ContentHash
}

// FormattedChunk is a Chunk stamped with its owning source key and a
// positional chunk ID, ready for embedding.
type FormattedChunk struct {
	Chunk
	SourceKey string
	ChunkID   string
}

// ChunkID builds the positional chunk identifier for one processing
// pass. Sequence numbers start at 0 and increment per chunk; each
// incremental pass restarts numbering, so IDs are stable per
// (source, position) and overwrite on stores that upsert by ID.
func ChunkID(sourceKey string, sequence int) string {
	return fmt.Sprintf("%s_%d", sourceKey, sequence)
}

// EmbeddedChunk is a FormattedChunk plus its embedding vector,
// ready for vector-store insertion.
type EmbeddedChunk struct {
	FormattedChunk
	Vector []float32
}

// RetrievedChunk is a similarity-search hit. Score follows the
// normalized "higher is more relevant" convention; adapters for
// distance-scored backends invert the sign before returning.
type RetrievedChunk struct {
	PageContent string
	Metadata    map[string]string
	Score       float32
}

// SourceRecord is the durable proof that a source has been processed.
// One record exists per source key; it is replaced on forced
// reprocessing and deleted together with the source's vectors.
type SourceRecord struct {
	UniqueKey       string
	SourceType      string
	ChunksProcessed int
	Metadata        map[string]string
}

// Actor identifies the author of a conversation message.
type Actor int

const (
	// ActorHuman represents the human user.
	ActorHuman Actor = iota + 1
	// ActorAI represents the AI assistant.
	ActorAI
	// ActorSystem represents system instructions.
	ActorSystem
)

// String returns the canonical name of the actor.
func (a Actor) String() string {
	switch a {
	case ActorHuman:
		return "HUMAN"
	case ActorAI:
		return "AI"
	case ActorSystem:
		return "SYSTEM"
	default:
		return fmt.Sprintf("Actor(%d)", int(a))
	}
}

// SourceRef identifies a source that contributed context to an answer.
type SourceRef struct {
	Source    string
	SourceKey string
}

// Message is a single conversation turn. Sources is populated only on
// AI messages, derived from the retrieval results used to answer.
type Message struct {
	ID        string
	Timestamp time.Time
	Actor     Actor
	Content   string
	Sources   []SourceRef
}

// Conversation is an ordered, append-only transcript of messages.
// Conversations are created lazily on first reference.
type Conversation struct {
	ConversationID string
	Entries        []Message
}

// TokenCount is a token-usage counter. It is TokenCountUnknown when
// the model did not report usage.
type TokenCount int

// TokenCountUnknown marks usage counters the model did not supply.
const TokenCountUnknown TokenCount = -1

// String renders the counter, using "UNKNOWN" for unreported values.
func (t TokenCount) String() string {
	if t < 0 {
		return "UNKNOWN"
	}
	return fmt.Sprintf("%d", int(t))
}

// TokenUsage reports input/output token counts for one model call.
type TokenUsage struct {
	InputTokens  TokenCount
	OutputTokens TokenCount
}

// QueryResponse is the result of answering a user query: the AI message
// that was produced plus token-usage counters.
type QueryResponse struct {
	ID        string
	Timestamp time.Time
	Content   string
	Sources   []SourceRef
	TokenUse  TokenUsage
}
