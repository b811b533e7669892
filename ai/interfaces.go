package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Used for queries; the returned vector represents the semantic
	// meaning of the text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the
	// input texts and has the same length.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the vectors this embedder
	// produces. Used to initialize vector stores.
	Dimensions(ctx context.Context) (int, error)
}

// ChatModel produces a generative answer from an assembled prompt.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Query invokes the model with the request's system instruction,
	// retrieved context, conversation history and user query.
	// Token counters in the reply are TokensUnknown when the backend
	// does not report usage.
	Query(ctx context.Context, request *QueryRequest) (*ModelReply, error)
}

// QueryRequest carries everything a ChatModel needs for one answer.
type QueryRequest struct {
	// System is the system instruction text.
	System string

	// Query is the raw user query, always the final prompt turn.
	Query string

	// Context holds the page contents of the retrieved chunks,
	// embedded into a single system message.
	Context []string

	// History holds the prior conversation turns, excluding the
	// current user query.
	History []PromptMessage
}

// TokensUnknown marks token counters the model backend did not report.
const TokensUnknown = -1

// ModelReply is the result of one ChatModel invocation.
type ModelReply struct {
	Content      string
	InputTokens  int
	OutputTokens int
}
