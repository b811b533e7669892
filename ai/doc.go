// Package ai defines the AI service abstractions consumed by the
// ingestion and query pipelines: text embedding (Embedder) and answer
// generation (ChatModel).
//
// The interfaces are provider-agnostic. Production implementations for
// OpenAI-compatible APIs live in the openai subpackage; deterministic
// test doubles live in the mock subpackage.
package ai
