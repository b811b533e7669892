// Package chat answers user queries with retrieval-augmented
// generation. The Assembler retrieves supporting chunks, builds a
// prompt from the system instruction, the retrieved context and the
// conversation history, invokes the configured chat model, and
// appends both the human and AI turns to the conversation store.
//
// Conversations are created lazily on first reference and identified
// by caller-chosen IDs; queries that name no conversation share the
// default one.
package chat
