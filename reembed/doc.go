// Package reembed migrates stored embeddings to a new embedding model.
//
// It reads every embedded chunk from a source vector store, regenerates
// the vectors with the configured embedder, and writes the chunks into
// a target vector store initialized to the new model's dimensionality.
// Batch processing, progress reporting and retry with exponential
// backoff keep long migrations observable and resilient.
package reembed
