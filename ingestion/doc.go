// Package ingestion turns registered sources into stored embeddings.
//
// The Manager type handles source registration, including:
//   - Skipping sources already on record (idempotent re-registration)
//   - Deleting and reprocessing a source when forced
//   - Draining chunk streams through the batching embedder
//   - Consuming incremental sources' update streams on a worker pool
//
// Update processing runs concurrently; errors during update passes are
// logged but do not fail the original registration.
package ingestion
