// Package search answers relevance queries over the embedded chunks.
//
// Retrieval embeds the cleaned query, overfetches candidates from the
// vector store, filters them to scores strictly above the relevance
// cutoff and returns the top results by similarity. Search adds
// content-level deduplication on top, keeping the first occurrence of
// each duplicated chunk.
package search
