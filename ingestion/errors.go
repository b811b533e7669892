package ingestion

import "errors"

var (
	// ErrSourceStoreRequired is returned when a source store is not provided.
	ErrSourceStoreRequired = errors.New("source store required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrSourceRequired is returned when a nil source is registered.
	ErrSourceRequired = errors.New("source required")

	// ErrSourceBusy is returned when a source is already being processed.
	ErrSourceBusy = errors.New("source is already being processed")
)
