// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recall

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/chat"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/source"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/memory"
)

var (
	// ErrEmbedderRequired is returned by New when no embedder was
	// configured.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrVectorStoreRequired is returned by New when no vector store
	// was configured.
	ErrVectorStoreRequired = errors.New("vector store is required")
)

// Application is the top-level entry point. It wires the embedder,
// stores and model into the ingestion, search and chat layers.
//
// An embedder and a vector store are required. A chat model is
// optional until Query. A metadata store is optional: without one,
// source bookkeeping degrades so that every AddSource call
// reprocesses, and conversations are kept in process memory only.
type Application struct {
	store         storage.Store
	sources       storage.SourceStore
	conversations storage.ConversationStore
	vectors       storage.VectorStore
	embedder      ai.Embedder
	model         ai.ChatModel

	manager   *ingestion.Manager
	retriever *search.Retriever
	assembler *chat.Assembler

	resultCount int
	cutoff      float32
	logger      *slog.Logger
}

// ApplicationOption configures an Application.
type ApplicationOption func(*applicationOptions)

type applicationOptions struct {
	embedder       ai.Embedder
	model          ai.ChatModel
	vectors        storage.VectorStore
	store          storage.Store
	resultCount    int
	cutoff         float32
	systemPrompt   string
	batchSize      int
	persistDefault bool
	logger         *slog.Logger
}

// WithEmbedder sets the embedding provider. Required.
func WithEmbedder(embedder ai.Embedder) ApplicationOption {
	return func(o *applicationOptions) { o.embedder = embedder }
}

// WithModel sets the chat model used by Query.
func WithModel(model ai.ChatModel) ApplicationOption {
	return func(o *applicationOptions) { o.model = model }
}

// WithVectorStore sets the vector store. Required.
func WithVectorStore(vectors storage.VectorStore) ApplicationOption {
	return func(o *applicationOptions) { o.vectors = vectors }
}

// WithStore sets the metadata and conversation store.
func WithStore(store storage.Store) ApplicationOption {
	return func(o *applicationOptions) { o.store = store }
}

// WithSearchResultCount sets how many chunks Search and Query return.
func WithSearchResultCount(count int) ApplicationOption {
	return func(o *applicationOptions) { o.resultCount = count }
}

// WithRelevanceCutoff sets the minimum relevance score for retrieval.
func WithRelevanceCutoff(cutoff float32) ApplicationOption {
	return func(o *applicationOptions) { o.cutoff = cutoff }
}

// WithSystemPrompt overrides the default system instruction for Query.
func WithSystemPrompt(prompt string) ApplicationOption {
	return func(o *applicationOptions) { o.systemPrompt = prompt }
}

// WithBatchSize sets the ingestion embedding batch size.
func WithBatchSize(size int) ApplicationOption {
	return func(o *applicationOptions) { o.batchSize = size }
}

// WithDefaultConversation controls whether Query calls that name no
// conversation are recorded in the default conversation. On unless
// disabled here; named conversations are always recorded.
func WithDefaultConversation(persist bool) ApplicationOption {
	return func(o *applicationOptions) { o.persistDefault = persist }
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) ApplicationOption {
	return func(o *applicationOptions) { o.logger = logger }
}

// New creates an Application and initializes the vector store to the
// embedder's dimensionality.
func New(ctx context.Context, opts ...ApplicationOption) (*Application, error) {
	options := &applicationOptions{
		resultCount:    search.DefaultResultCount,
		cutoff:         search.DefaultRelevanceCutoff,
		persistDefault: true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if options.vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	dimensions, err := options.embedder.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if err := options.vectors.Init(ctx, dimensions); err != nil {
		return nil, err
	}

	app := &Application{
		store:       options.store,
		vectors:     options.vectors,
		embedder:    options.embedder,
		model:       options.model,
		resultCount: options.resultCount,
		cutoff:      options.cutoff,
		logger:      options.logger,
	}
	if options.store != nil {
		app.sources = options.store
		app.conversations = options.store
	} else {
		app.sources = nullSourceStore{}
		app.conversations = memory.NewStore()
	}

	managerOpts := []ingestion.Option{ingestion.WithLogger(app.logger)}
	if options.batchSize > 0 {
		managerOpts = append(managerOpts, ingestion.WithBatchSize(options.batchSize))
	}
	app.manager, err = ingestion.NewManager(app.sources, app.vectors, app.embedder, managerOpts...)
	if err != nil {
		return nil, err
	}

	app.retriever, err = search.NewRetriever(app.vectors, app.embedder, search.WithLogger(app.logger))
	if err != nil {
		app.manager.Release()
		return nil, err
	}

	assemblerOpts := []chat.Option{
		chat.WithResultCount(app.resultCount),
		chat.WithRelevanceCutoff(app.cutoff),
		chat.WithDefaultConversation(options.persistDefault),
		chat.WithLogger(app.logger),
	}
	if options.model != nil {
		assemblerOpts = append(assemblerOpts, chat.WithModel(options.model))
	}
	if options.systemPrompt != "" {
		assemblerOpts = append(assemblerOpts, chat.WithSystemPrompt(options.systemPrompt))
	}
	app.assembler, err = chat.NewAssembler(app.conversations, app.retriever, assemblerOpts...)
	if err != nil {
		app.manager.Release()
		return nil, err
	}

	return app, nil
}

// AddSource registers a source. A source already on record is skipped.
func (a *Application) AddSource(ctx context.Context, src source.Source) (*ingestion.AddSourceResult, error) {
	return a.manager.RegisterSource(ctx, src, false)
}

// ReprocessSource registers a source, deleting and rebuilding its data
// if it was processed before.
func (a *Application) ReprocessSource(ctx context.Context, src source.Source) (*ingestion.AddSourceResult, error) {
	return a.manager.RegisterSource(ctx, src, true)
}

// DeleteSource removes a source's embeddings and metadata. Reports
// whether data was removed.
func (a *Application) DeleteSource(ctx context.Context, sourceKey string) (bool, error) {
	return a.manager.DeleteSource(ctx, sourceKey)
}

// Search retrieves the most relevant distinct chunks for a query.
func (a *Application) Search(ctx context.Context, query string) ([]*core.RetrievedChunk, error) {
	return a.retriever.Search(ctx, query, a.resultCount, a.cutoff)
}

// Query answers a user query with the configured chat model, grounded
// on retrieved context and recorded in a conversation.
func (a *Application) Query(ctx context.Context, query string, opts *chat.QueryOptions) (*core.QueryResponse, error) {
	return a.assembler.Answer(ctx, query, opts)
}

// DeleteConversation removes a conversation and its entries.
func (a *Application) DeleteConversation(ctx context.Context, conversationID string) error {
	return a.conversations.DeleteConversation(ctx, conversationID)
}

// Sources lists the processed source records. Empty without a
// configured metadata store.
func (a *Application) Sources(ctx context.Context) ([]*core.SourceRecord, error) {
	return a.sources.GetAllSources(ctx)
}

// EmbeddingsCount returns the number of stored embeddings.
func (a *Application) EmbeddingsCount(ctx context.Context) (int64, error) {
	return a.vectors.Count(ctx)
}

// Reset deletes every embedding and source record. Conversations are
// kept.
func (a *Application) Reset(ctx context.Context) error {
	if err := a.vectors.Reset(ctx); err != nil {
		return err
	}
	records, err := a.sources.GetAllSources(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := a.sources.DeleteSource(ctx, record.UniqueKey); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the update workers and closes the owned stores.
func (a *Application) Close() error {
	a.manager.Release()

	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing store", "err", err)
			firstErr = err
		}
	}
	if err := a.vectors.Close(); err != nil {
		a.logger.Error("error closing vector store", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// nullSourceStore is the degraded bookkeeping used when no metadata
// store is configured: nothing is recorded, so every AddSource call
// reprocesses its source.
type nullSourceStore struct{}

var _ storage.SourceStore = nullSourceStore{}

func (nullSourceStore) AddSource(ctx context.Context, record *core.SourceRecord) error {
	return nil
}

func (nullSourceStore) GetSource(ctx context.Context, uniqueKey string) (*core.SourceRecord, error) {
	return nil, storage.ErrNotFound
}

func (nullSourceStore) HasSource(ctx context.Context, uniqueKey string) (bool, error) {
	return false, nil
}

func (nullSourceStore) GetAllSources(ctx context.Context) ([]*core.SourceRecord, error) {
	return nil, nil
}

func (nullSourceStore) DeleteSource(ctx context.Context, uniqueKey string) error {
	return nil
}

func (nullSourceStore) SetScopedValue(ctx context.Context, sourceKey, key string, value map[string]string) error {
	return nil
}

func (nullSourceStore) GetScopedValue(ctx context.Context, sourceKey, key string) (map[string]string, error) {
	return nil, nil
}

func (nullSourceStore) HasScopedValue(ctx context.Context, sourceKey, key string) (bool, error) {
	return false, nil
}

func (nullSourceStore) DeleteScopedValue(ctx context.Context, sourceKey, key string) error {
	return nil
}

func (nullSourceStore) DeleteScopedValues(ctx context.Context, sourceKey string) error {
	return nil
}
