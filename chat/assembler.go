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

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
)

// DefaultConversationID is used when a query names no conversation.
const DefaultConversationID = "default"

// DefaultSystemPrompt instructs the model to answer from the supplied
// context only.
const DefaultSystemPrompt = "You are a helpful assistant. Answer the user's question using only the supporting context provided. If the context does not contain the answer, say you do not know."

// Assembler turns a user query into a grounded answer. It retrieves
// supporting chunks, assembles the prompt with conversation history,
// invokes the chat model, and records both turns in the conversation
// store.
type Assembler struct {
	conversations storage.ConversationStore
	retriever     *search.Retriever
	model         ai.ChatModel
	systemPrompt   string
	resultCount    int
	cutoff         float32
	persistDefault bool
	logger         *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithModel sets the chat model used to generate answers. Without a
// model the assembler can still store conversations, but Answer fails.
func WithModel(model ai.ChatModel) Option {
	return func(a *Assembler) error {
		a.model = model
		return nil
	}
}

// WithSystemPrompt overrides the default system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assembler) error {
		a.systemPrompt = prompt
		return nil
	}
}

// WithResultCount sets how many chunks are retrieved per answer.
func WithResultCount(count int) Option {
	return func(a *Assembler) error {
		if count < 1 {
			return fmt.Errorf("result count must be positive, got %d", count)
		}
		a.resultCount = count
		return nil
	}
}

// WithRelevanceCutoff sets the minimum relevance score for retrieved
// chunks.
func WithRelevanceCutoff(cutoff float32) Option {
	return func(a *Assembler) error {
		a.cutoff = cutoff
		return nil
	}
}

// WithDefaultConversation controls whether queries that name no
// conversation are recorded in the default conversation. Persistence
// is on unless disabled here; explicitly named conversations are
// always recorded.
func WithDefaultConversation(persist bool) Option {
	return func(a *Assembler) error {
		a.persistDefault = persist
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		a.logger = logger
		return nil
	}
}

// NewAssembler creates an assembler over the given conversation store
// and retriever.
func NewAssembler(conversations storage.ConversationStore, retriever *search.Retriever, opts ...Option) (*Assembler, error) {
	if conversations == nil {
		return nil, ErrConversationStoreRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}

	assembler := &Assembler{
		conversations:  conversations,
		retriever:      retriever,
		systemPrompt:   DefaultSystemPrompt,
		resultCount:    search.DefaultResultCount,
		cutoff:         search.DefaultRelevanceCutoff,
		persistDefault: true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(assembler); err != nil {
			return nil, err
		}
	}
	assembler.logger = assembler.logger.With("component", "chat")
	return assembler, nil
}

// QueryOptions adjust a single Answer call.
type QueryOptions struct {
	// ConversationID selects the conversation to append to. Empty
	// selects the default conversation.
	ConversationID string

	// CustomContext, when non-nil, is used as the supporting context
	// instead of running retrieval. An empty non-nil slice means
	// "answer with no context".
	CustomContext []*core.RetrievedChunk
}

// Answer resolves a user query into a generated response. The human
// turn and the AI turn are both appended to the conversation; the
// history sent to the model excludes the current query. When default
// persistence is disabled and no conversation is named, the query is
// answered statelessly and nothing is recorded.
func (a *Assembler) Answer(ctx context.Context, query string, opts *QueryOptions) (*core.QueryResponse, error) {
	if a.model == nil {
		return nil, ErrModelNotSet
	}
	if core.CleanQuery(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts == nil {
		opts = &QueryOptions{}
	}
	conversationID := opts.ConversationID
	persist := conversationID != "" || a.persistDefault
	if conversationID == "" {
		conversationID = DefaultConversationID
	}

	var history []ai.PromptMessage
	if persist {
		if err := a.conversations.AddConversation(ctx, conversationID); err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
		conversation, err := a.conversations.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("loading conversation: %w", err)
		}
		history = promptHistory(conversation.Entries)

		humanTurn := &core.Message{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Actor:     core.ActorHuman,
			Content:   query,
		}
		if err := a.conversations.AddEntry(ctx, conversationID, humanTurn); err != nil {
			return nil, fmt.Errorf("recording query: %w", err)
		}
	}

	chunks := opts.CustomContext
	if chunks == nil {
		var err error
		chunks, err = a.retriever.Retrieve(ctx, query, a.resultCount, a.cutoff)
		if err != nil {
			return nil, fmt.Errorf("retrieving context: %w", err)
		}
	}

	contexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		contexts[i] = chunk.PageContent
	}

	reply, err := a.model.Query(ctx, &ai.QueryRequest{
		System:  a.systemPrompt,
		Query:   query,
		Context: contexts,
		History: history,
	})
	if err != nil {
		return nil, fmt.Errorf("querying model: %w", err)
	}

	aiTurn := &core.Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Actor:     core.ActorAI,
		Content:   reply.Content,
		Sources:   uniqueSources(chunks),
	}
	if persist {
		if err := a.conversations.AddEntry(ctx, conversationID, aiTurn); err != nil {
			return nil, fmt.Errorf("recording answer: %w", err)
		}
	}

	a.logger.Debug("query answered",
		"conversation", conversationID,
		"contextChunks", len(chunks),
		"inputTokens", tokenCount(reply.InputTokens).String(),
		"outputTokens", tokenCount(reply.OutputTokens).String())

	return &core.QueryResponse{
		ID:        aiTurn.ID,
		Timestamp: aiTurn.Timestamp,
		Content:   aiTurn.Content,
		Sources:   aiTurn.Sources,
		TokenUse: core.TokenUsage{
			InputTokens:  tokenCount(reply.InputTokens),
			OutputTokens: tokenCount(reply.OutputTokens),
		},
	}, nil
}

// promptHistory maps stored conversation turns onto prompt messages.
func promptHistory(entries []core.Message) []ai.PromptMessage {
	if len(entries) == 0 {
		return nil
	}
	history := make([]ai.PromptMessage, 0, len(entries))
	for _, entry := range entries {
		history = append(history, ai.PromptMessage{
			Role:    promptRole(entry.Actor),
			Content: entry.Content,
		})
	}
	return history
}

func promptRole(actor core.Actor) ai.Role {
	switch actor {
	case core.ActorAI:
		return ai.RoleAI
	case core.ActorSystem:
		return ai.RoleSystem
	default:
		return ai.RoleHuman
	}
}

// uniqueSources collects the distinct sources behind the retrieved
// chunks, in first-seen order.
func uniqueSources(chunks []*core.RetrievedChunk) []core.SourceRef {
	var refs []core.SourceRef
	seen := make(map[core.SourceRef]struct{})
	for _, chunk := range chunks {
		ref := core.SourceRef{
			Source:    chunk.Metadata["source"],
			SourceKey: chunk.Metadata["sourceKey"],
		}
		if ref == (core.SourceRef{}) {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// tokenCount normalizes a model-reported counter, mapping unreported
// (negative) values to TokenCountUnknown.
func tokenCount(n int) core.TokenCount {
	if n < 0 {
		return core.TokenCountUnknown
	}
	return core.TokenCount(n)
}
