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


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newChatModel is an internal constructor that returns the concrete type.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// Query invokes the chat model with the assembled prompt.
func (m *ChatModel) Query(ctx context.Context, request *ai.QueryRequest) (*ai.ModelReply, error) {
	messages := ai.BuildMessages(request)

	content := make([]llms.MessageContent, 0, len(messages))
	for _, message := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatMessageType(message.Role),
			Parts: []llms.ContentPart{llms.TextPart(message.Content)},
		})
	}

	m.logger.Debug("executing chat model", "turns", len(content), "context", len(request.Context))
	response, err := m.client.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		m.logger.Warn("no choices returned from model")
		return &ai.ModelReply{
			InputTokens:  ai.TokensUnknown,
			OutputTokens: ai.TokensUnknown,
		}, nil
	}

	choice := response.Choices[0]
	reply := &ai.ModelReply{
		Content:      choice.Content,
		InputTokens:  tokenCount(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: tokenCount(choice.GenerationInfo, "CompletionTokens"),
	}

	return reply, nil
}

// chatMessageType maps prompt roles to langchaingo message types.
func chatMessageType(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAI:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// tokenCount extracts a usage counter from generation info.
// Returns ai.TokensUnknown when the backend did not report it.
func tokenCount(info map[string]any, key string) int {
	if info == nil {
		return ai.TokensUnknown
	}
	if value, ok := info[key].(int); ok {
		return value
	}
	return ai.TokensUnknown
}
