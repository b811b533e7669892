package ai

import "strings"

// Role tags a prompt message with its author.
type Role string

const (
	// RoleSystem marks system instructions and injected context.
	RoleSystem Role = "system"
	// RoleHuman marks user turns.
	RoleHuman Role = "human"
	// RoleAI marks assistant turns.
	RoleAI Role = "ai"
)

// PromptMessage is one actor-tagged turn of an assembled prompt.
type PromptMessage struct {
	Role    Role
	Content string
}

// BuildMessages assembles the fixed prompt shape every ChatModel
// receives: the system instruction, a system message embedding the
// concatenated context, the conversation history, and the user query
// as the final turn.
//
// Adapters translate these messages into their provider's native
// message types without reordering them.
func BuildMessages(request *QueryRequest) []PromptMessage {
	messages := make([]PromptMessage, 0, len(request.History)+3)

	if request.System != "" {
		messages = append(messages, PromptMessage{Role: RoleSystem, Content: request.System})
	}
	if len(request.Context) > 0 {
		messages = append(messages, PromptMessage{
			Role:    RoleSystem,
			Content: "Supporting context:\n" + strings.Join(request.Context, "\n"),
		})
	}
	messages = append(messages, request.History...)
	messages = append(messages, PromptMessage{Role: RoleHuman, Content: request.Query})

	return messages
}
