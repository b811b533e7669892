package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	t.Run("full prompt shape", func(t *testing.T) {
		request := &QueryRequest{
			System:  "You are a helpful assistant.",
			Query:   "what changed?",
			Context: []string{"chunk one", "chunk two"},
			History: []PromptMessage{
				{Role: RoleHuman, Content: "hi"},
				{Role: RoleAI, Content: "hello"},
			},
		}

		messages := BuildMessages(request)
		require.Len(t, messages, 5)

		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, "You are a helpful assistant.", messages[0].Content)

		assert.Equal(t, RoleSystem, messages[1].Role)
		assert.Contains(t, messages[1].Content, "chunk one")
		assert.Contains(t, messages[1].Content, "chunk two")

		assert.Equal(t, RoleHuman, messages[2].Role)
		assert.Equal(t, "hi", messages[2].Content)
		assert.Equal(t, RoleAI, messages[3].Role)

		// User query is always the final turn
		assert.Equal(t, RoleHuman, messages[4].Role)
		assert.Equal(t, "what changed?", messages[4].Content)
	})

	t.Run("no system text", func(t *testing.T) {
		messages := BuildMessages(&QueryRequest{Query: "q", Context: []string{"c"}})
		require.Len(t, messages, 2)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, RoleHuman, messages[1].Role)
	})

	t.Run("no context", func(t *testing.T) {
		messages := BuildMessages(&QueryRequest{System: "s", Query: "q"})
		require.Len(t, messages, 2)
		assert.Equal(t, "s", messages[0].Content)
		assert.Equal(t, "q", messages[1].Content)
	})

	t.Run("bare query", func(t *testing.T) {
		messages := BuildMessages(&QueryRequest{Query: "q"})
		require.Len(t, messages, 1)
		assert.Equal(t, RoleHuman, messages[0].Role)
	})
}
