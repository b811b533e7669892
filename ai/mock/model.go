package mock

import (
	"context"

	"github.com/poiesic/recall/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// It records the requests it receives and returns a canned reply.
type MockChatModel struct {
	// QueryFunc is called by Query if set.
	// If nil, returns Reply (or a default echo reply).
	QueryFunc func(ctx context.Context, request *ai.QueryRequest) (*ai.ModelReply, error)

	// Reply is returned by Query when QueryFunc is nil.
	Reply *ai.ModelReply

	callCount int
	requests  []*ai.QueryRequest
}

// NewMockChatModel creates a mock chat model with default echo behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Query records the request and returns the configured reply.
func (m *MockChatModel) Query(ctx context.Context, request *ai.QueryRequest) (*ai.ModelReply, error) {
	m.callCount++
	m.requests = append(m.requests, request)

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, request)
	}
	if m.Reply != nil {
		return m.Reply, nil
	}

	return &ai.ModelReply{
		Content:      "mock answer: " + request.Query,
		InputTokens:  ai.TokensUnknown,
		OutputTokens: ai.TokensUnknown,
	}, nil
}

// CallCount returns the number of times Query was called.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}

// LastRequest returns the most recent request, or nil when none were made.
func (m *MockChatModel) LastRequest() *ai.QueryRequest {
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears the call records and injected behavior.
func (m *MockChatModel) Reset() {
	m.callCount = 0
	m.requests = nil
	m.QueryFunc = nil
	m.Reply = nil
}
