package memory

import (
	"context"
	"sync"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Store implements storage.Store entirely in process memory. Useful
// for tests and for throwaway pipelines that do not need persistence.
type Store struct {
	mu            sync.RWMutex
	sources       map[string]*core.SourceRecord
	scopedValues  map[string]map[string]map[string]string
	conversations map[string][]*core.Message
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory metadata store.
func NewStore() *Store {
	return &Store{
		sources:       make(map[string]*core.SourceRecord),
		scopedValues:  make(map[string]map[string]map[string]string),
		conversations: make(map[string][]*core.Message),
	}
}

func (s *Store) AddSource(ctx context.Context, record *core.SourceRecord) error {
	if err := core.ValidateSourceRecord(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.sources[record.UniqueKey] = &clone
	return nil
}

func (s *Store) GetSource(ctx context.Context, uniqueKey string) (*core.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sources[uniqueKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *Store) HasSource(ctx context.Context, uniqueKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[uniqueKey]
	return ok, nil
}

func (s *Store) GetAllSources(ctx context.Context) ([]*core.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*core.SourceRecord, 0, len(s.sources))
	for _, record := range s.sources {
		clone := *record
		records = append(records, &clone)
	}
	return records, nil
}

func (s *Store) DeleteSource(ctx context.Context, uniqueKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, uniqueKey)
	delete(s.scopedValues, uniqueKey)
	return nil
}

func (s *Store) SetScopedValue(ctx context.Context, sourceKey, key string, value map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.scopedValues[sourceKey]
	if !ok {
		values = make(map[string]map[string]string)
		s.scopedValues[sourceKey] = values
	}
	clone := make(map[string]string, len(value))
	for k, v := range value {
		clone[k] = v
	}
	values[key] = clone
	return nil
}

func (s *Store) GetScopedValue(ctx context.Context, sourceKey, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.scopedValues[sourceKey][key]
	if !ok {
		return nil, nil
	}
	clone := make(map[string]string, len(value))
	for k, v := range value {
		clone[k] = v
	}
	return clone, nil
}

func (s *Store) HasScopedValue(ctx context.Context, sourceKey, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scopedValues[sourceKey][key]
	return ok, nil
}

func (s *Store) DeleteScopedValue(ctx context.Context, sourceKey, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopedValues[sourceKey], key)
	return nil
}

func (s *Store) DeleteScopedValues(ctx context.Context, sourceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopedValues, sourceKey)
	return nil
}

func (s *Store) AddConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		s.conversations[conversationID] = nil
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.conversations[conversationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	conversation := &core.Conversation{ConversationID: conversationID}
	for _, entry := range entries {
		conversation.Entries = append(conversation.Entries, *entry)
	}
	return conversation, nil
}

func (s *Store) HasConversation(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[conversationID]
	return ok, nil
}

func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

func (s *Store) AddEntry(ctx context.Context, conversationID string, entry *core.Message) error {
	if err := core.ValidateMessage(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return storage.ErrNotFound
	}
	clone := *entry
	s.conversations[conversationID] = append(s.conversations[conversationID], &clone)
	return nil
}

func (s *Store) ClearConversations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string][]*core.Message)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
