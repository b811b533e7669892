package badger

import (
	"context"
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Conversation records store the entry count; entries live under their
// own composite keys so retrieval iterates them in append order.

// AddConversation creates an empty conversation if it does not exist.
func (s *Store) AddConversation(ctx context.Context, conversationID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conversationID)
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := tx.Set(key, encodeEntryCount(0)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetConversation retrieves a conversation with its entries in append
// order.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*core.Conversation, error) {
	var result *core.Conversation
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeConversationKey(conversationID)); err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		} else if err != nil {
			return err
		}

		conversation := &core.Conversation{ConversationID: conversationID}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeConvEntryPrefix(conversationID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			conversation.Entries = append(conversation.Entries, *entry)
		}

		result = conversation
		return nil
	}, false)
	return result, err
}

// HasConversation reports whether a conversation exists.
func (s *Store) HasConversation(ctx context.Context, conversationID string) (bool, error) {
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeConversationKey(conversationID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// DeleteConversation removes a conversation and its entries.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeConversationKey(conversationID)); err != nil {
			return err
		}
		if err := deleteByPrefix(tx, makeConvEntryPrefix(conversationID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AddEntry appends a message to a conversation.
func (s *Store) AddEntry(ctx context.Context, conversationID string, entry *core.Message) error {
	if err := core.ValidateMessage(entry); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conversationID)
		item, err := tx.Get(key)
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		var count uint64
		if err := item.Value(func(val []byte) error {
			count = decodeEntryCount(val)
			return nil
		}); err != nil {
			return err
		}

		entryKey := makeConvEntryKey(conversationID, count)
		if err := tx.Set(entryKey, storage.MarshalMessage(entry)); err != nil {
			return err
		}
		if err := tx.Set(key, encodeEntryCount(count+1)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ClearConversations removes every conversation.
func (s *Store) ClearConversations(ctx context.Context) error {
	return s.backend.DropPrefix(
		[]byte(conversationPrefix+":"),
		[]byte(convEntryPrefix+":"),
	)
}

func encodeEntryCount(count uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return buf
}

func decodeEntryCount(val []byte) uint64 {
	if len(val) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(val)
}
