package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// AddSource stores a source record, replacing any existing record with
// the same unique key.
func (s *Store) AddSource(ctx context.Context, record *core.SourceRecord) error {
	if err := core.ValidateSourceRecord(record); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(record.UniqueKey)
		if err := tx.Set(key, storage.MarshalSourceRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSource retrieves a source record by unique key.
func (s *Store) GetSource(ctx context.Context, uniqueKey string) (*core.SourceRecord, error) {
	var result *core.SourceRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSourceRecord(tx, makeSourceKey(uniqueKey))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// HasSource reports whether a source record exists.
func (s *Store) HasSource(ctx context.Context, uniqueKey string) (bool, error) {
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeSourceKey(uniqueKey))
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

// GetAllSources retrieves every stored source record.
func (s *Store) GetAllSources(ctx context.Context) ([]*core.SourceRecord, error) {
	var results []*core.SourceRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourceRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.SourceRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalSourceRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)
	return results, err
}

// DeleteSource removes a source record together with its scoped values.
func (s *Store) DeleteSource(ctx context.Context, uniqueKey string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeSourceKey(uniqueKey)); err != nil {
			return err
		}
		if err := deleteByPrefix(tx, makeScopedValuePrefix(uniqueKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SetScopedValue stores a value scoped to (sourceKey, key).
func (s *Store) SetScopedValue(ctx context.Context, sourceKey, key string, value map[string]string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		scopedKey := makeScopedValueKey(sourceKey, key)
		if err := tx.Set(scopedKey, storage.MarshalStringMap(value)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetScopedValue retrieves a scoped value, nil when absent.
func (s *Store) GetScopedValue(ctx context.Context, sourceKey, key string) (map[string]string, error) {
	var result map[string]string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeScopedValueKey(sourceKey, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalStringMap(val)
			return err
		})
	}, false)
	return result, err
}

// HasScopedValue reports whether a scoped value exists.
func (s *Store) HasScopedValue(ctx context.Context, sourceKey, key string) (bool, error) {
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeScopedValueKey(sourceKey, key))
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

// DeleteScopedValue removes a single scoped value.
func (s *Store) DeleteScopedValue(ctx context.Context, sourceKey, key string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeScopedValueKey(sourceKey, key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteScopedValues removes every scoped value of a source.
func (s *Store) DeleteScopedValues(ctx context.Context, sourceKey string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteByPrefix(tx, makeScopedValuePrefix(sourceKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Helper methods

// readSourceRecord reads a source record from the transaction.
// Returns nil without error when the key is absent.
func readSourceRecord(tx *badger.Txn, key []byte) (*core.SourceRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.SourceRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalSourceRecord(val)
		return unmarshalErr
	})
	return record, err
}

// deleteByPrefix deletes every key under a prefix within the
// transaction. Keys are collected first since badger forbids writes
// while an iterator is open.
func deleteByPrefix(tx *badger.Txn, prefix []byte) error {
	var keys [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, slices.Clone(iter.Item().Key()))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
