package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/sqlite/migrations"
)

// Store implements storage.Store on a single SQLite database file.
// Metadata maps and source references are stored as JSON columns.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a SQLite store under the specified data directory.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Source Store ====================

// AddSource stores or replaces a source record.
func (s *Store) AddSource(ctx context.Context, record *core.SourceRecord) error {
	if err := core.ValidateSourceRecord(record); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sources (unique_key, source_type, chunks_processed, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(unique_key) DO UPDATE SET
			source_type = excluded.source_type,
			chunks_processed = excluded.chunks_processed,
			metadata = excluded.metadata
	`, record.UniqueKey, record.SourceType, record.ChunksProcessed, string(metadataJSON))
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// GetSource retrieves a source record by unique key.
func (s *Store) GetSource(ctx context.Context, uniqueKey string) (*core.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT unique_key, source_type, chunks_processed, metadata
		FROM sources WHERE unique_key = ?
	`, uniqueKey)

	return scanSourceRecord(row)
}

// HasSource reports whether a source record exists.
func (s *Store) HasSource(ctx context.Context, uniqueKey string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sources WHERE unique_key = ?", uniqueKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking source: %w", err)
	}
	return count > 0, nil
}

// GetAllSources retrieves every stored source record.
func (s *Store) GetAllSources(ctx context.Context) ([]*core.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unique_key, source_type, chunks_processed, metadata
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var records []*core.SourceRecord
	for rows.Next() {
		var record core.SourceRecord
		var metadataJSON string
		if err := rows.Scan(&record.UniqueKey, &record.SourceType,
			&record.ChunksProcessed, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if err := unmarshalJSONMap(metadataJSON, &record.Metadata); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return records, nil
}

// DeleteSource removes a source record together with its scoped values.
func (s *Store) DeleteSource(ctx context.Context, uniqueKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE unique_key = ?", uniqueKey); err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM scoped_values WHERE source_key = ?", uniqueKey); err != nil {
		return fmt.Errorf("deleting scoped values: %w", err)
	}
	return tx.Commit()
}

// SetScopedValue stores a value scoped to (sourceKey, key).
func (s *Store) SetScopedValue(ctx context.Context, sourceKey, key string, value map[string]string) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshalling scoped value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scoped_values (source_key, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(source_key, key) DO UPDATE SET
			value = excluded.value
	`, sourceKey, key, string(valueJSON))
	if err != nil {
		return fmt.Errorf("saving scoped value: %w", err)
	}
	return nil
}

// GetScopedValue retrieves a scoped value, nil when absent.
func (s *Store) GetScopedValue(ctx context.Context, sourceKey, key string) (map[string]string, error) {
	var valueJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM scoped_values WHERE source_key = ? AND key = ?
	`, sourceKey, key).Scan(&valueJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scoped value: %w", err)
	}

	var value map[string]string
	if err := unmarshalJSONMap(valueJSON, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// HasScopedValue reports whether a scoped value exists.
func (s *Store) HasScopedValue(ctx context.Context, sourceKey, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scoped_values WHERE source_key = ? AND key = ?",
		sourceKey, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking scoped value: %w", err)
	}
	return count > 0, nil
}

// DeleteScopedValue removes a single scoped value.
func (s *Store) DeleteScopedValue(ctx context.Context, sourceKey, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM scoped_values WHERE source_key = ? AND key = ?", sourceKey, key)
	if err != nil {
		return fmt.Errorf("deleting scoped value: %w", err)
	}
	return nil
}

// DeleteScopedValues removes every scoped value of a source.
func (s *Store) DeleteScopedValues(ctx context.Context, sourceKey string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM scoped_values WHERE source_key = ?", sourceKey)
	if err != nil {
		return fmt.Errorf("deleting scoped values: %w", err)
	}
	return nil
}

// ==================== Conversation Store ====================

// AddConversation creates an empty conversation if it does not exist.
func (s *Store) AddConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id) VALUES (?)
		ON CONFLICT(conversation_id) DO NOTHING
	`, conversationID)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation with its entries in append
// order.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*core.Conversation, error) {
	exists, err := s.HasConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, timestamp_micros, actor, content, sources
		FROM conversation_entries
		WHERE conversation_id = ?
		ORDER BY position
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	conversation := &core.Conversation{ConversationID: conversationID}
	for rows.Next() {
		var entry core.Message
		var micros int64
		var actor int
		var sourcesJSON string
		if err := rows.Scan(&entry.ID, &micros, &actor, &entry.Content, &sourcesJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entry.Timestamp = time.UnixMicro(micros).UTC()
		entry.Actor = core.Actor(actor)
		if sourcesJSON != "" && sourcesJSON != "[]" {
			if err := json.Unmarshal([]byte(sourcesJSON), &entry.Sources); err != nil {
				return nil, fmt.Errorf("unmarshaling sources: %w", err)
			}
		}
		conversation.Entries = append(conversation.Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return conversation, nil
}

// HasConversation reports whether a conversation exists.
func (s *Store) HasConversation(ctx context.Context, conversationID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE conversation_id = ?",
		conversationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking conversation: %w", err)
	}
	return count > 0, nil
}

// DeleteConversation removes a conversation and its entries.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// AddEntry appends a message to a conversation.
func (s *Store) AddEntry(ctx context.Context, conversationID string, entry *core.Message) error {
	if err := core.ValidateMessage(entry); err != nil {
		return err
	}

	exists, err := s.HasConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	sourcesJSON, err := json.Marshal(entry.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_entries
			(conversation_id, position, message_id, timestamp_micros, actor, content, sources)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?, ?, ?
		FROM conversation_entries WHERE conversation_id = ?
	`, conversationID, entry.ID, entry.Timestamp.UnixMicro(), int(entry.Actor),
		entry.Content, string(sourcesJSON), conversationID)
	if err != nil {
		return fmt.Errorf("appending entry: %w", err)
	}
	return nil
}

// ClearConversations removes every conversation.
func (s *Store) ClearConversations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clearing conversations: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanSourceRecord scans a single source row.
func scanSourceRecord(row *sql.Row) (*core.SourceRecord, error) {
	var record core.SourceRecord
	var metadataJSON string
	if err := row.Scan(&record.UniqueKey, &record.SourceType,
		&record.ChunksProcessed, &metadataJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	if err := unmarshalJSONMap(metadataJSON, &record.Metadata); err != nil {
		return nil, err
	}
	return &record, nil
}

// unmarshalJSONMap decodes a JSON object column, leaving the map nil
// for empty objects so records round-trip unchanged.
func unmarshalJSONMap(data string, dst *map[string]string) error {
	if data == "" || data == "{}" || data == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return nil
}
