// Package sqlite provides a SQLite-backed thread.Store so conversation
// history survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/frostpeakco/floe/pkg/thread"
)

// Store implements thread.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id INTEGER NOT NULL,
		vendor_message_id INTEGER NOT NULL DEFAULT 0,
		request_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		content TEXT NOT NULL,
		citations TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_messages_thread_id ON messages(thread_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Put stores a message. Uses INSERT OR IGNORE so replays of the same
// turn are idempotent.
func (s *Store) Put(ctx context.Context, msg *thread.Message) (bool, error) {
	if msg == nil {
		return false, fmt.Errorf("cannot store nil message")
	}
	if msg.ID == "" {
		return false, fmt.Errorf("cannot store message without id")
	}

	contentJSON, err := json.Marshal(msg.Content)
	if err != nil {
		return false, fmt.Errorf("failed to marshal content: %w", err)
	}

	citationsJSON, err := json.Marshal(msg.Citations)
	if err != nil {
		return false, fmt.Errorf("failed to marshal citations: %w", err)
	}

	query := `INSERT OR IGNORE INTO messages
		(id, thread_id, vendor_message_id, request_id, role, created_at, content, citations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ThreadID, msg.VendorMessageID, msg.RequestID,
		string(msg.Role), msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(contentJSON), string(citationsJSON))
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows > 0, nil
}

// Get retrieves a message by its cache id.
func (s *Store) Get(ctx context.Context, id string) (*thread.Message, error) {
	query := `SELECT id, thread_id, vendor_message_id, request_id, role, created_at, content, citations
		FROM messages WHERE id = ?`

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, thread.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// ListThread returns a thread's messages oldest first.
func (s *Store) ListThread(ctx context.Context, threadID int64) ([]*thread.Message, error) {
	query := `SELECT id, thread_id, vendor_message_id, request_id, role, created_at, content, citations
		FROM messages WHERE thread_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var result []*thread.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}

	return result, rows.Err()
}

// DeleteThread removes all messages for a thread.
func (s *Store) DeleteThread(ctx context.Context, threadID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread messages: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*thread.Message, error) {
	var msg thread.Message
	var role, createdAt, contentJSON, citationsJSON string

	err := row.Scan(&msg.ID, &msg.ThreadID, &msg.VendorMessageID, &msg.RequestID,
		&role, &createdAt, &contentJSON, &citationsJSON)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.Role = thread.Role(role)

	msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if err := json.Unmarshal([]byte(contentJSON), &msg.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}
	if err := json.Unmarshal([]byte(citationsJSON), &msg.Citations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
	}

	return &msg, nil
}
