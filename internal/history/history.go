// Package history provides SQLite-based persistence for chat transcripts.
// If the database cannot be opened the store keeps everything in memory
// for the life of the process instead.
package history

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jmoiron/sqlx"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/logger"
)

const memoryPath = ":memory:"

// ErrNotFound is returned by Session for an id that was never saved.
var ErrNotFound = errors.New("session not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		company_type TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, seq)`,
}

// Store persists sessions and their messages. Messages of one session are
// returned in insertion order.
type Store struct {
	db *sqlx.DB

	mu       sync.Mutex
	messages map[string][]chat.Message // in-memory fallback
	sessions map[string]Session
}

// Open opens (creating if needed) the SQLite database at path. ":memory:"
// gives a private in-process database. On failure it logs a warning and
// returns a memory-only store.
func Open(path string) *Store {
	s := NewMemory()

	db, err := connect(path)
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "path", path, "error", err)
		return s
	}
	s.db = db
	logger.L.Info("sqlite history DB initialized", "path", path)
	return s
}

// NewMemory returns a store that never touches disk.
func NewMemory() *Store {
	return &Store{
		messages: make(map[string][]chat.Message),
		sessions: make(map[string]Session),
	}
}

func connect(path string) (*sqlx.DB, error) {
	dsn := memoryPath + "?_time_format=sqlite"
	if path != memoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(10000)&_time_format=sqlite"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	if path == memoryPath {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return db, nil
}

// Persistent reports whether the store is backed by SQLite.
func (s *Store) Persistent() bool { return s.db != nil }

// SaveSession inserts or updates a session header.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	if s.db == nil {
		s.mu.Lock()
		s.sessions[sess.ID] = sess
		s.mu.Unlock()
		return nil
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sessions (id, kind, status, position, level, company_type, started_at, ended_at)
		VALUES (:id, :kind, :status, :position, :level, :company_type, :started_at, :ended_at)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, ended_at = excluded.ended_at`, sess)
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", sess.ID, err)
	}

	logger.L.Debug("session stored", "id", sess.ID, "status", sess.Status)
	return nil
}

// SaveMessage appends msg to the session's transcript. Saving the same
// message id twice is a no-op.
func (s *Store) SaveMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if slices.ContainsFunc(s.messages[sessionID], func(m chat.Message) bool { return m.ID == msg.ID }) {
			return nil
		}
		s.messages[sessionID] = append(s.messages[sessionID], msg)
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, sessionID, string(msg.Role), msg.Content, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to store message %s: %w", msg.ID, err)
	}

	logger.L.Debug("message stored", "id", msg.ID, "session_id", sessionID, "role", msg.Role)
	return nil
}

// List returns all messages of a session in chronological order.
func (s *Store) List(ctx context.Context, sessionID string) (chat.History, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return chat.History(nil).Append(s.messages[sessionID]...), nil
	}

	var rows []record
	err := s.db.SelectContext(ctx, &rows,
		`SELECT seq, id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages for session %s: %w", sessionID, err)
	}

	out := make(chat.History, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.message())
	}
	return out, nil
}

const sessionColumns = `id, kind, status, position, level, company_type, started_at, ended_at`

// Session returns one stored session header, or ErrNotFound.
func (s *Store) Session(ctx context.Context, id string) (Session, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.sessions[id]
		if !ok {
			return Session{}, ErrNotFound
		}
		return sess, nil
	}

	var sess Session
	err := s.db.GetContext(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return sess, nil
}

// Sessions returns every stored session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	if s.db == nil {
		s.mu.Lock()
		out := make([]Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			out = append(out, sess)
		}
		s.mu.Unlock()
		slices.SortFunc(out, func(a, b Session) int { return cmp.Compare(b.StartedAt.UnixNano(), a.StartedAt.UnixNano()) })
		return out, nil
	}

	out := []Session{}
	if err := s.db.SelectContext(ctx, &out,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC`); err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	return out, nil
}

// Close releases the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
