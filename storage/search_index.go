package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SearchMatch is one cross-session search hit.
type SearchMatch struct {
	SessionID   string
	SessionName string
	TurnID      string
	Role        string
	Content     string
	Preview     string
	Timestamp   time.Time
}

// SearchIndex maintains a sqlite table of message text across all sessions.
// It is rebuilt per session on every save, so it never drifts from the JSON
// files it mirrors.
type SearchIndex struct {
	db *sql.DB
}

// NewSearchIndex opens (and if needed creates) the search database under
// the data directory.
func NewSearchIndex(dataDir string) (*SearchIndex, error) {
	dbPath := filepath.Join(dataDir, "search.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open search database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping search database: %w", err)
	}

	index := &SearchIndex{db: db}
	if err := index.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize search database: %w", err)
	}
	return index, nil
}

func (si *SearchIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		session_name TEXT NOT NULL,
		turn_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	`
	_, err := si.db.Exec(schema)
	return err
}

// ReindexSession replaces the indexed rows for one session with the current
// record contents. Only user and assistant text is indexed.
func (si *SearchIndex) ReindexSession(record *SessionRecord) error {
	tx, err := si.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, record.ID); err != nil {
		return fmt.Errorf("failed to clear session rows: %w", err)
	}

	insert := `INSERT INTO messages (session_id, session_name, turn_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	for _, turn := range record.Turns {
		if turn.UserMessage.Content != "" {
			if _, err := tx.Exec(insert, record.ID, record.Name, turn.ID,
				turn.UserMessage.Role, turn.UserMessage.Content, turn.UserMessage.Timestamp); err != nil {
				return fmt.Errorf("failed to index message: %w", err)
			}
		}
		for _, msg := range turn.AssistantMessages {
			if msg.Content == "" || msg.Role != "assistant" {
				continue
			}
			if _, err := tx.Exec(insert, record.ID, record.Name, turn.ID,
				msg.Role, msg.Content, msg.Timestamp); err != nil {
				return fmt.Errorf("failed to index message: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session's rows from the index.
func (si *SearchIndex) DeleteSession(sessionID string) error {
	_, err := si.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

// Search returns up to limit matches across all sessions, newest first.
// Matching is a case-insensitive substring scan.
func (si *SearchIndex) Search(query string, limit int) ([]SearchMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := si.db.Query(`
		SELECT session_id, session_name, turn_id, role, content, created_at
		FROM messages
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var m SearchMatch
		if err := rows.Scan(&m.SessionID, &m.SessionName, &m.TurnID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			continue
		}
		m.Preview = preview(m.Content)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Close releases the database handle.
func (si *SearchIndex) Close() error {
	if si.db != nil {
		return si.db.Close()
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return content
}
