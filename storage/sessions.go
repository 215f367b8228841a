// Package storage persists sessions as turn-oriented JSON files under the
// data directory and maintains a sqlite index for cross-session search.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quill/model"
)

// MessageRecord is one rendered transcript entry in persisted form.
type MessageRecord struct {
	ID         string           `json:"id"`
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Reasoning  string           `json:"reasoning,omitempty"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	ToolName   string           `json:"tool_name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	IsError    bool             `json:"is_error,omitempty"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	Details    string           `json:"details,omitempty"`
	Declined   bool             `json:"declined,omitempty"`
	Group      string           `json:"group,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// TurnRecord is one user-rooted turn: the user message, everything rendered
// in response to it, and the cumulative model-native history as of the end
// of the turn. On load only the final turn's ModelMessages matter; earlier
// snapshots exist so an undone session file stays self-consistent.
type TurnRecord struct {
	ID                string              `json:"id"`
	UserMessage       MessageRecord       `json:"user_message"`
	AssistantMessages []MessageRecord     `json:"assistant_messages"`
	ModelMessages     []model.ChatMessage `json:"model_messages"`
}

// SessionRecord is the on-disk form of a session.
type SessionRecord struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Provider     string       `json:"provider"`
	Model        string       `json:"model"`
	SystemPrompt string       `json:"system_prompt,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Turns        []TurnRecord `json:"turns"`
}

// SessionMetadata is a lightweight version of SessionRecord for listing.
type SessionMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// SessionStorage handles session persistence.
type SessionStorage struct {
	sessionsDir string
}

// NewSessionStorage creates the sessions directory if needed (0700,
// user-only access).
func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	sessionsDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &SessionStorage{sessionsDir: sessionsDir}, nil
}

// Save writes a session record atomically. Session files contain full
// conversation history, hence 0600.
func (s *SessionStorage) Save(record *SessionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := s.path(record.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit session file: %w", err)
	}
	return nil
}

// Load reads one session record.
func (s *SessionStorage) Load(id string) (*SessionRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &record, nil
}

// List returns metadata for all sessions, newest first. Corrupted files are
// skipped rather than failing the whole listing.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []SessionMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}
		var record SessionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}

		sessions = append(sessions, SessionMetadata{
			ID:        record.ID,
			Name:      record.Name,
			Provider:  record.Provider,
			Model:     record.Model,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
			TurnCount: len(record.Turns),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Rename updates the display name of a session.
func (s *SessionStorage) Rename(id, newName string) error {
	record, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	record.Name = newName
	return s.Save(record)
}

// Delete removes a session file.
func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// SaveCurrentSessionID records which session to reopen on next start.
func (s *SessionStorage) SaveCurrentSessionID(id string) error {
	path := filepath.Join(filepath.Dir(s.sessionsDir), "current_session.id")
	return os.WriteFile(path, []byte(id), 0600)
}

// LoadCurrentSessionID returns the last active session id, if any.
func (s *SessionStorage) LoadCurrentSessionID() (string, error) {
	path := filepath.Join(filepath.Dir(s.sessionsDir), "current_session.id")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *SessionStorage) path(id string) string {
	return filepath.Join(s.sessionsDir, id+".json")
}
