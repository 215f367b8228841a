// Package agent owns the conversation state machine: the session (rendered
// transcript plus model-native history), the orchestration loop that drives
// model calls and tool execution, and the sub-agent delegate.
package agent

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"quill/config"
	"quill/model"
)

// Session owns one conversation: the rendered Message transcript, the
// parallel model-native history replayed to providers, the loading flag and
// the cancellation handle for the outstanding query. The transcript is
// append-only; undo truncates, it never mutates messages in place.
//
// A session is owned by exactly one Loop. External callers mutate it only
// through this API; that is the invariant that keeps undo and
// native-history sync correct.
type Session struct {
	mu sync.Mutex

	ID           string
	Name         string
	Provider     string
	Model        string
	SystemPrompt string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	messages []model.Message
	native   []model.ChatMessage
	loading  bool
	cancel   context.CancelFunc
}

// NewSession creates an empty session for the given provider and model.
func NewSession(providerID, modelName string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Provider:  providerID,
		Model:     modelName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a closed or streaming message to the rendered
// transcript.
func (s *Session) AddMessage(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	s.UpdatedAt = time.Now()
}

// AppendNative appends one entry to the model-native history.
func (s *Session) AppendNative(m model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.native = append(s.native, m)
}

// Messages returns a copy of the rendered transcript.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Native returns a copy of the model-native history.
func (s *Session) Native() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.native))
	copy(out, s.native)
	return out
}

// Len returns the rendered transcript length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Session) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// BindCancel installs the cancellation handle for the outstanding query.
func (s *Session) BindCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Cancel aborts the outstanding query, if any. Pending confirmation waits
// resolve as implicit rejections and the loading flag clears once the loop
// unwinds.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// UndoToMessage rewinds the session to just before the message with the
// given id. Reversible side effects recorded at or after that point are
// restored first, newest to oldest, so a failure partway through leaves
// later-created files untouched rather than partially reverted. Both
// histories are then truncated consistently, any outstanding query is
// cancelled, and the loading flag clears. Unknown ids are a no-op.
func (s *Session) UndoToMessage(id string) error {
	s.mu.Lock()

	idx := -1
	for i, m := range s.messages {
		if m.ID() == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return nil
	}

	// Restore snapshots before touching any in-memory state.
	for i := len(s.messages) - 1; i >= idx; i-- {
		tool, ok := s.messages[i].(*model.ToolMessage)
		if !ok || tool.Snapshot() == nil {
			continue
		}
		if err := restoreSnapshot(tool.Snapshot()); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("undo aborted at %s: %w", tool.ID(), err)
		}
	}

	keptUsers := 0
	for _, m := range s.messages[:idx] {
		if m.Role() == model.RoleUser {
			keptUsers++
		}
	}

	s.messages = s.messages[:idx]
	s.native = truncateNative(s.native, keptUsers)
	s.loading = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Session] Undo to %s: %d messages, %d user turns kept", id, idx, keptUsers)
	}

	return nil
}

// truncateNative keeps exactly keptUsers leading user-rooted turns: entries
// are retained until one past the keptUsers-th user message would begin.
func truncateNative(native []model.ChatMessage, keptUsers int) []model.ChatMessage {
	seen := 0
	for i, m := range native {
		if m.Role == model.RoleUser {
			seen++
			if seen > keptUsers {
				return native[:i]
			}
		}
	}
	return native
}

func restoreSnapshot(snap *model.Snapshot) error {
	if !snap.Existed {
		err := os.Remove(snap.Path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", snap.Path, err)
		}
		return nil
	}
	if err := os.WriteFile(snap.Path, []byte(snap.PriorContent), 0644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", snap.Path, err)
	}
	return nil
}
