package agent

import (
	"quill/model"
	"quill/storage"
)

// ToRecord converts a session to its on-disk form. The rendered transcript is
// grouped into user-rooted turns; each turn carries the model-native history
// as of its end, and the final turn's snapshot is the one a reload replays.
func ToRecord(s *Session) *storage.SessionRecord {
	messages := s.Messages()
	native := s.Native()

	record := &storage.SessionRecord{
		ID:           s.ID,
		Name:         s.Name,
		Provider:     s.Provider,
		Model:        s.Model,
		SystemPrompt: s.SystemPrompt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}

	for _, m := range messages {
		if m.Streaming() {
			continue
		}
		if m.Role() == model.RoleUser {
			record.Turns = append(record.Turns, storage.TurnRecord{
				ID:          m.ID(),
				UserMessage: toMessageRecord(m),
			})
			continue
		}
		if len(record.Turns) == 0 {
			continue
		}
		turn := &record.Turns[len(record.Turns)-1]
		turn.AssistantMessages = append(turn.AssistantMessages, toMessageRecord(m))
	}

	for i := range record.Turns {
		if i == len(record.Turns)-1 {
			record.Turns[i].ModelMessages = native
		} else {
			record.Turns[i].ModelMessages = truncateNative(native, i+1)
		}
	}

	return record
}

// FromRecord rebuilds an in-memory session from its persisted form. The
// model-native history is taken from the final turn only.
func FromRecord(record *storage.SessionRecord) *Session {
	s := &Session{
		ID:           record.ID,
		Name:         record.Name,
		Provider:     record.Provider,
		Model:        record.Model,
		SystemPrompt: record.SystemPrompt,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}

	for _, turn := range record.Turns {
		if m := fromMessageRecord(turn.UserMessage); m != nil {
			s.messages = append(s.messages, m)
		}
		for _, rec := range turn.AssistantMessages {
			if m := fromMessageRecord(rec); m != nil {
				s.messages = append(s.messages, m)
			}
		}
	}

	if len(record.Turns) > 0 {
		s.native = record.Turns[len(record.Turns)-1].ModelMessages
	}

	return s
}

func toMessageRecord(m model.Message) storage.MessageRecord {
	rec := storage.MessageRecord{
		ID:        m.ID(),
		Role:      string(m.Role()),
		Content:   m.Content(),
		Group:     m.Group(),
		Timestamp: m.Timestamp(),
	}

	switch msg := m.(type) {
	case *model.AssistantMessage:
		rec.Reasoning = msg.Reasoning()
		rec.ToolCalls = msg.ToolCalls()
	case *model.ToolMessage:
		rec.ToolName = msg.ToolName()
		rec.ToolCallID = msg.ToolCallID()
		rec.IsError = msg.IsError()
		rec.ErrorKind = string(msg.ErrorKind())
		rec.Declined = msg.Declined()
	case *model.ErrorMessage:
		rec.Details = msg.Details()
	}

	return rec
}

func fromMessageRecord(rec storage.MessageRecord) model.Message {
	switch model.Role(rec.Role) {
	case model.RoleUser:
		return model.RestoreUserMessage(rec.ID, rec.Content, rec.Group, rec.Timestamp)
	case model.RoleAssistant:
		return model.RestoreAssistantMessage(rec.ID, rec.Content, rec.Reasoning, rec.ToolCalls, rec.Group, rec.Timestamp)
	case model.RoleTool:
		return model.RestoreToolMessage(rec.ID, rec.ToolName, rec.ToolCallID, rec.Content,
			rec.IsError, model.ErrorKind(rec.ErrorKind), rec.Declined, rec.Group, rec.Timestamp)
	case model.RoleError:
		return model.RestoreErrorMessage(rec.ID, rec.Content, rec.Details, rec.Timestamp)
	default:
		// Thinking traces are ephemeral and never round-trip.
		return nil
	}
}
