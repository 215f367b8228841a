package agent

import (
	"testing"

	"quill/model"
)

func persistableSession() *Session {
	session := NewSession("anthropic", "claude-sonnet-4-5")
	session.Name = "rename helper"

	user1 := model.NewUserMessage("rename the helper")
	session.AddMessage(user1)
	session.AppendNative(model.ChatMessage{Role: model.RoleUser, Content: "rename the helper"})

	asst1 := model.NewAssistantMessage("turn-1")
	asst1.AppendContent("Renaming it now.")
	asst1.AddToolCall(model.ToolCall{ID: "call_1", Name: "edit_file", Args: map[string]any{"path": "a.go"}})
	asst1.Close()
	session.AddMessage(asst1)
	session.AppendNative(model.ChatMessage{
		Role: model.RoleAssistant, Content: "Renaming it now.",
		ToolCalls: []model.ToolCall{{ID: "call_1", Name: "edit_file", Args: map[string]any{"path": "a.go"}}},
	})

	tool := model.NewToolMessage("edit_file", "call_1")
	tool.CloseWithResult("edited a.go")
	session.AddMessage(tool)
	session.AppendNative(model.ChatMessage{Role: model.RoleTool, Content: "edited a.go", ToolCallID: "call_1", ToolName: "edit_file"})

	user2 := model.NewUserMessage("thanks, also update the docs")
	session.AddMessage(user2)
	session.AppendNative(model.ChatMessage{Role: model.RoleUser, Content: "thanks, also update the docs"})

	asst2 := model.NewAssistantMessage("turn-2")
	asst2.AppendContent("Docs updated.")
	asst2.Close()
	session.AddMessage(asst2)
	session.AppendNative(model.ChatMessage{Role: model.RoleAssistant, Content: "Docs updated."})

	return session
}

func TestToRecordGroupsTurns(t *testing.T) {
	record := ToRecord(persistableSession())

	if len(record.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(record.Turns))
	}

	first := record.Turns[0]
	if first.UserMessage.Content != "rename the helper" {
		t.Errorf("first user message: %q", first.UserMessage.Content)
	}
	if len(first.AssistantMessages) != 2 {
		t.Fatalf("first turn responses: %d, want 2", len(first.AssistantMessages))
	}
	if first.AssistantMessages[0].ToolCalls[0].ID != "call_1" {
		t.Errorf("tool call: %+v", first.AssistantMessages[0].ToolCalls)
	}
	if first.AssistantMessages[1].ToolCallID != "call_1" {
		t.Errorf("tool result correlation: %+v", first.AssistantMessages[1])
	}

	// Turn snapshots are cumulative: the first turn's native history stops
	// before the second user message, the last turn's holds everything.
	if len(first.ModelMessages) != 3 {
		t.Errorf("first turn native snapshot: %d entries, want 3", len(first.ModelMessages))
	}
	if len(record.Turns[1].ModelMessages) != 5 {
		t.Errorf("final turn native snapshot: %d entries, want 5", len(record.Turns[1].ModelMessages))
	}
}

func TestRecordRoundTrip(t *testing.T) {
	original := persistableSession()
	restored := FromRecord(ToRecord(original))

	if restored.ID != original.ID || restored.Name != "rename helper" {
		t.Errorf("identity: %s %q", restored.ID, restored.Name)
	}

	origMsgs := original.Messages()
	msgs := restored.Messages()
	if len(msgs) != len(origMsgs) {
		t.Fatalf("transcript length %d, want %d", len(msgs), len(origMsgs))
	}
	for i := range msgs {
		if msgs[i].ID() != origMsgs[i].ID() {
			t.Errorf("message %d id %q, want %q", i, msgs[i].ID(), origMsgs[i].ID())
		}
		if msgs[i].Role() != origMsgs[i].Role() {
			t.Errorf("message %d role %q, want %q", i, msgs[i].Role(), origMsgs[i].Role())
		}
		if msgs[i].Streaming() {
			t.Errorf("message %d restored as streaming", i)
		}
	}

	asst, ok := msgs[1].(*model.AssistantMessage)
	if !ok || len(asst.ToolCalls()) != 1 {
		t.Fatalf("restored assistant: %+v", msgs[1])
	}
	tool, ok := msgs[2].(*model.ToolMessage)
	if !ok || tool.ToolCallID() != "call_1" || tool.ToolName() != "edit_file" {
		t.Fatalf("restored tool message: %+v", msgs[2])
	}

	// Native history comes from the final turn only.
	native := restored.Native()
	if len(native) != 5 {
		t.Fatalf("native history: %d entries, want 5", len(native))
	}
	if native[4].Content != "Docs updated." {
		t.Errorf("last native entry: %+v", native[4])
	}
}

func TestToRecordSkipsStreamingMessages(t *testing.T) {
	session := persistableSession()
	open := model.NewAssistantMessage("turn-3")
	open.AppendContent("half an ans")
	session.AddMessage(open)

	record := ToRecord(session)
	last := record.Turns[len(record.Turns)-1]
	if len(last.AssistantMessages) != 1 {
		t.Errorf("streaming message persisted: %+v", last.AssistantMessages)
	}
}

func TestErrorMessageRoundTripKeepsDetails(t *testing.T) {
	session := persistableSession()
	session.AddMessage(model.NewErrorMessage("provider stream failed", "connection reset by peer"))

	restored := FromRecord(ToRecord(session))
	msgs := restored.Messages()
	last, ok := msgs[len(msgs)-1].(*model.ErrorMessage)
	if !ok {
		t.Fatalf("last restored message: %+v", msgs[len(msgs)-1])
	}
	if last.Content() != "provider stream failed" {
		t.Errorf("summary: %q", last.Content())
	}
	if last.Details() != "connection reset by peer" {
		t.Errorf("details: %q", last.Details())
	}
}

func TestRestoredSessionSupportsUndo(t *testing.T) {
	restored := FromRecord(ToRecord(persistableSession()))

	msgs := restored.Messages()
	secondUser := msgs[3]
	if err := restored.UndoToMessage(secondUser.ID()); err != nil {
		t.Fatal(err)
	}

	if restored.Len() != 3 {
		t.Errorf("transcript after undo: %d messages, want 3", restored.Len())
	}
	if got := len(restored.Native()); got != 3 {
		t.Errorf("native after undo: %d entries, want 3", got)
	}
}
