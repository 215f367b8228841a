package model

import (
	"testing"
)

func TestAssistantMessageLifecycle(t *testing.T) {
	m := NewAssistantMessage("msg_abc123")

	if !m.Streaming() {
		t.Fatal("new assistant message should be streaming")
	}
	if m.ID() != "msg_abc123" {
		t.Errorf("id: got %q, want %q", m.ID(), "msg_abc123")
	}

	m.AppendContent("Hello")
	m.AppendContent(", world")
	m.AppendReasoning("think")
	m.AddToolCall(ToolCall{ID: "t1", Name: "read_file", Args: map[string]any{"path": "a.md"}})

	m.Close()

	if m.Streaming() {
		t.Error("closed message should not be streaming")
	}
	if m.Content() != "Hello, world" {
		t.Errorf("content: got %q", m.Content())
	}
	if m.Reasoning() != "think" {
		t.Errorf("reasoning: got %q", m.Reasoning())
	}
	if len(m.ToolCalls()) != 1 || m.ToolCalls()[0].Name != "read_file" {
		t.Errorf("tool calls: got %+v", m.ToolCalls())
	}
}

func TestAppendAfterClosePanics(t *testing.T) {
	m := NewAssistantMessage("")
	m.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("append after close should panic")
		}
	}()
	m.AppendContent("too late")
}

func TestMatchesNormalizesTurnIDs(t *testing.T) {
	tests := []struct {
		name      string
		messageID string
		deltaID   string
		want      bool
	}{
		{"exact match", "abc123", "abc123", true},
		{"anthropic prefix on delta", "abc123", "msg_abc123", true},
		{"openai prefix on delta", "abc123", "chatcmpl-abc123", true},
		{"prefix on both sides", "msg_abc123", "msg_abc123", true},
		{"empty delta id matches open message", "abc123", "", true},
		{"different turn", "abc123", "msg_def456", false},
		{"whitespace tolerated", "abc123", " abc123 ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAssistantMessage(tt.messageID)
			if got := m.Matches(tt.deltaID); got != tt.want {
				t.Errorf("Matches(%q) on %q: got %v, want %v", tt.deltaID, tt.messageID, got, tt.want)
			}
		})
	}
}

func TestToolMessageOutcomes(t *testing.T) {
	t.Run("result", func(t *testing.T) {
		m := NewToolMessage("read_file", "call_1")
		m.CloseWithResult("file contents")
		if m.Streaming() || m.IsError() || m.Declined() {
			t.Errorf("unexpected state: streaming=%v isError=%v declined=%v", m.Streaming(), m.IsError(), m.Declined())
		}
		if m.Content() != "file contents" {
			t.Errorf("content: got %q", m.Content())
		}
	})

	t.Run("error", func(t *testing.T) {
		m := NewToolMessage("read_file", "call_2")
		m.CloseWithError(ErrorKindNotFound, "no such file", "open a.md: no such file or directory")
		if !m.IsError() {
			t.Error("expected error outcome")
		}
		if m.ErrorKind() != ErrorKindNotFound {
			t.Errorf("kind: got %q", m.ErrorKind())
		}
		if m.Declined() {
			t.Error("an error is not a declined outcome")
		}
	})

	t.Run("declined is not an error", func(t *testing.T) {
		m := NewToolMessage("run_command", "call_3")
		m.CloseDeclined()
		if m.IsError() {
			t.Error("declined must not be reported as a failure")
		}
		if !m.Declined() {
			t.Error("expected declined outcome")
		}
	})
}

func TestUserMessageIsClosedAtCreation(t *testing.T) {
	m := NewUserMessage("hi")
	if m.Streaming() {
		t.Error("user messages never stream")
	}
	if m.ID() == "" {
		t.Error("user message should get a generated id")
	}
}
