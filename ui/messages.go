package ui

import (
	"time"

	"quill/model"
	"quill/storage"
	"quill/tools"
)

// entry is an immutable render snapshot of one transcript message. The loop
// mutates messages in place on its own goroutine, so the emit bridge copies
// everything the renderer needs before handing it to the program.
type entry struct {
	id        string
	role      model.Role
	content   string
	reasoning string
	rendered  string // markdown-rendered content, filled in asynchronously
	streaming bool
	group     string
	timestamp time.Time

	toolName string
	proposal string
	isError  bool
	declined bool
	details  string
}

func snapshotMessage(m model.Message) entry {
	e := entry{
		id:        m.ID(),
		role:      m.Role(),
		content:   m.Content(),
		streaming: m.Streaming(),
		group:     m.Group(),
		timestamp: m.Timestamp(),
	}

	switch msg := m.(type) {
	case *model.AssistantMessage:
		e.reasoning = msg.Reasoning()
	case *model.ThinkingMessage:
		e.reasoning = msg.Reasoning()
	case *model.ToolMessage:
		e.toolName = msg.ToolName()
		e.proposal = msg.Proposal()
		e.isError = msg.IsError()
		e.declined = msg.Declined()
		e.details = msg.ErrorDetails()
	case *model.ErrorMessage:
		e.details = msg.Details()
	}

	return e
}

// Messages sent into the program from other goroutines or commands.

type messageMsg struct{ entry entry }

type queryDoneMsg struct{ err error }

type confirmRequestMsg struct {
	req  tools.ConfirmRequest
	conf *tools.Confirmation
}

type markdownRenderedMsg struct {
	id       string
	rendered string
}

type titleGeneratedMsg struct{ title string }

type modelsLoadedMsg struct {
	models []model.ModelInfo
	err    error
}

type sessionSavedMsg struct{ err error }

type searchResultsMsg struct{ matches []storage.SearchMatch }
