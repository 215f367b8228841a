package model

import "time"

// Restore constructors rebuild transcript messages from persisted records.
// Unlike the New* constructors they keep the stored id and timestamp, so an
// undo target chosen in a reloaded session still resolves. All restored
// messages are closed.

func RestoreUserMessage(id, content string, group string, at time.Time) *UserMessage {
	m := &UserMessage{base: newBase(RoleUser, id, false)}
	m.content = content
	m.group = group
	m.timestamp = at
	return m
}

func RestoreAssistantMessage(id, content, reasoning string, toolCalls []ToolCall, group string, at time.Time) *AssistantMessage {
	m := &AssistantMessage{base: newBase(RoleAssistant, id, false)}
	m.content = content
	m.reasoning = reasoning
	m.toolCalls = toolCalls
	m.group = group
	m.timestamp = at
	return m
}

// RestoreToolMessage rebuilds a closed tool result. Snapshots are not
// persisted, so restored tool messages carry none; undo cannot revert file
// edits made before the process last exited.
func RestoreToolMessage(id, toolName, toolCallID, content string, isError bool, kind ErrorKind, declined bool, group string, at time.Time) *ToolMessage {
	m := &ToolMessage{base: newBase(RoleTool, id, false)}
	m.toolName = toolName
	m.toolCallID = toolCallID
	m.content = content
	m.isError = isError
	m.errorKind = kind
	m.declined = declined
	m.group = group
	m.timestamp = at
	return m
}

func RestoreErrorMessage(id, summary, details string, at time.Time) *ErrorMessage {
	m := &ErrorMessage{base: newBase(RoleError, id, false)}
	m.content = summary
	m.details = details
	m.timestamp = at
	return m
}
