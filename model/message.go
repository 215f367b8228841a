// Package model defines the provider-agnostic conversation types shared by
// the whole application: the Message variants that make up a rendered
// transcript, tool calls and their streaming fragments, and the Provider
// interface that LLM adapters implement.
//
// The Provider interface lives here (not in the provider package) to avoid
// import cycles: provider implementations import model, and the agent loop
// can use the Provider interface without importing any concrete adapter.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the kind of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleThinking  Role = "thinking"
	RoleError     Role = "error"

	// RoleSystem only appears in model-native history, never in the
	// rendered transcript.
	RoleSystem Role = "system"
)

// Message is the closed set of transcript message variants. Concrete types
// are UserMessage, AssistantMessage, ToolMessage, ThinkingMessage and
// ErrorMessage; callers dispatch with a type switch, never by sniffing
// fields.
//
// A streaming message keeps a stable ID for its whole open→close lifecycle.
// Close marks it immutable; appending to a closed message panics, because a
// post-close append is always an ordering bug in the caller.
type Message interface {
	ID() string
	Role() Role
	Content() string
	Streaming() bool
	Timestamp() time.Time

	// Group is non-empty for messages produced inside a sub-agent
	// invocation; renderers use it to nest them under the delegate.
	Group() string
	SetGroup(name string)

	Close()

	// Matches reports whether a delta carrying the given upstream turn
	// identifier still belongs to this message.
	Matches(turnID string) bool
}

// base carries the fields and behavior common to every message variant.
type base struct {
	id        string
	role      Role
	content   string
	streaming bool
	group     string
	timestamp time.Time
}

func newBase(role Role, id string, streaming bool) base {
	if id == "" {
		id = uuid.New().String()
	}
	return base{
		id:        id,
		role:      role,
		streaming: streaming,
		timestamp: time.Now(),
	}
}

func (b *base) ID() string           { return b.id }
func (b *base) Role() Role           { return b.role }
func (b *base) Content() string      { return b.content }
func (b *base) Streaming() bool      { return b.streaming }
func (b *base) Timestamp() time.Time { return b.timestamp }
func (b *base) Group() string        { return b.group }
func (b *base) SetGroup(name string) { b.group = name }

// Close marks the message terminal. Safe to call once; further appends
// panic.
func (b *base) Close() { b.streaming = false }

func (b *base) mustBeOpen() {
	if !b.streaming {
		panic("model: append to closed message " + b.id)
	}
}

// Matches compares the normalized delta turn identifier against this
// message's identifier. An empty turn id matches the currently open message
// (some providers omit the id on continuation deltas).
func (b *base) Matches(turnID string) bool {
	if turnID == "" {
		return true
	}
	return NormalizeTurnID(turnID) == NormalizeTurnID(b.id)
}

// NormalizeTurnID strips provider-specific prefixes so that the same logical
// turn compares equal regardless of which adapter produced the identifier.
func NormalizeTurnID(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{"msg_", "chatcmpl-", "resp_"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

// UserMessage is a user turn. It is complete at creation and never streams.
type UserMessage struct {
	base
}

func NewUserMessage(content string) *UserMessage {
	m := &UserMessage{base: newBase(RoleUser, "", false)}
	m.content = content
	return m
}

// AssistantMessage is one model turn: streamed content, an optional
// reasoning trace, and the tool calls declared by the model for this turn.
type AssistantMessage struct {
	base
	reasoning string
	toolCalls []ToolCall
}

// NewAssistantMessage opens a streaming assistant message. The turn id
// reported by the provider becomes the message id so later deltas can be
// matched back to it; a generated id is used when the provider omits one.
func NewAssistantMessage(turnID string) *AssistantMessage {
	return &AssistantMessage{base: newBase(RoleAssistant, turnID, true)}
}

func (m *AssistantMessage) AppendContent(text string) {
	m.mustBeOpen()
	m.content += text
}

func (m *AssistantMessage) AppendReasoning(text string) {
	m.mustBeOpen()
	m.reasoning += text
}

// AddToolCall records a completed tool call on this turn. Calls are kept in
// declaration order; the executor runs them strictly in this order.
func (m *AssistantMessage) AddToolCall(call ToolCall) {
	m.mustBeOpen()
	m.toolCalls = append(m.toolCalls, call)
}

func (m *AssistantMessage) Reasoning() string { return m.reasoning }

func (m *AssistantMessage) ToolCalls() []ToolCall { return m.toolCalls }

// ThinkingMessage carries a reasoning trace while it streams. It is
// ephemeral: when normal content begins, the assembler merges the trace into
// the following AssistantMessage and the thinking message is closed.
type ThinkingMessage struct {
	base
	reasoning string
}

func NewThinkingMessage(id string) *ThinkingMessage {
	return &ThinkingMessage{base: newBase(RoleThinking, id, true)}
}

func (m *ThinkingMessage) AppendReasoning(text string) {
	m.mustBeOpen()
	m.reasoning += text
}

func (m *ThinkingMessage) Reasoning() string { return m.reasoning }

// ErrorKind categorizes a failed tool execution or stream failure.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindPermission ErrorKind = "permission"
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindNotFound   ErrorKind = "not-found"
	ErrorKindRuntime    ErrorKind = "runtime"
	ErrorKindCancelled  ErrorKind = "cancelled"
)

// Snapshot records the state a side-effecting tool observed before applying
// its effect. Undo restores snapshots in reverse chronological order.
type Snapshot struct {
	Path         string `json:"path"`
	PriorContent string `json:"prior_content"`
	Existed      bool   `json:"existed"`
}

// ToolMessage is the result of one tool call. It opens while the call runs
// (or waits for confirmation) and closes exactly once with a result, an
// error, or a declined outcome.
type ToolMessage struct {
	base
	toolName     string
	toolCallID   string
	proposal     string
	isError      bool
	errorKind    ErrorKind
	errorDetails string
	declined     bool
	snapshot     *Snapshot
}

// NewToolMessage opens a streaming tool message correlated to the tool call
// that produced it.
func NewToolMessage(toolName, toolCallID string) *ToolMessage {
	m := &ToolMessage{base: newBase(RoleTool, "", true)}
	m.toolName = toolName
	m.toolCallID = toolCallID
	return m
}

func (m *ToolMessage) ToolName() string     { return m.toolName }
func (m *ToolMessage) ToolCallID() string   { return m.toolCallID }
func (m *ToolMessage) IsError() bool        { return m.isError }
func (m *ToolMessage) ErrorKind() ErrorKind { return m.errorKind }
func (m *ToolMessage) ErrorDetails() string { return m.errorDetails }
func (m *ToolMessage) Declined() bool       { return m.declined }
func (m *ToolMessage) Snapshot() *Snapshot  { return m.snapshot }
func (m *ToolMessage) Proposal() string     { return m.proposal }

// SetProposal attaches the renderable proposal (diff, command text) shown to
// the user while the message waits on a confirmation decision.
func (m *ToolMessage) SetProposal(text string) {
	m.mustBeOpen()
	m.proposal = text
}

// SetSnapshot records the reversible prior state of the tool's side effect.
func (m *ToolMessage) SetSnapshot(s *Snapshot) {
	m.mustBeOpen()
	m.snapshot = s
}

// CloseWithResult closes the message with a successful serialized result.
func (m *ToolMessage) CloseWithResult(result string) {
	m.mustBeOpen()
	m.content = result
	m.Close()
}

// CloseWithError closes the message as a tool failure. The failure is shown
// to the model on its next turn, not raised to the loop's caller.
func (m *ToolMessage) CloseWithError(kind ErrorKind, summary, details string) {
	m.mustBeOpen()
	m.isError = true
	m.errorKind = kind
	m.content = summary
	m.errorDetails = details
	m.Close()
}

// CloseDeclined closes the message as a declined outcome. Declined is not a
// failure: the model is told the user chose not to run the tool.
func (m *ToolMessage) CloseDeclined() {
	m.mustBeOpen()
	m.declined = true
	m.content = "The user declined to run " + m.toolName + "."
	m.Close()
}

// ErrorMessage is a fatal, terminal error surfaced to the caller, e.g. a
// broken provider stream. It never streams.
type ErrorMessage struct {
	base
	details string
}

func NewErrorMessage(summary, details string) *ErrorMessage {
	m := &ErrorMessage{base: newBase(RoleError, "", false)}
	m.content = summary
	m.details = details
	return m
}

func (m *ErrorMessage) Details() string { return m.details }
