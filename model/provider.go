package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ChatMessage is the model-native form of one transcript entry: the exact
// shape replayed to a provider to resume a conversation after tool
// execution. The rendered Message history and the ChatMessage history must
// stay in sync; the agent session owns both and is the only writer.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ModelInfo describes one selectable model, aggregated across providers.
type ModelInfo struct {
	Name         string // display name
	InternalName string // full name used in API calls
	Provider     string // provider id the model belongs to
	Size         int64  // on-disk size where known (Ollama), 0 otherwise
	ToolCalling  bool   // whether the model family can invoke tools
}

// Provider abstracts LLM provider implementations (Anthropic, OpenAI,
// Ollama) behind provider-agnostic types. Adapters translate ChatMessage
// history and mcp tool schemas into their wire format and stream the
// response back as a Delta sequence.
type Provider interface {
	// StreamTurn issues one model call and feeds its output through fn in
	// strict arrival order. It returns the stream error, if any, after
	// reporting it as a DeltaError.
	StreamTurn(ctx context.Context, history []ChatMessage, tools []mcptypes.Tool, fn DeltaFunc) error

	// CompleteTurn issues one non-streaming call and returns the final
	// text. Used for short side requests such as session title
	// generation.
	CompleteTurn(ctx context.Context, history []ChatMessage) (string, error)

	// ListModels returns the models available from this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks whether the provider is reachable.
	Ping(ctx context.Context) error
}
