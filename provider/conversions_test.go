package provider

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/config"
	"quill/model"
)

func configProvider(id string) config.ProviderConfig {
	return config.ProviderConfig{ID: id, Enabled: true}
}

func sampleHistory() []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleSystem, Content: "You are helpful."},
		{Role: model.RoleUser, Content: "fix the typo in notes.md"},
		{
			Role:    model.RoleAssistant,
			Content: "Let me fix that.",
			ToolCalls: []model.ToolCall{{
				ID:   "call_1",
				Name: "edit_file",
				Args: map[string]any{"path": "notes.md", "old_text": "teh", "new_text": "the"},
			}},
		},
		{Role: model.RoleTool, Content: "edited", ToolCallID: "call_1", ToolName: "edit_file"},
		{Role: model.RoleAssistant, Content: "Done."},
	}
}

func TestToAnthropicMessages(t *testing.T) {
	messages, system := toAnthropicMessages(sampleHistory())

	if len(system) != 1 || system[0].Text != "You are helpful." {
		t.Errorf("system blocks: %+v", system)
	}
	// System entries never land in the messages array.
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}

	assistant := messages[1]
	var sawToolUse bool
	for _, block := range assistant.Content {
		if block.OfToolUse != nil {
			sawToolUse = true
			if block.OfToolUse.ID != "call_1" || block.OfToolUse.Name != "edit_file" {
				t.Errorf("tool_use block: %+v", block.OfToolUse)
			}
		}
	}
	if !sawToolUse {
		t.Error("assistant tool call was not converted to a tool_use block")
	}

	toolResult := messages[2]
	if len(toolResult.Content) != 1 || toolResult.Content[0].OfToolResult == nil {
		t.Fatalf("tool result message: %+v", toolResult)
	}
	if toolResult.Content[0].OfToolResult.ToolUseID != "call_1" {
		t.Errorf("tool result correlation: %+v", toolResult.Content[0].OfToolResult)
	}
}

func TestToOpenAIMessages(t *testing.T) {
	messages := toOpenAIMessages(sampleHistory(), "")

	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(messages))
	}

	assistant := messages[2].OfAssistant
	if assistant == nil {
		t.Fatal("expected an assistant message at index 2")
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("tool calls: %+v", assistant.ToolCalls)
	}
	fn := assistant.ToolCalls[0].OfFunction
	if fn == nil || fn.ID != "call_1" || fn.Function.Name != "edit_file" {
		t.Errorf("tool call param: %+v", fn)
	}
	if fn.Function.Arguments == "" || fn.Function.Arguments == "{}" {
		t.Errorf("arguments were not serialized: %q", fn.Function.Arguments)
	}

	tool := messages[3].OfTool
	if tool == nil || tool.ToolCallID != "call_1" {
		t.Errorf("tool result message: %+v", tool)
	}
}

func TestToOpenAIMessagesPrependsInstructions(t *testing.T) {
	messages := toOpenAIMessages(sampleHistory(), "use tools")

	if len(messages) != 6 {
		t.Fatalf("got %d messages, want 6", len(messages))
	}
	if messages[0].OfSystem == nil {
		t.Error("instructions must arrive as the leading system message")
	}
}

func TestToOllamaMessages(t *testing.T) {
	messages := toOllamaMessages(sampleHistory(), "")

	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(messages))
	}

	assistant := messages[2]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant message: %+v", assistant)
	}
	call := assistant.ToolCalls[0]
	if call.Function.Name != "edit_file" || call.Function.Arguments["path"] != "notes.md" {
		t.Errorf("tool call: %+v", call)
	}

	tool := messages[3]
	if tool.Role != "tool" || tool.ToolName != "edit_file" || tool.Content != "edited" {
		t.Errorf("tool result message: %+v", tool)
	}
}

func TestModelSupportsToolCalling(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1:8b", true},
		{"llama3.2:3b", true},
		{"qwen3-coder:latest", true},
		{"mistral:latest", true},
		{"llama3:latest", false},
		{"gemma:7b", false},
		{"unknown-model", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ModelSupportsToolCalling(tt.model); got != tt.want {
				t.Errorf("ModelSupportsToolCalling(%q): got %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestOllamaRequestToolsGatedByModel(t *testing.T) {
	p, err := NewOllamaProvider("", "gemma:7b")
	if err != nil {
		t.Fatal(err)
	}
	defs := []mcptypes.Tool{mcptypes.NewTool("edit_file")}

	if got := p.requestTools(defs); got != nil {
		t.Errorf("model without tool support must not receive schemas: %v", got)
	}

	p.SetModel("qwen3-coder:latest")
	if got := p.requestTools(defs); len(got) != 1 {
		t.Errorf("tool-capable model should receive schemas: %v", got)
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := New(configProvider("mystery"), nil)
	if err == nil {
		t.Fatal("expected an error for an unknown provider id")
	}
}

func TestFactoryRequiresAPIKeys(t *testing.T) {
	for _, id := range []string{"openai", "anthropic"} {
		t.Run(id, func(t *testing.T) {
			if _, err := New(configProvider(id), nil); err == nil {
				t.Errorf("%s provider must reject a missing API key", id)
			}
		})
	}
}

func TestFactoryOllamaNeedsNoKey(t *testing.T) {
	p, err := New(configProvider("ollama"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.GetModel() == "" {
		t.Error("default model missing")
	}
}
