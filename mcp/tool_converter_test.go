package mcp

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

func editFileTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "edit_file",
		Description: "Replace text in a file",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file",
				},
				"old_text": map[string]any{
					"type":        "string",
					"description": "Text to replace",
				},
				"mode": map[string]any{
					"type": "string",
					"enum": []any{"replace", "append"},
				},
			},
			Required: []string{"path", "old_text"},
		},
	}
}

func TestConvertToolsToOllama(t *testing.T) {
	result := ConvertToolsToOllama([]mcptypes.Tool{editFileTool()})

	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	tool := result[0]
	if tool.Type != "function" || tool.Function.Name != "edit_file" {
		t.Errorf("tool header: %+v", tool.Function)
	}

	params := tool.Function.Parameters
	if params.Type != "object" || len(params.Required) != 2 || len(params.Properties) != 3 {
		t.Errorf("parameters: %+v", params)
	}

	pathProp := params.Properties["path"]
	if len(pathProp.Type) != 1 || pathProp.Type[0] != "string" {
		t.Errorf("path type: %v", pathProp.Type)
	}
	if pathProp.Description != "Path to the file" {
		t.Errorf("path description: %q", pathProp.Description)
	}

	modeProp := params.Properties["mode"]
	if len(modeProp.Enum) != 2 {
		t.Errorf("mode enum: %v", modeProp.Enum)
	}
}

func TestToOllamaProperty(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		validate func(t *testing.T, result api.ToolProperty)
	}{
		{
			name: "multi-type property",
			input: map[string]any{
				"type": []any{"string", "number"},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 2 {
					t.Errorf("expected 2 types, got %v", result.Type)
				}
			},
		},
		{
			name: "array property with items",
			input: map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if result.Items == nil {
					t.Error("expected items to be set")
				}
			},
		},
		{
			name: "anyOf union",
			input: map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "number"},
				},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.AnyOf) != 2 {
					t.Errorf("expected 2 anyOf options, got %d", len(result.AnyOf))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, toOllamaProperty(tt.input))
		})
	}
}

func TestConvertToolsToOpenAI(t *testing.T) {
	if got := ConvertToolsToOpenAI(nil); got != nil {
		t.Errorf("nil input should stay nil, got %v", got)
	}

	result := ConvertToolsToOpenAI([]mcptypes.Tool{editFileTool()})
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}

	fn := result[0].OfFunction
	if fn == nil {
		t.Fatal("expected a function tool")
	}
	if fn.Function.Name != "edit_file" {
		t.Errorf("name: %q", fn.Function.Name)
	}
	required, ok := fn.Function.Parameters["required"].([]string)
	if !ok || len(required) != 2 {
		t.Errorf("required: %v", fn.Function.Parameters["required"])
	}
}

func TestConvertToolsToAnthropic(t *testing.T) {
	if got := ConvertToolsToAnthropic(nil); got != nil {
		t.Errorf("nil input should stay nil, got %v", got)
	}

	result := ConvertToolsToAnthropic([]mcptypes.Tool{editFileTool()})
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}

	tool := result[0].OfTool
	if tool == nil {
		t.Fatal("expected a tool param")
	}
	if tool.Name != "edit_file" {
		t.Errorf("name: %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("required: %v", tool.InputSchema.Required)
	}
	if tool.Description.Value != "Replace text in a file" {
		t.Errorf("description: %v", tool.Description)
	}
}
