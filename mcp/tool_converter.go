// Package mcp connects to external MCP tool servers and converts mcp tool
// schemas into the formats each provider SDK expects. The mcp schema is the
// module's tool-definition currency: builtin tools and remote tools both
// describe themselves this way, and providers convert from it.
package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ConvertToolsToOllama converts mcp tools to the Ollama API tool format.
func ConvertToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	ollamaTools := make([]api.Tool, 0, len(mcpTools))

	for _, mcpTool := range mcpTools {
		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        mcpTool.Name,
				Description: mcpTool.Description,
				Parameters:  convertInputSchemaToParameters(mcpTool.InputSchema),
			},
		})
	}

	return ollamaTools
}

// convertInputSchemaToParameters converts an mcp InputSchema to Ollama
// ToolFunctionParameters. Ollama wants typed property structs rather than
// the raw JSON Schema maps mcp carries.
func convertInputSchemaToParameters(inputSchema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       inputSchema.Type,
		Required:   inputSchema.Required,
		Properties: make(map[string]api.ToolProperty, len(inputSchema.Properties)),
	}
	if inputSchema.Defs != nil {
		params.Defs = inputSchema.Defs
	}

	for name, node := range inputSchema.Properties {
		params.Properties[name] = toOllamaProperty(node)
	}
	return params
}

// toOllamaProperty maps one JSON Schema property node, recursing into anyOf
// alternatives.
func toOllamaProperty(node any) api.ToolProperty {
	m := schemaMap(node)
	if m == nil {
		return api.ToolProperty{}
	}

	prop := api.ToolProperty{Type: propertyTypes(m["type"])}
	if desc, ok := m["description"].(string); ok {
		prop.Description = desc
	}
	if enum, ok := m["enum"].([]any); ok {
		prop.Enum = enum
	}
	if items, ok := m["items"]; ok {
		prop.Items = items
	}
	if anyOf, ok := m["anyOf"].([]any); ok {
		prop.AnyOf = make([]api.ToolProperty, 0, len(anyOf))
		for _, alt := range anyOf {
			prop.AnyOf = append(prop.AnyOf, toOllamaProperty(alt))
		}
	}
	return prop
}

// schemaMap coerces a schema node into a plain map, round-tripping through
// JSON when the node arrived as a typed struct.
func schemaMap(node any) map[string]any {
	if m, ok := node.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// propertyTypes accepts the schema "type" keyword in both its single-string
// and list forms.
func propertyTypes(v any) api.PropertyType {
	switch t := v.(type) {
	case string:
		return api.PropertyType{t}
	case []string:
		return api.PropertyType(t)
	case []any:
		types := make([]string, 0, len(t))
		for _, alt := range t {
			if s, ok := alt.(string); ok {
				types = append(types, s)
			}
		}
		return api.PropertyType(types)
	default:
		return nil
	}
}

// ConvertToolsToOpenAI converts mcp tools to OpenAI function tool format.
// Both sides are JSON Schema, so the input schema maps across directly.
func ConvertToolsToOpenAI(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(mcpTools))

	for i, tool := range mcpTools {
		params := openai.FunctionParameters{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  params,
			},
		)
	}

	return result
}

// ConvertToolsToAnthropic converts mcp tools to Anthropic's tool format.
func ConvertToolsToAnthropic(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))

	for i, tool := range mcpTools {
		inputSchema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}

	return result
}
