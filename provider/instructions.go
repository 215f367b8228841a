package provider

import (
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// toolInstructions builds the execution guidance prepended to the system
// prompt when tools are available. Even capable models drift into
// describing tools instead of calling them without this.
func toolInstructions(tools []mcptypes.Tool) string {
	toolNames := make([]string, 0, len(tools))
	for _, tool := range tools {
		toolNames = append(toolNames, tool.Name)
	}

	return strings.Join([]string{
		"TOOLS: " + strings.Join(toolNames, ", "),
		"",
		"When the user asks you to do something that requires a tool:",
		"1. Determine which tool is needed",
		"2. Check if you have all required parameters",
		"3. If yes: Execute the tool IMMEDIATELY without explanation",
		"4. If no: Ask for the missing parameter ONLY",
		"",
		"DO NOT:",
		"- List available tools",
		"- Explain what you're about to do",
		"- Ask 'what would you like me to do?'",
	}, "\n")
}

// toolInstructionsFor is the nil-tolerant variant used where the adapter
// passes instructions through its message converter.
func toolInstructionsFor(tools []mcptypes.Tool) string {
	if len(tools) == 0 {
		return ""
	}
	return toolInstructions(tools)
}
