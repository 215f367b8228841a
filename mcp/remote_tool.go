package mcp

import (
	"context"
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/tools"
)

// RemoteTool adapts one tool on a connected MCP server to the local Tool
// contract. Remote tools are always treated as side-effecting: the module
// cannot see what the server does, so every call passes the confirmation
// gate unless a rule pre-approves it.
type RemoteTool struct {
	server *Server
	def    mcptypes.Tool
}

// ServerTools wraps every tool a connected server exposes.
func ServerTools(server *Server) []tools.Tool {
	wrapped := make([]tools.Tool, 0, len(server.Tools()))
	for _, def := range server.Tools() {
		wrapped = append(wrapped, &RemoteTool{server: server, def: def})
	}
	return wrapped
}

func (t *RemoteTool) Name() string { return t.def.Name }

func (t *RemoteTool) Definition() mcptypes.Tool { return t.def }

func (t *RemoteTool) Proposal(args map[string]any) string {
	rendered, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return t.def.Name + " (" + t.server.id + ")"
	}
	return t.def.Name + " (" + t.server.id + ")\n" + string(rendered)
}

// PermissionSubject scopes rules to server and tool, e.g.
// "mcp:github/create_issue".
func (t *RemoteTool) PermissionSubject(args map[string]any) string {
	return "mcp:" + t.server.id + "/" + t.def.Name
}

func (t *RemoteTool) Execute(ctx context.Context, args map[string]any, opts tools.ExecOpts) (string, error) {
	return t.server.CallTool(ctx, t.def.Name, args)
}
