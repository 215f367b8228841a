package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/config"
	"quill/tools"
)

// Server is one connected MCP tool server: a local child process speaking
// stdio or a remote endpoint speaking SSE. Its tools are listed once at
// connect time.
type Server struct {
	id     string
	client *client.Client
	tools  []mcptypes.Tool

	mu     sync.Mutex
	closed bool
}

// Connect starts (or dials) the configured server, runs the MCP initialize
// handshake, and lists its tools.
func Connect(ctx context.Context, cfg config.MCPServerConfig) (*Server, error) {
	mcpClient, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MCP server %s: %w", cfg.ID, err)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "Quill",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", cfg.ID, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools for %s: %w", cfg.ID, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Connected to %s: %d tools", cfg.ID, len(toolsResult.Tools))
	}

	return &Server{
		id:     cfg.ID,
		client: mcpClient,
		tools:  toolsResult.Tools,
	}, nil
}

func newClient(ctx context.Context, cfg config.MCPServerConfig) (*client.Client, error) {
	if cfg.URL != "" {
		var opts []transport.ClientOption
		if len(cfg.Env) > 0 {
			opts = append(opts, transport.WithHeaders(cfg.Env))
		}
		mcpClient, err := client.NewSSEMCPClient(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		// SSE transport must be started before Initialize/ListTools.
		if err := mcpClient.GetTransport().Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE transport: %w", err)
		}
		return mcpClient, nil
	}

	if cfg.Command == "" {
		return nil, fmt.Errorf("MCP server needs either a command or a url")
	}

	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
}

// ID returns the configured server id.
func (s *Server) ID() string { return s.id }

// Tools returns the schemas listed at connect time.
func (s *Server) Tools() []mcptypes.Tool { return s.tools }

// CallTool invokes one tool on this server and flattens the result content
// into text. A result flagged as an error comes back as a Go error so the
// gateway's error taxonomy applies.
func (s *Server) CallTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	req := mcptypes.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", callFailure(toolName, err)
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcptypes.TextContent); ok {
			text += tc.Text
		}
	}

	if result.IsError {
		if text == "" {
			text = "tool reported an error without details"
		}
		return "", fmt.Errorf("MCP tool %s: %s", toolName, text)
	}
	return text, nil
}

// callFailure classifies a transport-level CallTool error as a network
// failure. Cancellation stays cancellation.
func callFailure(toolName string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("MCP tool %s cancelled: %w", toolName, err)
	}
	return fmt.Errorf("MCP tool %s failed: %w: %w", toolName, tools.ErrNetwork, err)
}

// Close shuts the server connection down. Close is idempotent; a hanging
// transport is abandoned after a short timeout.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	closeDone := make(chan error, 1)
	go func() { closeDone <- s.client.Close() }()

	select {
	case err := <-closeDone:
		return err
	case <-closeCtx.Done():
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] Close timeout for %s, abandoning transport", s.id)
		}
		return nil
	}
}
