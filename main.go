package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quill/agent"
	"quill/config"
	"quill/mcp"
	"quill/model"
	"quill/provider"
	"quill/storage"
	"quill/tools"
	"quill/ui"
)

const Version = "v0.1.0"

const researcherPrompt = "You are a read-only research delegate. Investigate the task you are " +
	"given using the available tools and reply with a concise, self-contained answer. " +
	"Do not modify any files."

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config.InitDebugLog(cfg.DataDir())

	store, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize session storage: %v\n", err)
		os.Exit(1)
	}

	// Search is optional: a broken index degrades to no Ctrl+F, not a
	// refused start.
	index, err := storage.NewSearchIndex(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: search index unavailable: %v\n", err)
		index = nil
	}
	if index != nil {
		defer index.Close()
	}

	prov, err := provider.NewFromConfig(cfg, cfg.DefaultProvider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize provider %q: %v\n", cfg.DefaultProvider, err)
		os.Exit(1)
	}
	if cfg.DefaultModel != "" {
		prov.SetModel(cfg.DefaultModel)
	}

	registry := tools.NewRegistry(
		&tools.ReadFileTool{},
		&tools.EditFileTool{},
		&tools.RunCommandTool{},
	)

	servers := connectMCPServers(cfg, registry)
	defer closeMCPServers(servers)

	rules := tools.NewRules(permissionRules(cfg.Permissions))
	ruleStore := config.NewPermissionStore(cfg)

	session := restoreOrNewSession(cfg, store, prov)

	app := ui.New(cfg, prov, registry, rules, ruleStore, store, index, session, Version)

	// The delegate is registered after the app exists so that gated tools
	// inside it confirm through the same modal as top-level calls.
	researcher, err := agent.NewSubagent(agent.SubagentConfig{
		Name:         "researcher",
		Description:  "Delegate a self-contained read-only investigation (code reading, command output analysis) and get back a summary.",
		SystemPrompt: researcherPrompt,
		Tools:        []string{"read_file", "run_command"},
	}, prov, registry, rules, ruleStore, app.ConfirmFunc())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: researcher delegate disabled: %v\n", err)
	} else {
		registry.Register(researcher)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	app.SetProgram(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running quill: %v\n", err)
		os.Exit(1)
	}
}

func permissionRules(rules []config.PermissionRule) []tools.Rule {
	out := make([]tools.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, tools.Rule{
			Pattern:    r.Pattern,
			Permission: tools.Permission(r.Permission),
		})
	}
	return out
}

// connectMCPServers brings up every enabled server and registers its tools.
// A server that fails to connect is skipped with a warning; the rest of the
// app does not depend on it.
func connectMCPServers(cfg *config.Config, registry *tools.Registry) []*mcp.Server {
	var servers []*mcp.Server
	for _, sc := range cfg.MCPServers {
		if !sc.Enabled {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		server, err := mcp.Connect(ctx, sc)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: MCP server %q unavailable: %v\n", sc.ID, err)
			continue
		}

		for _, t := range mcp.ServerTools(server) {
			registry.Register(t)
		}
		servers = append(servers, server)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Main] MCP server %q connected with %d tools", sc.ID, len(server.Tools()))
		}
	}
	return servers
}

func closeMCPServers(servers []*mcp.Server) {
	for _, server := range servers {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Close(ctx); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Main] Failed to close MCP server %q: %v", server.ID(), err)
		}
		cancel()
	}
}

// restoreOrNewSession reopens the last active session when it still loads;
// anything else falls back to a fresh one.
func restoreOrNewSession(cfg *config.Config, store *storage.SessionStorage, prov model.Provider) *agent.Session {
	if id, err := store.LoadCurrentSessionID(); err == nil && id != "" {
		if record, err := store.Load(id); err == nil {
			return agent.FromRecord(record)
		} else if config.DebugLog != nil {
			config.DebugLog.Printf("[Main] Could not restore session %s: %v", id, err)
		}
	}

	session := agent.NewSession(cfg.DefaultProvider, prov.GetModel())
	session.SystemPrompt = cfg.DefaultSystemPrompt
	return session
}
