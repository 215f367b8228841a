package agent

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/config"
	"quill/model"
	"quill/tools"
)

// SubagentConfig describes one delegate: a named specialist with its own
// system prompt and a restricted tool set.
type SubagentConfig struct {
	// Name is the tool name the parent model calls, e.g. "code_reviewer".
	Name string
	// Description tells the parent model when to delegate.
	Description string
	// SystemPrompt is the delegate's own instruction set.
	SystemPrompt string
	// Tools restricts the delegate to a subset of the parent registry.
	// Empty means the delegate inherits every tool except delegation
	// itself.
	Tools []string
}

// Subagent exposes a nested agent loop as an ordinary Tool. Each invocation
// runs an isolated session against the shared provider; its messages are
// surfaced through the gateway side channel tagged with the delegate's
// group, and its final assistant text becomes the tool result.
//
// Delegates share the parent's permission rules and confirmation path, so a
// side-effecting tool inside a delegate still gates exactly like a
// top-level one. Nesting stops at one level: a delegate registry never
// contains another Subagent.
type Subagent struct {
	cfg      SubagentConfig
	provider model.Provider
	registry *tools.Registry
	rules    *tools.Rules
	store    tools.RuleStore
	confirm  tools.ConfirmFunc
}

// NewSubagent builds the delegate tool. The parent registry is filtered to
// cfg.Tools at construction time so an unknown tool name fails loudly here
// rather than silently mid-conversation.
func NewSubagent(cfg SubagentConfig, provider model.Provider, parent *tools.Registry, rules *tools.Rules, store tools.RuleStore, confirm tools.ConfirmFunc) (*Subagent, error) {
	registry := parent
	if len(cfg.Tools) > 0 {
		sub, err := parent.Subset(cfg.Tools...)
		if err != nil {
			return nil, fmt.Errorf("subagent %s: %w", cfg.Name, err)
		}
		registry = sub
	}
	return &Subagent{
		cfg:      cfg,
		provider: provider,
		registry: registry,
		rules:    rules,
		store:    store,
		confirm:  confirm,
	}, nil
}

func (s *Subagent) Name() string { return s.cfg.Name }

func (s *Subagent) Definition() mcptypes.Tool {
	return mcptypes.NewTool(s.cfg.Name,
		mcptypes.WithDescription(s.cfg.Description),
		mcptypes.WithString("task",
			mcptypes.Required(),
			mcptypes.Description("The task to delegate, fully self-contained."),
		),
	)
}

func (s *Subagent) Execute(ctx context.Context, args map[string]any, opts tools.ExecOpts) (string, error) {
	task, err := tools.StringArg(args, "task")
	if err != nil {
		return "", err
	}

	// Every nested message carries the delegate's group so renderers can
	// fold the whole run under the parent tool call.
	emit := func(m model.Message) {
		m.SetGroup(s.cfg.Name)
		if opts.Emit != nil {
			opts.Emit(m)
		}
	}

	session := NewSession("", s.provider.GetModel())
	session.Name = s.cfg.Name
	gateway := tools.NewGateway(s.registry, s.rules, s.store, s.confirm, tools.SideChannel(emit))
	loop := NewLoop(session, s.provider, s.registry, gateway, emit, s.cfg.SystemPrompt)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Subagent] %s starting: %.80q", s.cfg.Name, task)
	}

	if err := loop.Query(ctx, task); err != nil {
		return "", fmt.Errorf("subagent %s: %w", s.cfg.Name, err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	final := finalAssistantText(session)
	if final == "" {
		return "", fmt.Errorf("subagent %s produced no answer", s.cfg.Name)
	}
	return final, nil
}

func finalAssistantText(s *Session) string {
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if a, ok := msgs[i].(*model.AssistantMessage); ok && a.Content() != "" {
			return a.Content()
		}
	}
	return ""
}
