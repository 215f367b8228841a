package tools

import (
	"context"
	"fmt"
	"sort"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/model"
)

// SideChannel lets a running tool report intermediate messages back to the
// loop without returning control, e.g. a sub-agent surfacing its nested
// transcript.
type SideChannel func(model.Message)

// ExecOpts carries per-invocation context into a tool.
type ExecOpts struct {
	// ToolCallID correlates everything the tool emits with the call that
	// produced it.
	ToolCallID string

	// Emit is the side channel for intermediate messages. Never nil.
	Emit SideChannel
}

// Tool is the common contract every tool implements. Execution either
// returns a serialized result or an error; the gateway converts errors into
// error-kind tool messages.
type Tool interface {
	Name() string

	// Definition returns the tool's schema in MCP form, the schema
	// currency used for every provider conversion.
	Definition() mcptypes.Tool

	Execute(ctx context.Context, args map[string]any, opts ExecOpts) (string, error)
}

// SideEffecting marks tools whose effects must pass the confirmation gate
// before committing. Proposal renders what the user is approving (a diff,
// the command text).
type SideEffecting interface {
	Proposal(args map[string]any) string
}

// Subjecter customizes the string permission rules are matched against.
// Tools that do not implement it are matched by name.
type Subjecter interface {
	PermissionSubject(args map[string]any) string
}

// Snapshotter is implemented by tools whose effect is reversible. The
// gateway records the snapshot on the tool message before the effect is
// applied, and undo restores snapshots in reverse chronological order.
type Snapshotter interface {
	Snapshot(args map[string]any) (*model.Snapshot, error)
}

// Registry resolves tool names to implementations. It is constructed once at
// startup and passed to its users explicitly; there is no global lookup.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the schemas of all registered tools, sorted by name,
// ready to hand to a provider.
func (r *Registry) Definitions() []mcptypes.Tool {
	defs := make([]mcptypes.Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Subset builds a restricted registry for a sub-agent. Unknown names are an
// error: a delegate configured with a tool that does not exist is a
// configuration bug, not something to discover at call time.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q in subset", name)
		}
		sub.Register(t)
	}
	return sub, nil
}
