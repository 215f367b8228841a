package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/model"
	"quill/tools"
)

// scriptedProvider plays back pre-recorded delta turns and records every
// history it was called with.
type scriptedProvider struct {
	mu        sync.Mutex
	turns     [][]model.Delta
	calls     int
	histories [][]model.ChatMessage
}

func (p *scriptedProvider) StreamTurn(ctx context.Context, history []model.ChatMessage, defs []mcptypes.Tool, fn model.DeltaFunc) error {
	p.mu.Lock()
	p.histories = append(p.histories, history)
	if p.calls >= len(p.turns) {
		p.mu.Unlock()
		return errors.New("no scripted turn left")
	}
	turn := p.turns[p.calls]
	p.calls++
	p.mu.Unlock()

	for _, d := range turn {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (p *scriptedProvider) CompleteTurn(ctx context.Context, history []model.ChatMessage) (string, error) {
	return "Scripted Title", nil
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return nil, nil
}

func (p *scriptedProvider) GetModel() string               { return "test-model" }
func (p *scriptedProvider) SetModel(string)                {}
func (p *scriptedProvider) Ping(ctx context.Context) error { return nil }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func textTurn(id, text string) []model.Delta {
	return []model.Delta{
		{Kind: model.DeltaTurnStart, TurnID: id},
		{Kind: model.DeltaContent, TurnID: id, Text: text},
		{Kind: model.DeltaTurnEnd, TurnID: id},
	}
}

func toolTurn(id, text, callID, toolName, args string) []model.Delta {
	return []model.Delta{
		{Kind: model.DeltaTurnStart, TurnID: id},
		{Kind: model.DeltaContent, TurnID: id, Text: text},
		{Kind: model.DeltaToolChunk, TurnID: id, Chunk: model.ToolCallChunk{Index: 0, ID: callID, Name: toolName}},
		{Kind: model.DeltaToolChunk, TurnID: id, Chunk: model.ToolCallChunk{Index: 0, Args: args}},
		{Kind: model.DeltaTurnEnd, TurnID: id},
	}
}

// fixTool stands in for edit_file: side-effecting, confirmable.
type fixTool struct {
	mu       sync.Mutex
	executed int
}

func (t *fixTool) Name() string { return "fix" }

func (t *fixTool) Definition() mcptypes.Tool {
	return mcptypes.NewTool("fix", mcptypes.WithDescription("Apply a fix."))
}

func (t *fixTool) Proposal(args map[string]any) string { return "apply the fix" }

func (t *fixTool) Execute(ctx context.Context, args map[string]any, opts tools.ExecOpts) (string, error) {
	t.mu.Lock()
	t.executed++
	t.mu.Unlock()
	return "fixed", nil
}

func (t *fixTool) executions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executed
}

func approveAll(ctx context.Context, req tools.ConfirmRequest) tools.Decision {
	return tools.DecisionApplyOnce
}

func newTestLoop(provider *scriptedProvider, tool tools.Tool, confirm tools.ConfirmFunc) (*Loop, *Session) {
	registry := tools.NewRegistry()
	if tool != nil {
		registry.Register(tool)
	}
	session := NewSession("test", "test-model")
	gateway := tools.NewGateway(registry, nil, nil, confirm, nil)
	loop := NewLoop(session, provider, registry, gateway, nil, "You are a test assistant.")
	return loop, session
}

func TestQueryPlainAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: [][]model.Delta{
		textTurn("msg_1", "Hello there."),
	}}
	loop, session := newTestLoop(provider, nil, nil)

	if err := loop.Query(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	msgs := session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length: got %d, want 2", len(msgs))
	}
	if msgs[0].Role() != model.RoleUser || msgs[1].Role() != model.RoleAssistant {
		t.Errorf("roles: got %s, %s", msgs[0].Role(), msgs[1].Role())
	}
	if msgs[1].Content() != "Hello there." {
		t.Errorf("assistant content: got %q", msgs[1].Content())
	}
	if session.Loading() {
		t.Error("loading flag still set after query finished")
	}

	// The provider saw the system prompt plus the user turn.
	history := provider.histories[0]
	if len(history) != 2 || history[0].Role != model.RoleSystem || history[1].Role != model.RoleUser {
		t.Errorf("first call history: %+v", history)
	}
}

func TestQueryToolRoundTrip(t *testing.T) {
	provider := &scriptedProvider{turns: [][]model.Delta{
		toolTurn("msg_1", "Let me fix that.", "call_1", "fix", `{"target":"typo"}`),
		textTurn("msg_2", "Done, the typo is fixed."),
	}}
	tool := &fixTool{}
	loop, session := newTestLoop(provider, tool, approveAll)

	if err := loop.Query(context.Background(), "fix the typo in readme"); err != nil {
		t.Fatal(err)
	}

	if tool.executions() != 1 {
		t.Fatalf("tool executions: got %d, want 1", tool.executions())
	}

	msgs := session.Messages()
	if len(msgs) != 4 {
		t.Fatalf("transcript length: got %d, want 4 (user, assistant, tool, assistant)", len(msgs))
	}

	assistants, toolMsgs := 0, 0
	for _, m := range msgs {
		if m.Streaming() {
			t.Errorf("message %s still streaming after query", m.ID())
		}
		switch m.(type) {
		case *model.AssistantMessage:
			assistants++
		case *model.ToolMessage:
			toolMsgs++
		}
	}
	if assistants != 2 || toolMsgs != 1 {
		t.Errorf("got %d assistants and %d tool messages, want 2 and 1", assistants, toolMsgs)
	}

	first := msgs[1].(*model.AssistantMessage)
	if len(first.ToolCalls()) != 1 || first.ToolCalls()[0].ID != "call_1" {
		t.Errorf("first assistant tool calls: %+v", first.ToolCalls())
	}

	// The second model call replays the tool result in native form.
	second := provider.histories[1]
	var sawResult bool
	for _, m := range second {
		if m.Role == model.RoleTool && m.ToolCallID == "call_1" && m.Content == "fixed" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Errorf("tool result missing from second call history: %+v", second)
	}
}

func TestQueryDeclinedToolStopsWithoutError(t *testing.T) {
	provider := &scriptedProvider{turns: [][]model.Delta{
		toolTurn("msg_1", "I will fix it.", "call_1", "fix", `{}`),
		textTurn("msg_2", "Understood, leaving it alone."),
	}}
	tool := &fixTool{}
	rejectAll := func(ctx context.Context, req tools.ConfirmRequest) tools.Decision {
		return tools.DecisionRejectOnce
	}
	loop, session := newTestLoop(provider, tool, rejectAll)

	if err := loop.Query(context.Background(), "fix it"); err != nil {
		t.Fatal(err)
	}

	if tool.executions() != 0 {
		t.Error("declined tool must not execute")
	}

	// The decline is reported back to the model, which gets a final turn.
	var toolMsg *model.ToolMessage
	for _, m := range session.Messages() {
		if tm, ok := m.(*model.ToolMessage); ok {
			toolMsg = tm
		}
	}
	if toolMsg == nil || !toolMsg.Declined() {
		t.Fatal("expected a declined tool message in the transcript")
	}
	if provider.callCount() != 2 {
		t.Errorf("model calls: got %d, want 2", provider.callCount())
	}
}

func TestQueryCancelDuringConfirmation(t *testing.T) {
	provider := &scriptedProvider{turns: [][]model.Delta{
		toolTurn("msg_1", "Fixing.", "call_1", "fix", `{}`),
		textTurn("msg_2", "never reached"),
	}}
	tool := &fixTool{}

	confirm := func(ctx context.Context, req tools.ConfirmRequest) tools.Decision {
		c := tools.NewConfirmation()
		return c.Wait(ctx)
	}
	loop, session := newTestLoop(provider, tool, confirm)

	done := make(chan error, 1)
	go func() { done <- loop.Query(context.Background(), "fix it") }()

	// Wait for the loop to reach the confirmation gate, then cancel.
	deadline := time.After(2 * time.Second)
	for {
		found := false
		for _, m := range session.Messages() {
			if tm, ok := m.(*model.ToolMessage); ok && tm.Streaming() {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatal("confirmation gate never reached")
		case <-time.After(5 * time.Millisecond):
		}
	}
	session.Cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancellation must not surface as an error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("query did not unwind after cancel")
	}

	if tool.executions() != 0 {
		t.Error("cancelled confirmation must not execute the tool")
	}
	if session.Loading() {
		t.Error("loading flag still set after cancel")
	}
	if provider.callCount() != 1 {
		t.Errorf("model calls after cancel: got %d, want 1 (no recursion)", provider.callCount())
	}

	var toolMsg *model.ToolMessage
	for _, m := range session.Messages() {
		if tm, ok := m.(*model.ToolMessage); ok {
			toolMsg = tm
		}
	}
	if toolMsg == nil || toolMsg.Streaming() || !toolMsg.Declined() {
		t.Error("pending tool message should close as declined on cancel")
	}
}

func TestQueryStreamFailure(t *testing.T) {
	provider := &scriptedProvider{} // no scripted turns: first call fails
	loop, session := newTestLoop(provider, nil, nil)

	err := loop.Query(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected an error from a broken stream")
	}

	msgs := session.Messages()
	last := msgs[len(msgs)-1]
	if _, ok := last.(*model.ErrorMessage); !ok {
		t.Errorf("last message: got %T, want *model.ErrorMessage", last)
	}
	if session.Loading() {
		t.Error("loading flag still set after failure")
	}
}

func TestQueryRejectsConcurrentQueries(t *testing.T) {
	provider := &scriptedProvider{}
	loop, session := newTestLoop(provider, nil, nil)

	session.SetLoading(true)
	if err := loop.Query(context.Background(), "hi"); !errors.Is(err, ErrQueryInProgress) {
		t.Errorf("got %v, want ErrQueryInProgress", err)
	}
}

func TestSubagentRunsNestedLoop(t *testing.T) {
	provider := &scriptedProvider{turns: [][]model.Delta{
		textTurn("msg_sub", "Nested answer."),
	}}

	sub, err := NewSubagent(SubagentConfig{
		Name:         "researcher",
		Description:  "Delegate research tasks.",
		SystemPrompt: "You research things.",
	}, provider, tools.NewRegistry(), tools.NewRules(nil), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var forwarded []model.Message
	result, err := sub.Execute(context.Background(), map[string]any{"task": "look this up"}, tools.ExecOpts{
		ToolCallID: "call_1",
		Emit:       func(m model.Message) { forwarded = append(forwarded, m) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != "Nested answer." {
		t.Errorf("result: got %q", result)
	}

	if len(forwarded) == 0 {
		t.Fatal("nested messages were not forwarded")
	}
	for _, m := range forwarded {
		if m.Group() != "researcher" {
			t.Errorf("message %s group: got %q, want researcher", m.ID(), m.Group())
		}
	}
}

func TestSubagentUnknownToolFailsAtConstruction(t *testing.T) {
	_, err := NewSubagent(SubagentConfig{
		Name:  "broken",
		Tools: []string{"no_such_tool"},
	}, &scriptedProvider{}, tools.NewRegistry(), nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown tool in the subset")
	}
}

func TestGenerateTitleFallsBackOnLongInput(t *testing.T) {
	got := fallbackTitle("Fix the race condition in the download manager that corrupts partially fetched archives")
	if len([]rune(got)) > maxTitleLen+1 {
		t.Errorf("fallback title too long: %q", got)
	}
}
