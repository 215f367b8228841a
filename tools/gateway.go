package tools

import (
	"context"
	"fmt"

	"quill/config"
	"quill/model"
)

// Gateway executes tool calls on behalf of the orchestration loop. Every
// failure is caught here and converted into an error-kind tool message: the
// model sees tool failures on its next turn and may recover; the loop's
// caller never does.
type Gateway struct {
	registry *Registry
	rules    *Rules
	store    RuleStore   // nil: "always" decisions are not persisted
	confirm  ConfirmFunc // nil: anything that would ask is declined
	emit     SideChannel
}

// NewGateway wires a gateway. emit receives every message state change and
// every side-channel message, keyed by message id.
func NewGateway(registry *Registry, rules *Rules, store RuleStore, confirm ConfirmFunc, emit SideChannel) *Gateway {
	if emit == nil {
		emit = func(model.Message) {}
	}
	if rules == nil {
		rules = NewRules(nil)
	}
	return &Gateway{
		registry: registry,
		rules:    rules,
		store:    store,
		confirm:  confirm,
		emit:     emit,
	}
}

// Rules exposes the live rule set, shared with anything else that evaluates
// permissions.
func (g *Gateway) Rules() *Rules { return g.rules }

// Run resolves and executes one tool call, returning the resulting tool
// messages in emission order. All returned messages are closed. Run never
// panics and never returns an error: failures are encoded in the messages.
func (g *Gateway) Run(ctx context.Context, call model.ToolCall) []*model.ToolMessage {
	msg := model.NewToolMessage(call.Name, call.ID)
	g.emit(msg)

	tool, ok := g.registry.Get(call.Name)
	if !ok {
		msg.CloseWithError(model.ErrorKindNotFound,
			fmt.Sprintf("unknown tool %q", call.Name), "")
		g.emit(msg)
		return []*model.ToolMessage{msg}
	}

	if effecting, ok := tool.(SideEffecting); ok {
		if done := g.gate(ctx, tool, effecting, call, msg); done {
			return []*model.ToolMessage{msg}
		}
	}

	result, err := g.execute(ctx, tool, call)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Gateway] Tool %q failed: %v", call.Name, err)
		}
		msg.CloseWithError(KindOf(err), fmt.Sprintf("%s failed", call.Name), err.Error())
	} else {
		msg.CloseWithResult(result)
	}

	g.emit(msg)
	return []*model.ToolMessage{msg}
}

// gate runs blocklist, rule evaluation and the confirmation rendezvous for a
// side-effecting call. It returns true when the call must not execute; msg
// is already closed in that case. On approval it also records the tool's
// snapshot so the effect stays reversible.
func (g *Gateway) gate(ctx context.Context, tool Tool, effecting SideEffecting, call model.ToolCall, msg *model.ToolMessage) (done bool) {
	subject := call.Name
	if s, ok := tool.(Subjecter); ok {
		subject = s.PermissionSubject(call.Args)
	}

	if Blocked(subject) {
		msg.CloseWithError(model.ErrorKindPermission,
			fmt.Sprintf("%q is blocked", subject),
			"this pattern is on the fixed blocklist and cannot be allowed by any rule")
		g.emit(msg)
		return true
	}

	switch g.rules.Evaluate(subject) {
	case PermissionDeny:
		msg.CloseWithError(model.ErrorKindPermission,
			fmt.Sprintf("%q is denied by a permission rule", subject), "")
		g.emit(msg)
		return true

	case PermissionAllow:
		// Pre-approved; fall through to snapshot and execute.

	case PermissionAsk:
		msg.SetProposal(effecting.Proposal(call.Args))
		g.emit(msg)

		decision := DecisionRejectOnce
		if g.confirm != nil {
			decision = g.confirm(ctx, ConfirmRequest{
				ToolName:   call.Name,
				ToolCallID: call.ID,
				Subject:    subject,
				Proposal:   msg.Proposal(),
			})
		}

		g.persistDecision(subject, decision)

		if !decision.approved() {
			msg.CloseDeclined()
			g.emit(msg)
			return true
		}
	}

	if snapper, ok := tool.(Snapshotter); ok {
		snapshot, err := snapper.Snapshot(call.Args)
		if err != nil {
			msg.CloseWithError(KindOf(err),
				fmt.Sprintf("%s could not snapshot prior state", call.Name), err.Error())
			g.emit(msg)
			return true
		}
		msg.SetSnapshot(snapshot)
	}

	return false
}

func (g *Gateway) persistDecision(subject string, decision Decision) {
	var permission Permission
	pattern := subject
	switch decision {
	case DecisionAlwaysAllow:
		permission = PermissionAllow
	case DecisionAlwaysDeny:
		permission = PermissionDeny
	case DecisionAlwaysAllowPattern:
		permission = PermissionAllow
		pattern = GeneralizePattern(subject)
	case DecisionAlwaysDenyPattern:
		permission = PermissionDeny
		pattern = GeneralizePattern(subject)
	default:
		return
	}

	g.rules.Add(Rule{Pattern: pattern, Permission: permission})
	if g.store != nil {
		if err := g.store.Append(pattern, string(permission)); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Gateway] Failed to persist %s rule for %q: %v", permission, pattern, err)
		}
	}
}

// execute invokes the tool with panic containment.
func (g *Gateway) execute(ctx context.Context, tool Tool, call model.ToolCall) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %q panicked: %v", call.Name, r)
		}
	}()

	return tool.Execute(ctx, call.Args, ExecOpts{
		ToolCallID: call.ID,
		Emit:       g.emit,
	})
}
