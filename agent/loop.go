package agent

import (
	"context"
	"errors"
	"fmt"

	"quill/config"
	"quill/model"
	"quill/stream"
	"quill/tools"
)

// ErrQueryInProgress is returned when Query is called while a previous
// query on the same session is still running.
var ErrQueryInProgress = errors.New("a query is already in progress")

// Loop drives one session: it sends the history to the provider, assembles
// the streamed response, executes requested tool calls through the gateway,
// and repeats until a turn produces no tool calls.
type Loop struct {
	session      *Session
	provider     model.Provider
	registry     *tools.Registry
	gateway      *tools.Gateway
	emit         stream.EmitFunc
	systemPrompt string
}

// NewLoop wires a loop over the given session. The emit callback receives
// every message the loop or its assembler produces, open and closed; a nil
// emit is allowed.
func NewLoop(session *Session, provider model.Provider, registry *tools.Registry, gateway *tools.Gateway, emit stream.EmitFunc, systemPrompt string) *Loop {
	if emit == nil {
		emit = func(model.Message) {}
	}
	return &Loop{
		session:      session,
		provider:     provider,
		registry:     registry,
		gateway:      gateway,
		emit:         emit,
		systemPrompt: systemPrompt,
	}
}

// Session returns the session this loop drives.
func (l *Loop) Session() *Session { return l.session }

// Query runs one user request to completion: model turns interleaved with
// sequential tool execution until the model stops asking for tools.
// Cancellation of ctx (or Session.Cancel) stops the loop at the next
// boundary and is not reported as an error; whatever streamed before the
// cut stays in the transcript.
func (l *Loop) Query(ctx context.Context, text string) error {
	if l.session.Loading() {
		return ErrQueryInProgress
	}

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.session.BindCancel(cancel)

	l.session.SetLoading(true)
	defer l.session.SetLoading(false)

	user := model.NewUserMessage(text)
	l.session.AddMessage(user)
	l.session.AppendNative(model.ChatMessage{Role: model.RoleUser, Content: text})
	l.emit(user)

	for {
		asm := stream.NewAssembler(l.emit)
		streamErr := l.provider.StreamTurn(qctx, l.history(), l.registry.Definitions(), asm.Feed)

		// Everything the turn closed lands in both histories before the
		// next model call, even when the stream ended badly.
		for _, a := range asm.ClosedAssistants() {
			l.commitAssistant(a)
		}

		if streamErr != nil {
			if qctx.Err() != nil {
				if config.DebugLog != nil {
					config.DebugLog.Printf("[Loop] Query cancelled: %v", streamErr)
				}
				return nil
			}
			errMsg := model.NewErrorMessage("model request failed", streamErr.Error())
			l.session.AddMessage(errMsg)
			l.emit(errMsg)
			return fmt.Errorf("model request failed: %w", streamErr)
		}

		last := asm.LastAssistant()
		if last == nil || len(last.ToolCalls()) == 0 {
			return nil
		}

		for _, call := range last.ToolCalls() {
			for _, msg := range l.gateway.Run(qctx, call) {
				l.commitToolResult(msg)
			}
		}

		if qctx.Err() != nil {
			return nil
		}
	}
}

func (l *Loop) history() []model.ChatMessage {
	native := l.session.Native()
	if l.systemPrompt == "" {
		return native
	}
	history := make([]model.ChatMessage, 0, len(native)+1)
	history = append(history, model.ChatMessage{Role: model.RoleSystem, Content: l.systemPrompt})
	return append(history, native...)
}

func (l *Loop) commitAssistant(a *model.AssistantMessage) {
	l.session.AddMessage(a)
	l.session.AppendNative(model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   a.Content(),
		Reasoning: a.Reasoning(),
		ToolCalls: a.ToolCalls(),
	})
}

func (l *Loop) commitToolResult(msg *model.ToolMessage) {
	l.session.AddMessage(msg)
	l.session.AppendNative(model.ChatMessage{
		Role:       model.RoleTool,
		Content:    renderToolResult(msg),
		ToolCallID: msg.ToolCallID(),
		ToolName:   msg.ToolName(),
	})
}

// renderToolResult is what the model sees for a finished tool call. Declines
// and failures are stated plainly so the model can react instead of
// retrying blind.
func renderToolResult(msg *model.ToolMessage) string {
	switch {
	case msg.Declined():
		return "The user declined this action."
	case msg.IsError():
		return fmt.Sprintf("Error (%s): %s", msg.ErrorKind(), msg.ErrorDetails())
	default:
		return msg.Content()
	}
}
