package stream

import (
	"fmt"

	"quill/model"
)

// EmitFunc receives every message mutation, keyed by message id. A renderer
// replaces any earlier message with the same id, which is how in-place
// streaming updates reach the screen.
type EmitFunc func(model.Message)

// Assembler consumes the delta sequence of a single model call and drives
// the open Assistant/Thinking message through its lifecycle. Consumption is
// single-threaded; messages are emitted in strict arrival order.
type Assembler struct {
	emit EmitFunc
	acc  *Accumulator

	assistant *model.AssistantMessage
	thinking  *model.ThinkingMessage

	// closedAssistants collects the assistant messages closed during this
	// model call, in order. The loop inspects the last one for tool calls.
	closedAssistants []*model.AssistantMessage
}

func NewAssembler(emit EmitFunc) *Assembler {
	if emit == nil {
		emit = func(model.Message) {}
	}
	return &Assembler{
		emit: emit,
		acc:  NewAccumulator(),
	}
}

// Feed consumes one delta. On a fatal delta it closes whatever is open and
// returns the stream error; the caller must not feed further deltas.
func (s *Assembler) Feed(d model.Delta) error {
	switch d.Kind {
	case model.DeltaTurnStart:
		// A new upstream turn closes the previous one if still open.
		if s.assistant != nil && !s.assistant.Matches(d.TurnID) {
			s.closeTurn()
		}
		if s.assistant == nil {
			s.openTurn(d.TurnID)
		}

	case model.DeltaReasoning:
		if s.assistant == nil {
			s.openTurn(d.TurnID)
		}
		if s.thinking == nil {
			s.thinking = model.NewThinkingMessage(s.assistant.ID() + "-thinking")
		}
		s.thinking.AppendReasoning(d.Text)
		s.emit(s.thinking)

	case model.DeltaContent:
		if s.assistant == nil {
			s.openTurn(d.TurnID)
		}
		// Reasoning is assumed to have ended once normal content begins.
		// This is a policy decision, not a protocol guarantee.
		s.mergeThinking()
		s.assistant.AppendContent(d.Text)
		s.emit(s.assistant)

	case model.DeltaToolChunk:
		if s.assistant == nil {
			s.openTurn(d.TurnID)
		}
		// Accumulation does not emit; calls materialize at turn end.
		s.acc.Add(d.Chunk)

	case model.DeltaTurnEnd:
		if s.assistant != nil {
			s.closeTurn()
		}

	case model.DeltaError:
		err := d.Err
		if err == nil {
			err = fmt.Errorf("stream: provider reported an unspecified error")
		}
		s.abort()
		return err

	default:
		return fmt.Errorf("stream: unknown delta kind %v", d.Kind)
	}

	return nil
}

// LastAssistant returns the most recently closed assistant message of this
// call, or nil when the stream produced none.
func (s *Assembler) LastAssistant() *model.AssistantMessage {
	if len(s.closedAssistants) == 0 {
		return nil
	}
	return s.closedAssistants[len(s.closedAssistants)-1]
}

// ClosedAssistants returns every assistant message closed during this call,
// in emission order.
func (s *Assembler) ClosedAssistants() []*model.AssistantMessage {
	return s.closedAssistants
}

func (s *Assembler) openTurn(turnID string) {
	s.assistant = model.NewAssistantMessage(turnID)
	s.emit(s.assistant)
}

// mergeThinking folds the open thinking message into the assistant's
// reasoning trace and closes it. Thinking messages are ephemeral renderer
// state; only the assistant message reaches the transcript.
func (s *Assembler) mergeThinking() {
	if s.thinking == nil {
		return
	}
	s.thinking.Close()
	s.emit(s.thinking)
	s.assistant.AppendReasoning(s.thinking.Reasoning())
	s.thinking = nil
}

// closeTurn materializes accumulated tool calls, closes the assistant
// message, and resets per-turn state.
func (s *Assembler) closeTurn() {
	s.mergeThinking()

	for _, call := range s.acc.Complete() {
		s.assistant.AddToolCall(call)
	}
	s.acc.Reset()

	s.assistant.Close()
	s.emit(s.assistant)
	s.closedAssistants = append(s.closedAssistants, s.assistant)
	s.assistant = nil
}

// abort closes whatever is open without materializing tool calls. Called on
// a fatal stream error; the partial turn still reaches the renderer so the
// user sees what arrived before the failure.
func (s *Assembler) abort() {
	if s.thinking != nil {
		s.thinking.Close()
		s.emit(s.thinking)
		if s.assistant != nil {
			s.assistant.AppendReasoning(s.thinking.Reasoning())
		}
		s.thinking = nil
	}
	if s.assistant != nil {
		s.assistant.Close()
		s.emit(s.assistant)
		s.closedAssistants = append(s.closedAssistants, s.assistant)
		s.assistant = nil
	}
	s.acc.Reset()
}
