package model

// ToolCall is a structured request, emitted by the model, to invoke a named
// tool with the given arguments.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCallChunk is one streamed fragment of a tool call. Providers may split
// a single call across many chunks, all sharing the same index; each field
// is a fragment to be concatenated onto the fragments that arrived before
// it.
type ToolCallChunk struct {
	Index int
	ID    string
	Name  string
	Args  string
}

// DeltaKind discriminates the incremental units of model output.
type DeltaKind int

const (
	// DeltaTurnStart opens a new logical assistant turn.
	DeltaTurnStart DeltaKind = iota
	// DeltaReasoning carries a fragment of the model's thinking trace.
	DeltaReasoning
	// DeltaContent carries a fragment of normal response text.
	DeltaContent
	// DeltaToolChunk carries a tool call fragment.
	DeltaToolChunk
	// DeltaTurnEnd closes the current turn.
	DeltaTurnEnd
	// DeltaError reports a fatal stream failure. No further deltas follow.
	DeltaError
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaTurnStart:
		return "turn-start"
	case DeltaReasoning:
		return "reasoning"
	case DeltaContent:
		return "content"
	case DeltaToolChunk:
		return "tool-chunk"
	case DeltaTurnEnd:
		return "turn-end"
	case DeltaError:
		return "error"
	default:
		return "unknown"
	}
}

// Delta is one incremental unit of model output. TurnID identifies the
// upstream turn the delta belongs to; providers that do not tag
// continuation deltas leave it empty.
type Delta struct {
	Kind   DeltaKind
	TurnID string
	Text   string
	Chunk  ToolCallChunk
	Err    error
}

// DeltaFunc receives deltas in strict arrival order. Returning an error
// aborts the stream.
type DeltaFunc func(Delta) error
