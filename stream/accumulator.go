// Package stream assembles a model call's incremental output into
// well-formed transcript messages: the Assembler drives Message lifecycles
// from the delta sequence, and the Accumulator merges fragmented tool-call
// chunks into invocable calls.
package stream

import (
	"encoding/json"
	"sort"

	"quill/config"
	"quill/model"
)

// partialCall is a tool call still being concatenated from chunks.
type partialCall struct {
	id   string
	name string
	args string
}

// Accumulator merges indexed tool-call chunks into complete calls. Chunks
// for the same index concatenate their fragments in arrival order; providers
// split a single JSON argument string across many chunks.
type Accumulator struct {
	partial map[int]*partialCall
}

func NewAccumulator() *Accumulator {
	return &Accumulator{partial: make(map[int]*partialCall)}
}

// Add concatenates one chunk onto the in-progress call at its index.
func (a *Accumulator) Add(chunk model.ToolCallChunk) {
	call, ok := a.partial[chunk.Index]
	if !ok {
		call = &partialCall{}
		a.partial[chunk.Index] = call
	}
	call.id += chunk.ID
	call.name += chunk.Name
	call.args += chunk.Args
}

// Complete returns the calls whose accumulated arguments parse as valid
// JSON, in index order. A call with a missing name or malformed arguments at
// turn end is dropped, not retried and not surfaced to the model: this
// mirrors upstream model behavior, where a truncated argument stream is an
// accepted loss rather than an invocation with corrupt arguments. Dropped
// calls are recorded in the debug log.
func (a *Accumulator) Complete() []model.ToolCall {
	indexes := make([]int, 0, len(a.partial))
	for i := range a.partial {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	calls := make([]model.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		p := a.partial[i]
		if p.name == "" || p.args == "" {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Accumulator] Dropping incomplete tool call at index %d (name=%q, args=%q)", i, p.name, p.args)
			}
			continue
		}

		var args map[string]any
		if err := json.Unmarshal([]byte(p.args), &args); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Accumulator] Dropping tool call %q at index %d: malformed arguments: %v", p.name, i, err)
			}
			continue
		}

		calls = append(calls, model.ToolCall{
			ID:   p.id,
			Name: p.name,
			Args: args,
		})
	}

	return calls
}

// Reset clears all accumulated state for the next turn.
func (a *Accumulator) Reset() {
	a.partial = make(map[int]*partialCall)
}
