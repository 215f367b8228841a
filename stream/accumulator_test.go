package stream

import (
	"reflect"
	"testing"

	"quill/model"
)

func TestAccumulatorMergesFragments(t *testing.T) {
	acc := NewAccumulator()

	// A single call split across chunks: the id, name and JSON argument
	// string all arrive in fragments.
	acc.Add(model.ToolCallChunk{Index: 0, ID: "call_", Name: "read_"})
	acc.Add(model.ToolCallChunk{Index: 0, ID: "1", Name: "file"})
	acc.Add(model.ToolCallChunk{Index: 0, Args: `{"path":`})
	acc.Add(model.ToolCallChunk{Index: 0, Args: ` "notes/a.md"}`})

	calls := acc.Complete()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	want := model.ToolCall{
		ID:   "call_1",
		Name: "read_file",
		Args: map[string]any{"path": "notes/a.md"},
	}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("got %+v, want %+v", calls[0], want)
	}
}

func TestAccumulatorArrivalOrderAssociativity(t *testing.T) {
	// Feeding chunks for distinct indexes in any interleaving that keeps
	// per-index field order yields the same final calls.
	chunkSets := [][]model.ToolCallChunk{
		{
			{Index: 0, ID: "a", Name: "alpha", Args: `{"x":`},
			{Index: 1, ID: "b", Name: "beta", Args: `{"y":2}`},
			{Index: 0, Args: `1}`},
		},
		{
			{Index: 1, ID: "b", Name: "beta", Args: `{"y":2}`},
			{Index: 0, ID: "a", Name: "alpha", Args: `{"x":`},
			{Index: 0, Args: `1}`},
		},
		{
			{Index: 0, ID: "a", Name: "alpha", Args: `{"x":`},
			{Index: 0, Args: `1}`},
			{Index: 1, ID: "b", Name: "beta", Args: `{"y":2}`},
		},
	}

	var reference []model.ToolCall
	for i, chunks := range chunkSets {
		acc := NewAccumulator()
		for _, c := range chunks {
			acc.Add(c)
		}
		calls := acc.Complete()

		if i == 0 {
			reference = calls
			continue
		}
		if !reflect.DeepEqual(calls, reference) {
			t.Errorf("interleaving %d: got %+v, want %+v", i, calls, reference)
		}
	}

	if len(reference) != 2 || reference[0].Name != "alpha" || reference[1].Name != "beta" {
		t.Errorf("index order not preserved: %+v", reference)
	}
}

func TestAccumulatorDropsMalformedCalls(t *testing.T) {
	tests := []struct {
		name   string
		chunks []model.ToolCallChunk
		want   int
	}{
		{
			name: "truncated JSON args",
			chunks: []model.ToolCallChunk{
				{Index: 0, ID: "a", Name: "search", Args: `{"query": "unfini`},
			},
			want: 0,
		},
		{
			name: "missing name",
			chunks: []model.ToolCallChunk{
				{Index: 0, ID: "a", Args: `{"query": "x"}`},
			},
			want: 0,
		},
		{
			name: "empty args",
			chunks: []model.ToolCallChunk{
				{Index: 0, ID: "a", Name: "search"},
			},
			want: 0,
		},
		{
			name: "malformed call does not poison its neighbors",
			chunks: []model.ToolCallChunk{
				{Index: 0, ID: "a", Name: "search", Args: `{"broken":`},
				{Index: 1, ID: "b", Name: "read_file", Args: `{"path": "a.md"}`},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			for _, c := range tt.chunks {
				acc.Add(c)
			}
			if got := len(acc.Complete()); got != tt.want {
				t.Errorf("got %d calls, want %d", got, tt.want)
			}
		})
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.ToolCallChunk{Index: 0, Name: "search", Args: `{"q":"x"}`})
	acc.Reset()
	if got := len(acc.Complete()); got != 0 {
		t.Errorf("got %d calls after reset, want 0", got)
	}
}
