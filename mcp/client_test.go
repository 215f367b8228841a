package mcp

import (
	"context"
	"errors"
	"testing"

	"quill/model"
	"quill/tools"
)

func TestCallFailureClassification(t *testing.T) {
	err := callFailure("create_issue", errors.New("dial tcp: connection refused"))
	if !errors.Is(err, tools.ErrNetwork) {
		t.Errorf("transport failure should carry the network sentinel: %v", err)
	}
	if got := tools.KindOf(err); got != model.ErrorKindNetwork {
		t.Errorf("kind: got %q, want %q", got, model.ErrorKindNetwork)
	}

	cancelled := callFailure("create_issue", context.Canceled)
	if got := tools.KindOf(cancelled); got != model.ErrorKindCancelled {
		t.Errorf("cancelled call kind: got %q, want %q", got, model.ErrorKindCancelled)
	}
}
