// Package tools contains the tool execution gateway: tool resolution, the
// human confirmation gate for side-effecting tools, permission rule
// evaluation, and the conversion of every tool failure into an error-kind
// tool message. Nothing in this package throws past the gateway boundary.
package tools

import (
	"context"
	"errors"
	"fmt"

	"quill/model"
)

// Sentinel errors classifying tool failures. Tools wrap these with %w so the
// gateway can map a failure onto its transcript error kind.
var (
	ErrValidation = errors.New("invalid tool arguments")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrNetwork    = errors.New("network failure")
)

// KindOf maps an execution error onto the transcript error taxonomy.
// Cancellation is classified first: a tool killed by the user's abort is not
// a tool failure.
func KindOf(err error) model.ErrorKind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindCancelled
	case errors.Is(err, ErrValidation):
		return model.ErrorKindValidation
	case errors.Is(err, ErrPermission):
		return model.ErrorKindPermission
	case errors.Is(err, ErrNotFound):
		return model.ErrorKindNotFound
	case errors.Is(err, ErrNetwork):
		return model.ErrorKindNetwork
	default:
		return model.ErrorKindRuntime
	}
}

// StringArg extracts a required string argument, wrapping ErrValidation on
// absence or wrong type so the model sees a validation failure it can
// correct.
func StringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required argument %q", ErrValidation, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrValidation, key)
	}
	return s, nil
}

// OptionalStringArg extracts an optional string argument.
func OptionalStringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrValidation, key)
	}
	return s, nil
}
