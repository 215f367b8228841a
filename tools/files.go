package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/model"
)

// ReadFileTool reads a file from the workspace. Pure: no confirmation gate.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Definition() mcptypes.Tool {
	return mcptypes.NewTool("read_file",
		mcptypes.WithDescription("Read the contents of a file at the given path."),
		mcptypes.WithString("path",
			mcptypes.Required(),
			mcptypes.Description("Path of the file to read."),
		),
	)
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any, opts ExecOpts) (string, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}

// EditFileTool replaces text in a file (or writes it whole). Side-effecting:
// it proposes the change for confirmation and snapshots the prior content so
// the edit can be undone.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Definition() mcptypes.Tool {
	return mcptypes.NewTool("edit_file",
		mcptypes.WithDescription("Replace old_text with new_text in a file. With empty old_text the whole file is written (created if missing)."),
		mcptypes.WithString("path",
			mcptypes.Required(),
			mcptypes.Description("Path of the file to edit."),
		),
		mcptypes.WithString("old_text",
			mcptypes.Description("Exact text to replace. Empty to write the whole file."),
		),
		mcptypes.WithString("new_text",
			mcptypes.Required(),
			mcptypes.Description("Replacement text."),
		),
	)
}

// Proposal renders the pending change for the confirmation gate.
func (t *EditFileTool) Proposal(args map[string]any) string {
	path, _ := OptionalStringArg(args, "path")
	oldText, _ := OptionalStringArg(args, "old_text")
	newText, _ := OptionalStringArg(args, "new_text")

	var sb strings.Builder
	fmt.Fprintf(&sb, "edit %s\n", path)
	if oldText != "" {
		for _, line := range strings.Split(strings.TrimRight(oldText, "\n"), "\n") {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	for _, line := range strings.Split(strings.TrimRight(newText, "\n"), "\n") {
		fmt.Fprintf(&sb, "+ %s\n", line)
	}
	return sb.String()
}

// Snapshot records the file's current content before the edit is applied.
func (t *EditFileTool) Snapshot(args map[string]any) (*model.Snapshot, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Snapshot{Path: path, Existed: false}, nil
		}
		return nil, fmt.Errorf("failed to snapshot %s: %w", path, err)
	}

	return &model.Snapshot{Path: path, PriorContent: string(data), Existed: true}, nil
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]any, opts ExecOpts) (string, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return "", err
	}
	oldText, err := OptionalStringArg(args, "old_text")
	if err != nil {
		return "", err
	}
	newText, err := StringArg(args, "new_text")
	if err != nil {
		return "", err
	}

	if oldText == "" {
		if err := os.WriteFile(path, []byte(newText), 0644); err != nil {
			if os.IsPermission(err) {
				return "", fmt.Errorf("%w: %s", ErrPermission, path)
			}
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return fmt.Sprintf("Wrote %s (%d bytes)", path, len(newText)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(data)
	count := strings.Count(content, oldText)
	if count == 0 {
		return "", fmt.Errorf("%w: old_text not found in %s", ErrValidation, path)
	}
	if count > 1 {
		return "", fmt.Errorf("%w: old_text matches %d locations in %s; provide more context", ErrValidation, count, path)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return fmt.Sprintf("Edited %s", path), nil
}
