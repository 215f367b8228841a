package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// killGracePeriod is how long a cancelled command gets to exit after the
// interrupt before it is killed at the process level.
const killGracePeriod = 5 * time.Second

// RunCommandTool executes a shell command. Side-effecting: the command text
// is the permission subject, so rules like "git status*" → allow and
// "rm *" → deny apply to it, and anything unmatched goes through the
// confirmation gate.
type RunCommandTool struct{}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Definition() mcptypes.Tool {
	return mcptypes.NewTool("run_command",
		mcptypes.WithDescription("Run a shell command and return its combined output."),
		mcptypes.WithString("command",
			mcptypes.Required(),
			mcptypes.Description("The command to run."),
		),
	)
}

// PermissionSubject matches permission rules against the command itself,
// not the tool name.
func (t *RunCommandTool) PermissionSubject(args map[string]any) string {
	command, _ := OptionalStringArg(args, "command")
	return command
}

func (t *RunCommandTool) Proposal(args map[string]any) string {
	command, _ := OptionalStringArg(args, "command")
	return "$ " + command
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any, opts ExecOpts) (string, error) {
	command, err := StringArg(args, "command")
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	// Cooperative first: interrupt on cancel, hard kill after the grace
	// period for commands that cannot be interrupted mid-effect.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = killGracePeriod

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("command cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("command failed: %w\n%s", err, strings.TrimSpace(string(output)))
	}

	result := strings.TrimSpace(string(output))
	if result == "" {
		result = "(no output)"
	}
	return result, nil
}
