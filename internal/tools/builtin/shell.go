package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/haasonsaas/strand/internal/tools"
)

const defaultShellTimeout = 30 * time.Second

// ExecuteShell runs a command through the system shell. Disabled unless
// the sandbox policy sets AllowShell.
type ExecuteShell struct {
	policy tools.SandboxPolicy
}

func NewExecuteShell(policy tools.SandboxPolicy) *ExecuteShell {
	return &ExecuteShell{policy: policy}
}

func (t *ExecuteShell) Definition() tools.Definition {
	return tools.Definition{
		Name:        "execute_shell",
		Description: "Run a shell command and return its exit code, stdout, and stderr as JSON.",
		Category:    "system",
		Dangerous:   true,
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"command":    tools.StringSchema("Command to run via sh -c"),
			"timeout_ms": tools.IntegerSchema("Timeout in milliseconds (default 30000)"),
		}, "command"),
	}
}

func (t *ExecuteShell) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		Command   string `json:"command"`
		TimeoutMS int    `json:"timeout_ms"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "execute_shell", err.Error())
	}
	if err := t.policy.CheckShell(); err != nil {
		return tools.Output{}, err
	}

	timeout := defaultShellTimeout
	if args.TimeoutMS > 0 {
		timeout = time.Duration(args.TimeoutMS) * time.Millisecond
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", args.Command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return tools.Fail(fmt.Sprintf("Command timed out after %dms", timeout.Milliseconds())), nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return tools.Fail(fmt.Sprintf("Cannot run command: %v", err)), nil
		}
	}

	result := map[string]any{
		"exit_code": exitCode,
		"stdout":    t.policy.Truncate(stdout.String()),
		"stderr":    t.policy.Truncate(stderr.String()),
		"success":   exitCode == 0,
	}
	data, jerr := json.MarshalIndent(result, "", "  ")
	if jerr != nil {
		return tools.Output{}, tools.NewError(tools.KindExecution, "execute_shell", jerr.Error()).WithCause(jerr)
	}
	if exitCode != 0 {
		return tools.Fail(string(data)), nil
	}
	return tools.OK(string(data)), nil
}
