package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/strand/internal/tools"
)

// ReadFile reads a file from disk, optionally a line window of it.
type ReadFile struct {
	policy tools.SandboxPolicy
}

func NewReadFile(policy tools.SandboxPolicy) *ReadFile {
	return &ReadFile{policy: policy}
}

func (t *ReadFile) Definition() tools.Definition {
	return tools.Definition{
		Name:        "read_file",
		Description: "Read the contents of a file. Supports an optional line offset and limit for large files.",
		Category:    "filesystem",
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"path":   tools.StringSchema("Path to the file to read"),
			"offset": tools.IntegerSchema("Line number to start reading from (0-based)"),
			"limit":  tools.IntegerSchema("Maximum number of lines to return"),
		}, "path"),
	}
}

func (t *ReadFile) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		Path   string `json:"path"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "read_file", err.Error())
	}
	if err := t.policy.CheckPath(args.Path); err != nil {
		return tools.Output{}, err
	}

	info, err := os.Stat(args.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Fail(fmt.Sprintf("File not found: %s", args.Path)), nil
		}
		return tools.Fail(fmt.Sprintf("Cannot access %s: %v", args.Path, err)), nil
	}
	if info.IsDir() {
		return tools.Fail(fmt.Sprintf("%s is a directory, not a file", args.Path)), nil
	}
	if info.Size() > t.policy.FileSizeLimit() {
		return tools.Fail(fmt.Sprintf("File too large: %s (%d bytes)", args.Path, info.Size())), nil
	}

	data, err := os.ReadFile(args.Path)
	if err != nil {
		return tools.Fail(fmt.Sprintf("Cannot read %s: %v", args.Path, err)), nil
	}

	content := string(data)
	if args.Offset > 0 || args.Limit > 0 {
		lines := strings.Split(content, "\n")
		start := min(args.Offset, len(lines))
		end := len(lines)
		if args.Limit > 0 && start+args.Limit < end {
			end = start + args.Limit
		}
		content = strings.Join(lines[start:end], "\n")
	}
	return tools.OK(t.policy.Truncate(content)), nil
}

// WriteFile writes or appends content to a file, creating parent
// directories as needed.
type WriteFile struct {
	policy tools.SandboxPolicy
}

func NewWriteFile(policy tools.SandboxPolicy) *WriteFile {
	return &WriteFile{policy: policy}
}

func (t *WriteFile) Definition() tools.Definition {
	return tools.Definition{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories if needed. Set append to add to the end instead of overwriting.",
		Category:    "filesystem",
		Dangerous:   true,
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"path":    tools.StringSchema("Path to the file to write"),
			"content": tools.StringSchema("Content to write"),
			"append":  tools.BooleanSchema("Append instead of overwrite"),
		}, "path", "content"),
	}
}

func (t *WriteFile) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "write_file", err.Error())
	}
	if err := t.policy.CheckPath(args.Path); err != nil {
		return tools.Output{}, err
	}
	if int64(len(args.Content)) > t.policy.FileSizeLimit() {
		return tools.Fail(fmt.Sprintf("Content too large: %d bytes", len(args.Content))), nil
	}

	if dir := filepath.Dir(args.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return tools.Fail(fmt.Sprintf("Cannot create directory %s: %v", dir, err)), nil
		}
	}

	if args.Append {
		f, err := os.OpenFile(args.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return tools.Fail(fmt.Sprintf("Cannot open %s: %v", args.Path, err)), nil
		}
		defer f.Close()
		if _, err := f.WriteString(args.Content); err != nil {
			return tools.Fail(fmt.Sprintf("Cannot write %s: %v", args.Path, err)), nil
		}
	} else {
		if err := os.WriteFile(args.Path, []byte(args.Content), 0o644); err != nil {
			return tools.Fail(fmt.Sprintf("Cannot write %s: %v", args.Path, err)), nil
		}
	}
	return tools.OK(fmt.Sprintf("Successfully wrote to %s", args.Path)), nil
}
