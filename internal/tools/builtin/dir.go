package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/haasonsaas/strand/internal/tools"
)

type dirEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// ListDirectory lists a directory, optionally recursing into
// subdirectories.
type ListDirectory struct {
	policy tools.SandboxPolicy
}

func NewListDirectory(policy tools.SandboxPolicy) *ListDirectory {
	return &ListDirectory{policy: policy}
}

func (t *ListDirectory) Definition() tools.Definition {
	return tools.Definition{
		Name:        "list_directory",
		Description: "List the entries of a directory as JSON. Set recursive to walk subdirectories.",
		Category:    "filesystem",
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"path":      tools.StringSchema("Directory to list"),
			"recursive": tools.BooleanSchema("Recurse into subdirectories"),
		}, "path"),
	}
}

func (t *ListDirectory) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "list_directory", err.Error())
	}
	if err := t.policy.CheckPath(args.Path); err != nil {
		return tools.Output{}, err
	}

	var entries []dirEntry
	if args.Recursive {
		err := filepath.WalkDir(args.Path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == args.Path {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			entries = append(entries, dirEntry{
				Name:  d.Name(),
				Path:  path,
				IsDir: d.IsDir(),
				Size:  info.Size(),
			})
			return nil
		})
		if err != nil {
			return tools.Fail(fmt.Sprintf("Cannot list %s: %v", args.Path, err)), nil
		}
	} else {
		dirEntries, err := os.ReadDir(args.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return tools.Fail(fmt.Sprintf("Directory not found: %s", args.Path)), nil
			}
			return tools.Fail(fmt.Sprintf("Cannot list %s: %v", args.Path, err)), nil
		}
		for _, d := range dirEntries {
			info, err := d.Info()
			if err != nil {
				continue
			}
			entries = append(entries, dirEntry{
				Name:  d.Name(),
				Path:  filepath.Join(args.Path, d.Name()),
				IsDir: d.IsDir(),
				Size:  info.Size(),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	if entries == nil {
		entries = []dirEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return tools.Output{}, tools.NewError(tools.KindExecution, "list_directory", err.Error()).WithCause(err)
	}
	return tools.OK(t.policy.Truncate(string(data))), nil
}

// SearchFiles matches file names against a glob pattern under a root.
type SearchFiles struct {
	policy tools.SandboxPolicy
}

func NewSearchFiles(policy tools.SandboxPolicy) *SearchFiles {
	return &SearchFiles{policy: policy}
}

func (t *SearchFiles) Definition() tools.Definition {
	return tools.Definition{
		Name:        "search_files",
		Description: "Find files under a directory whose names match a glob pattern (e.g. *.go).",
		Category:    "filesystem",
		Parameters: tools.ObjectSchema(map[string]*tools.Schema{
			"path":    tools.StringSchema("Directory to search under"),
			"pattern": tools.StringSchema("Glob pattern to match file names against"),
		}, "path", "pattern"),
	}
}

func (t *SearchFiles) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	var args struct {
		Path    string `json:"path"`
		Pattern string `json:"pattern"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return tools.Output{}, tools.NewError(tools.KindInvalidInput, "search_files", err.Error())
	}
	if err := t.policy.CheckPath(args.Path); err != nil {
		return tools.Output{}, err
	}
	if _, err := filepath.Match(args.Pattern, "probe"); err != nil {
		return tools.Fail(fmt.Sprintf("Invalid pattern %q: %v", args.Pattern, err)), nil
	}

	var matches []string
	err := filepath.WalkDir(args.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, _ := filepath.Match(args.Pattern, d.Name())
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return tools.Fail(fmt.Sprintf("Cannot search %s: %v", args.Path, err)), nil
	}

	sort.Strings(matches)
	if matches == nil {
		matches = []string{}
	}
	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return tools.Output{}, tools.NewError(tools.KindExecution, "search_files", err.Error()).WithCause(err)
	}
	return tools.OK(t.policy.Truncate(string(data))), nil
}
