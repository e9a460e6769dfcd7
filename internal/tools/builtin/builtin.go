// Package builtin provides the standard tool set: file access, directory
// listing, search, HTTP requests, shell execution, and system info. All
// tools honor the sandbox policy they are constructed with.
package builtin

import (
	"slices"

	"github.com/haasonsaas/strand/internal/tools"
)

// All returns every builtin tool constructed against the given policy.
func All(policy tools.SandboxPolicy) []tools.Tool {
	return []tools.Tool{
		NewReadFile(policy),
		NewWriteFile(policy),
		NewListDirectory(policy),
		NewSearchFiles(policy),
		NewHTTPRequest(policy),
		NewExecuteShell(policy),
		NewSystemInfo(),
	}
}

// RegisterBuiltins registers every builtin tool except those named in
// disabled. Registration stops at the first error.
func RegisterBuiltins(r *tools.Registry, policy tools.SandboxPolicy, disabled []string) error {
	for _, tool := range All(policy) {
		if slices.Contains(disabled, tool.Definition().Name) {
			continue
		}
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
