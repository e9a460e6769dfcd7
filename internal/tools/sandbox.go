package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// SandboxPolicy restricts what filesystem, network, and shell access
// builtin tools may use. Deny rules dominate allow rules; an empty allow
// list means everything not denied is allowed.
type SandboxPolicy struct {
	// AllowedPaths restricts file access to these directory prefixes.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths"`

	// BlockedPaths are denied regardless of AllowedPaths.
	BlockedPaths []string `json:"blocked_paths,omitempty" yaml:"blocked_paths"`

	// AllowNetwork permits the http_request tool. Default true.
	AllowNetwork bool `json:"allow_network" yaml:"allow_network"`

	// AllowedHosts restricts outbound requests to these hostnames.
	// Empty means any host not blocked.
	AllowedHosts []string `json:"allowed_hosts,omitempty" yaml:"allowed_hosts"`

	// BlockedHosts are denied regardless of AllowedHosts.
	BlockedHosts []string `json:"blocked_hosts,omitempty" yaml:"blocked_hosts"`

	// AllowShell permits execute_shell. Default false.
	AllowShell bool `json:"allow_shell" yaml:"allow_shell"`

	// MaxFileSize bounds file reads and writes in bytes. Default 10MB.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxOutputSize bounds tool output in bytes. Default 1MB.
	MaxOutputSize int `json:"max_output_size" yaml:"max_output_size"`
}

// DefaultSandboxPolicy permits network, denies shell, and applies the
// default size bounds.
func DefaultSandboxPolicy() SandboxPolicy {
	return SandboxPolicy{
		AllowNetwork:  true,
		AllowShell:    false,
		MaxFileSize:   10 << 20,
		MaxOutputSize: 1 << 20,
	}
}

// CheckPath reports whether the policy permits access to path. The path
// is cleaned and absolutized before prefix checks so ".." tricks cannot
// escape an allow list.
func (p SandboxPolicy) CheckPath(path string) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return NewError(KindPermissionDenied, "", fmt.Sprintf("cannot resolve path %q: %v", path, err))
	}

	for _, blocked := range p.BlockedPaths {
		if pathHasPrefix(abs, blocked) {
			return NewError(KindPermissionDenied, "", fmt.Sprintf("path %q is blocked by sandbox policy", path))
		}
	}
	if len(p.AllowedPaths) == 0 {
		return nil
	}
	for _, allowed := range p.AllowedPaths {
		if pathHasPrefix(abs, allowed) {
			return nil
		}
	}
	return NewError(KindPermissionDenied, "", fmt.Sprintf("path %q is outside the allowed paths", path))
}

// CheckNetwork reports whether outbound network access is permitted.
func (p SandboxPolicy) CheckNetwork() error {
	if !p.AllowNetwork {
		return NewError(KindPermissionDenied, "", "network access is disabled by sandbox policy")
	}
	return nil
}

// CheckHost reports whether the policy permits an outbound request to
// host. Hostnames compare case-insensitively, without ports.
func (p SandboxPolicy) CheckHost(host string) error {
	if err := p.CheckNetwork(); err != nil {
		return err
	}

	host = strings.ToLower(host)
	for _, blocked := range p.BlockedHosts {
		if host == strings.ToLower(blocked) {
			return NewError(KindPermissionDenied, "", fmt.Sprintf("host %q is blocked by sandbox policy", host))
		}
	}
	if len(p.AllowedHosts) == 0 {
		return nil
	}
	for _, allowed := range p.AllowedHosts {
		if host == strings.ToLower(allowed) {
			return nil
		}
	}
	return NewError(KindPermissionDenied, "", fmt.Sprintf("host %q is outside the allowed hosts", host))
}

// CheckShell reports whether shell execution is permitted.
func (p SandboxPolicy) CheckShell() error {
	if !p.AllowShell {
		return NewError(KindPermissionDenied, "", "shell execution is disabled by sandbox policy")
	}
	return nil
}

// FileSizeLimit returns the effective max file size.
func (p SandboxPolicy) FileSizeLimit() int64 {
	if p.MaxFileSize <= 0 {
		return 10 << 20
	}
	return p.MaxFileSize
}

// OutputSizeLimit returns the effective max output size.
func (p SandboxPolicy) OutputSizeLimit() int {
	if p.MaxOutputSize <= 0 {
		return 1 << 20
	}
	return p.MaxOutputSize
}

// Truncate clips s to the policy's output limit, appending a marker when
// anything was dropped.
func (p SandboxPolicy) Truncate(s string) string {
	limit := p.OutputSizeLimit()
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (output truncated)"
}

func pathHasPrefix(abs, prefix string) bool {
	cleaned, err := filepath.Abs(filepath.Clean(prefix))
	if err != nil {
		return false
	}
	if abs == cleaned {
		return true
	}
	return strings.HasPrefix(abs, cleaned+string(filepath.Separator))
}

// Sandboxed wraps a tool with a policy gate that runs before every
// execution. Tools that do their own path checks still get the outer
// gate for shell and network categories.
type Sandboxed struct {
	tool   Tool
	policy SandboxPolicy
	check  func(SandboxPolicy) error
}

// NewSandboxed wraps tool so that check runs against the policy before
// each execution.
func NewSandboxed(tool Tool, policy SandboxPolicy, check func(SandboxPolicy) error) *Sandboxed {
	return &Sandboxed{tool: tool, policy: policy, check: check}
}

func (s *Sandboxed) Definition() Definition {
	return s.tool.Definition()
}

func (s *Sandboxed) Execute(ctx context.Context, input json.RawMessage) (Output, error) {
	if s.check != nil {
		if err := s.check(s.policy); err != nil {
			return Output{}, err
		}
	}
	return s.tool.Execute(ctx, input)
}
