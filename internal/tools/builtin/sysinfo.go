package builtin

import (
	"context"
	"encoding/json"
	"os"
	"runtime"

	"github.com/haasonsaas/strand/internal/tools"
)

// envVarsExposed is the allowlist of environment variables the system
// info tool may reveal. Secrets never belong here.
var envVarsExposed = []string{"HOME", "USER", "SHELL", "LANG", "PATH", "TERM", "TZ"}

// SystemInfo reports basic host and process details.
type SystemInfo struct{}

func NewSystemInfo() *SystemInfo {
	return &SystemInfo{}
}

func (t *SystemInfo) Definition() tools.Definition {
	return tools.Definition{
		Name:        "get_system_info",
		Description: "Get information about the operating system, the current process, and selected environment variables.",
		Category:    "system",
		Parameters:  tools.ObjectSchema(nil),
	}
}

func (t *SystemInfo) Execute(ctx context.Context, input json.RawMessage) (tools.Output, error) {
	cwd, _ := os.Getwd()

	env := make(map[string]string)
	for _, name := range envVarsExposed {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}

	info := map[string]any{
		"os": map[string]any{
			"name":    runtime.GOOS,
			"arch":    runtime.GOARCH,
			"num_cpu": runtime.NumCPU(),
		},
		"process": map[string]any{
			"pid": os.Getpid(),
			"cwd": cwd,
		},
		"env": env,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return tools.Output{}, tools.NewError(tools.KindExecution, "get_system_info", err.Error()).WithCause(err)
	}
	return tools.OK(string(data)), nil
}
