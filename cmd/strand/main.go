// Package main is the strand CLI: an interactive chat REPL, one-shot
// prompt execution, and an HTTP server around the agent runtime.
//
// # Basic Usage
//
// Chat interactively:
//
//	strand chat
//
// Run a single prompt:
//
//	strand run "summarize this repository"
//
// Serve the HTTP API:
//
//	strand serve --port 3000
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/strand/internal/agent"
	"github.com/haasonsaas/strand/internal/config"
	"github.com/haasonsaas/strand/internal/llm"
	"github.com/haasonsaas/strand/internal/llm/anthropic"
	"github.com/haasonsaas/strand/internal/llm/google"
	"github.com/haasonsaas/strand/internal/llm/openai"
	"github.com/haasonsaas/strand/internal/observability"
	"github.com/haasonsaas/strand/internal/tools"
	"github.com/haasonsaas/strand/internal/tools/builtin"
)

// Build information, populated by ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagAPIKey   string
	flagProvider string
	flagModel    string
	flagVerbose  int
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strand",
		Short: "strand - LLM agent runtime",
		Long: `Strand runs LLM agents with tool execution: an interactive REPL,
one-shot prompts, and an HTTP/SSE server.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Provider API key (or set OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: openai, anthropic, or google (default openai)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model id (default gpt-4o)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "Increase log verbosity")

	rootCmd.AddCommand(
		buildChatCmd(),
		buildRunCmd(),
		buildServeCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strand %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// loadConfig reads the file config when --config is set, otherwise
// starts from defaults. -v raises the log level to debug.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if flagVerbose > 0 {
		cfg.General.LogLevel = "debug"
	}
	if flagProvider != "" {
		cfg.Agent.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Agent.Model = flagModel
	}
	return cfg, nil
}

// apiKeyEnvVars maps provider names to their conventional environment
// variables.
var apiKeyEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GEMINI_API_KEY",
}

// resolveAPIKey prefers the flag, then the config file, then the
// environment.
func resolveAPIKey(cfg *config.Config, provider string) (string, error) {
	if flagAPIKey != "" {
		return flagAPIKey, nil
	}
	if p, ok := cfg.Providers[provider]; ok && p.APIKey != "" {
		return p.APIKey, nil
	}
	envVar := apiKeyEnvVars[provider]
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("API key required. Set %s env var or use --api-key", envVar)
}

func newLogger(cfg *config.Config) *observability.Logger {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.General.LogLevel,
		Format: cfg.General.LogFormat,
		Output: os.Stderr,
	})
	slog.SetDefault(logger.Slog())
	return logger
}

// buildRegistry assembles the builtin tool registry honoring the
// configured sandbox and disabled list.
func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	if cfg.Tools.BuiltinEnabled != nil && !*cfg.Tools.BuiltinEnabled {
		return nil, nil
	}
	policy := tools.DefaultSandboxPolicy()
	policy.AllowedPaths = cfg.Security.AllowedPaths
	policy.BlockedHosts = cfg.Security.BlockedDomains
	if cfg.Security.Mode == "autonomous" {
		policy.AllowShell = true
	}

	registry := tools.NewRegistry()
	if err := builtin.RegisterBuiltins(registry, policy, cfg.Tools.Disabled); err != nil {
		return nil, err
	}
	return registry, nil
}

// buildProvider constructs the configured LLM backend.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	name := cfg.Agent.Provider
	apiKey, err := resolveAPIKey(cfg, name)
	if err != nil {
		return nil, err
	}
	pc := cfg.Providers[name]

	switch name {
	case "openai":
		return openai.New(openai.Config{
			APIKey:       apiKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.DefaultModel,
		})
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:       apiKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.DefaultModel,
		})
	case "google":
		return google.New(context.Background(), google.Config{
			APIKey:       apiKey,
			DefaultModel: pc.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// buildAgent wires the provider, tools, and observability into one
// agent.
func buildAgent(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) (*agent.Agent, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{
		agent.WithProvider(provider),
		agent.WithName(cfg.Agent.Name),
		agent.WithModel(cfg.Agent.Model),
		agent.WithTemperature(cfg.Agent.Temperature),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithMaxContextMessages(cfg.Agent.MaxContextMessages),
		agent.WithToolTimeout(cfg.Agent.ToolTimeoutSecs),
		agent.WithLogger(logger),
	}
	if cfg.Agent.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	if cfg.Agent.MaxTokens != nil {
		opts = append(opts, agent.WithMaxTokens(*cfg.Agent.MaxTokens))
	}
	if cfg.Agent.ToolsEnabled != nil {
		opts = append(opts, agent.WithToolsEnabled(*cfg.Agent.ToolsEnabled))
	}
	if registry != nil {
		opts = append(opts, agent.WithRegistry(registry))
	}
	if metrics != nil {
		opts = append(opts, agent.WithMetrics(metrics))
	}
	if tracer != nil {
		opts = append(opts, agent.WithTracer(tracer))
	}
	return agent.New(opts...)
}
