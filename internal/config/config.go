// Package config loads, merges, and validates runtime configuration
// from YAML, JSON5, or TOML files, with $include composition,
// environment expansion, and STRAND_* overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the root configuration document.
type Config struct {
	General   GeneralConfig             `yaml:"general" json:"general"`
	Agent     AgentConfig               `yaml:"agent" json:"agent"`
	Providers map[string]ProviderConfig `yaml:"providers" json:"providers"`
	Storage   StorageConfig             `yaml:"storage" json:"storage"`
	Tools     ToolsConfig               `yaml:"tools" json:"tools"`
	Security  SecurityConfig            `yaml:"security" json:"security"`
	Server    ServerConfig              `yaml:"server" json:"server"`
	Telemetry TelemetryConfig           `yaml:"telemetry" json:"telemetry"`
}

type GeneralConfig struct {
	DataDir             string `yaml:"data_dir" json:"data_dir"`
	LogLevel            string `yaml:"log_level" json:"log_level"`
	LogFormat           string `yaml:"log_format" json:"log_format"`
	MaxConcurrentAgents int    `yaml:"max_concurrent_agents" json:"max_concurrent_agents"`
}

// AgentConfig mirrors the agent's own configuration in file form.
type AgentConfig struct {
	Name         string `yaml:"name" json:"name"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`

	// Provider selects the LLM backend: "openai", "anthropic", or
	// "google".
	Provider string `yaml:"provider" json:"provider"`

	Model              string  `yaml:"model" json:"model"`
	Temperature        float64 `yaml:"temperature" json:"temperature"`
	MaxTokens          *int    `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	MaxIterations      int     `yaml:"max_iterations" json:"max_iterations"`
	MaxContextMessages int     `yaml:"max_context_messages" json:"max_context_messages"`
	ToolTimeoutSecs    int     `yaml:"tool_timeout_secs" json:"tool_timeout_secs"`
	ToolsEnabled       *bool   `yaml:"tools_enabled,omitempty" json:"tools_enabled,omitempty"`
}

type ProviderConfig struct {
	APIKey       string `yaml:"api_key" json:"api_key"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
	DefaultModel string `yaml:"default_model" json:"default_model"`
}

type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

type ToolsConfig struct {
	BuiltinEnabled *bool    `yaml:"builtin_enabled,omitempty" json:"builtin_enabled,omitempty"`
	Disabled       []string `yaml:"disabled" json:"disabled"`
}

type SecurityConfig struct {
	// Mode is "normal", "strict", or "autonomous".
	Mode                              string   `yaml:"mode" json:"mode"`
	DangerousToolsRequireConfirmation *bool    `yaml:"dangerous_tools_require_confirmation,omitempty" json:"dangerous_tools_require_confirmation,omitempty"`
	AllowedPaths                      []string `yaml:"allowed_paths" json:"allowed_paths"`
	BlockedDomains                    []string `yaml:"blocked_domains" json:"blocked_domains"`
}

type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
	MetricsAddr  string  `yaml:"metrics_addr" json:"metrics_addr"`
}

// Addr returns the server's host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the stock configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.DataDir == "" {
		cfg.General.DataDir = "~/.strand"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.General.MaxConcurrentAgents == 0 {
		cfg.General.MaxConcurrentAgents = 10
	}

	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "assistant"
	}
	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = "openai"
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gpt-4o"
	}
	if cfg.Agent.Temperature == 0 {
		cfg.Agent.Temperature = 0.7
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 10
	}
	if cfg.Agent.MaxContextMessages == 0 {
		cfg.Agent.MaxContextMessages = 50
	}
	if cfg.Agent.ToolTimeoutSecs == 0 {
		cfg.Agent.ToolTimeoutSecs = 60
	}
	if cfg.Agent.ToolsEnabled == nil {
		cfg.Agent.ToolsEnabled = boolPtr(true)
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}

	if cfg.Tools.BuiltinEnabled == nil {
		cfg.Tools.BuiltinEnabled = boolPtr(true)
	}

	if cfg.Security.Mode == "" {
		cfg.Security.Mode = "normal"
	}
	if cfg.Security.DangerousToolsRequireConfirmation == nil {
		cfg.Security.DangerousToolsRequireConfirmation = boolPtr(true)
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}

	if cfg.Telemetry.SamplingRate == 0 {
		cfg.Telemetry.SamplingRate = 1.0
	}
}

func boolPtr(b bool) *bool { return &b }

// Validate rejects values the runtime cannot start with.
func (c *Config) Validate() error {
	switch c.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.General.LogLevel)
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q (memory or sqlite)", c.Storage.Backend)
	}
	switch c.Security.Mode {
	case "normal", "strict", "autonomous":
	default:
		return fmt.Errorf("invalid security mode %q", c.Security.Mode)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Agent.Provider {
	case "openai", "anthropic", "google":
	default:
		return fmt.Errorf("invalid provider %q (openai, anthropic, or google)", c.Agent.Provider)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent max_iterations must be at least 1")
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("telemetry sampling_rate must be in [0, 1]")
	}
	return nil
}

// ExpandDataDir resolves a leading ~ in the data dir against the user's
// home directory.
func (c *Config) ExpandDataDir() string {
	dir := c.General.DataDir
	if strings.HasPrefix(dir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

// envOverrides maps STRAND_* environment variables onto config fields.
// Set variables always win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STRAND_DATA_DIR"); v != "" {
		c.General.DataDir = v
	}
	if v := os.Getenv("STRAND_LOG_LEVEL"); v != "" {
		c.General.LogLevel = v
	}
	if v := os.Getenv("STRAND_PROVIDER"); v != "" {
		c.Agent.Provider = v
	}
	if v := os.Getenv("STRAND_MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("STRAND_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("STRAND_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("STRAND_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STRAND_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("STRAND_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	for _, name := range []string{"openai", "anthropic", "google"} {
		key := "STRAND_" + strings.ToUpper(name) + "_API_KEY"
		if v := os.Getenv(key); v != "" {
			p := c.Providers[name]
			p.APIKey = v
			c.Providers[name] = p
		}
	}
}
