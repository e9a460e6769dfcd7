// Package agent implements the sequential reasoning loop: it feeds
// conversation history to an LLM provider, executes the tool calls the
// model requests, and repeats until the model answers in plain text or
// the iteration budget runs out.
package agent

import (
	"encoding/json"
	"fmt"

	toml "github.com/pelletier/go-toml"
)

// Config controls one agent's behavior. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// Name identifies the agent in logs and events.
	Name string `json:"name" toml:"name"`

	// SystemPrompt is prepended to every completion.
	SystemPrompt string `json:"system_prompt" toml:"system_prompt"`

	// Model is the provider model id. Empty falls back to the provider
	// default at request time.
	Model string `json:"model" toml:"model"`

	Temperature float64 `json:"temperature" toml:"temperature"`
	MaxTokens   *int    `json:"max_tokens,omitempty" toml:"max_tokens,omitempty"`

	// MaxIterations bounds the reason/act loop per input.
	MaxIterations int `json:"max_iterations" toml:"max_iterations"`

	// MaxContextMessages bounds how much history each completion sees.
	MaxContextMessages int `json:"max_context_messages" toml:"max_context_messages"`

	// ToolTimeoutSecs is the per-call tool budget.
	ToolTimeoutSecs int `json:"tool_timeout_secs" toml:"tool_timeout_secs"`

	// ToolsEnabled gates tool attachment entirely.
	ToolsEnabled bool `json:"tools_enabled" toml:"tools_enabled"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Name:               "assistant",
		Model:              "gpt-4o",
		Temperature:        0.7,
		MaxIterations:      10,
		MaxContextMessages: 50,
		ToolTimeoutSecs:    60,
		ToolsEnabled:       true,
	}
}

// Validate checks the config for values the loop cannot run with.
func (c Config) Validate() error {
	if c.Model == "" {
		return NewError(KindInvalidConfig, "model must not be empty")
	}
	if c.MaxIterations < 1 {
		return NewError(KindInvalidConfig, fmt.Sprintf("max_iterations must be at least 1, got %d", c.MaxIterations))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return NewError(KindInvalidConfig, fmt.Sprintf("temperature must be in [0, 2], got %g", c.Temperature))
	}
	return nil
}

// ParseJSON decodes a config from JSON, applying defaults first so a
// partial document yields a runnable config.
func ParseJSON(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, NewError(KindInvalidConfig, "parse config: "+err.Error()).WithCause(err)
	}
	return cfg, nil
}

// ParseTOML decodes a config from TOML with the same default handling.
func ParseTOML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, NewError(KindInvalidConfig, "parse config: "+err.Error()).WithCause(err)
	}
	return cfg, nil
}
