package models

import (
	"encoding/json"
	"sort"
)

// Capability is a named feature flag advertised by an LLM provider,
// used for static negotiation before a request is built. Values are
// snake_case on the wire; unknown strings are carried as custom
// capabilities.
type Capability string

const (
	CapTextInput       Capability = "text_input"
	CapImageInput      Capability = "image_input"
	CapAudioInput      Capability = "audio_input"
	CapVideoInput      Capability = "video_input"
	CapFileInput       Capability = "file_input"
	CapTextOutput      Capability = "text_output"
	CapImageOutput     Capability = "image_output"
	CapAudioOutput     Capability = "audio_output"
	CapToolUse         Capability = "tool_use"
	CapStreaming       Capability = "streaming"
	CapJSONMode        Capability = "json_mode"
	CapSystemPrompt    Capability = "system_prompt"
	CapMultiTurn       Capability = "multi_turn"
	CapCodeExecution   Capability = "code_execution"
	CapWebBrowsing     Capability = "web_browsing"
	CapFunctionCalling Capability = "function_calling"
	CapVision          Capability = "vision"
)

// Capabilities is a set of provider capabilities.
type Capabilities map[Capability]struct{}

// NewCapabilities builds a set from the given capabilities.
func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// TextCapabilities is the baseline text-chat set.
func TextCapabilities() Capabilities {
	return NewCapabilities(CapTextInput, CapTextOutput, CapStreaming, CapSystemPrompt, CapMultiTurn)
}

// ToolCapabilities extends the baseline with tool use.
func ToolCapabilities() Capabilities {
	return TextCapabilities().With(CapToolUse, CapFunctionCalling)
}

// VisionCapabilities extends the baseline with image input.
func VisionCapabilities() Capabilities {
	return TextCapabilities().With(CapImageInput, CapVision)
}

// With returns a copy of the set with the given capabilities added.
func (c Capabilities) With(caps ...Capability) Capabilities {
	out := make(Capabilities, len(c)+len(caps))
	for k := range c {
		out[k] = struct{}{}
	}
	for _, k := range caps {
		out[k] = struct{}{}
	}
	return out
}

// Add inserts a capability, reporting whether it was new.
func (c Capabilities) Add(cap Capability) bool {
	if _, ok := c[cap]; ok {
		return false
	}
	c[cap] = struct{}{}
	return true
}

// Has reports whether the set contains cap.
func (c Capabilities) Has(cap Capability) bool {
	_, ok := c[cap]
	return ok
}

// HasAll reports whether the set contains every given capability.
func (c Capabilities) HasAll(caps ...Capability) bool {
	for _, cap := range caps {
		if !c.Has(cap) {
			return false
		}
	}
	return true
}

// HasAny reports whether the set contains at least one given capability.
func (c Capabilities) HasAny(caps ...Capability) bool {
	for _, cap := range caps {
		if c.Has(cap) {
			return true
		}
	}
	return false
}

func (c Capabilities) Len() int {
	return len(c)
}

// List returns the capabilities sorted by name.
func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array of strings.
func (c Capabilities) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.List())
}

// UnmarshalJSON decodes an array of strings into the set.
func (c *Capabilities) UnmarshalJSON(data []byte) error {
	var caps []Capability
	if err := json.Unmarshal(data, &caps); err != nil {
		return err
	}
	*c = NewCapabilities(caps...)
	return nil
}
