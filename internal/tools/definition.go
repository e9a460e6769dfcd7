package tools

import (
	"context"
	"encoding/json"
)

// Schema is the JSON Schema subset used to describe tool parameters:
// enough for every major provider's function-calling format.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// ObjectSchema builds an object schema from named properties.
func ObjectSchema(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// StringSchema builds a string property schema.
func StringSchema(desc string) *Schema {
	return &Schema{Type: "string", Description: desc}
}

// IntegerSchema builds an integer property schema.
func IntegerSchema(desc string) *Schema {
	return &Schema{Type: "integer", Description: desc}
}

// NumberSchema builds a number property schema.
func NumberSchema(desc string) *Schema {
	return &Schema{Type: "number", Description: desc}
}

// BooleanSchema builds a boolean property schema.
func BooleanSchema(desc string) *Schema {
	return &Schema{Type: "boolean", Description: desc}
}

// ArraySchema builds an array schema with the given item type.
func ArraySchema(items *Schema, desc string) *Schema {
	return &Schema{Type: "array", Items: items, Description: desc}
}

// Definition describes a tool to the model and to operators.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`

	// Dangerous marks tools with side effects that a host may want to
	// confirm before running. It is advisory; the executor never blocks
	// on it.
	Dangerous bool   `json:"dangerous,omitempty"`
	Category  string `json:"category,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ParametersJSON returns the parameter schema as raw JSON, substituting
// an empty object schema when none is set.
func (d Definition) ParametersJSON() json.RawMessage {
	params := d.Parameters
	if params == nil {
		params = &Schema{Type: "object"}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// ArtifactDataType discriminates how artifact content is carried.
type ArtifactDataType string

const (
	ArtifactText   ArtifactDataType = "text"
	ArtifactBase64 ArtifactDataType = "base64"
	ArtifactFile   ArtifactDataType = "file"
)

// ArtifactData locates artifact content: inline text, inline base64
// bytes, or a path on disk.
type ArtifactData struct {
	Type ArtifactDataType `json:"type"`
	Text string           `json:"text,omitempty"`
	Data string           `json:"data,omitempty"`
	Path string           `json:"path,omitempty"`
}

// Artifact is a named supplementary product of a tool execution, such
// as a generated file, beyond the content shown to the model.
type Artifact struct {
	Name        string       `json:"name"`
	ContentType string       `json:"content_type"`
	Data        ArtifactData `json:"data"`
}

// TextArtifact builds an inline text artifact.
func TextArtifact(name, content string) Artifact {
	return Artifact{
		Name:        name,
		ContentType: "text/plain",
		Data:        ArtifactData{Type: ArtifactText, Text: content},
	}
}

// FileArtifact builds an artifact referencing a file on disk.
func FileArtifact(name, path string) Artifact {
	return Artifact{
		Name:        name,
		ContentType: "application/octet-stream",
		Data:        ArtifactData{Type: ArtifactFile, Path: path},
	}
}

// Output is what a tool execution produces. IsError marks a failure the
// model should see and react to, as opposed to an executor error.
type Output struct {
	Content   string         `json:"content"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// OK builds a successful output.
func OK(content string) Output {
	return Output{Content: content}
}

// Fail builds an error output the model can recover from.
func Fail(content string) Output {
	return Output{Content: content, IsError: true}
}

// WithArtifact appends an artifact to the output.
func (o Output) WithArtifact(a Artifact) Output {
	o.Artifacts = append(o.Artifacts, a)
	return o
}

// WithMetadata records a metadata entry on the output.
func (o Output) WithMetadata(key string, value any) Output {
	out := o
	out.Metadata = make(map[string]any, len(o.Metadata)+1)
	for k, v := range o.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata[key] = value
	return out
}

// Tool is an executable capability exposed to the model.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, input json.RawMessage) (Output, error)
}
