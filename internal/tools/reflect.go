package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a parameter schema from a Go struct type. Field
// names come from json tags; jsonschema tags contribute descriptions and
// enums. The result is inlined (no $defs indirection) so every provider's
// function-calling format can consume it directly.
func SchemaFor[T any]() (*Schema, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	reflected := reflector.Reflect(&zero)

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return &schema, nil
}

// MustSchemaFor is SchemaFor for static tool definitions, panicking on
// reflection failure.
func MustSchemaFor[T any]() *Schema {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
