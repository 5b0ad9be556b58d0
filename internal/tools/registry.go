package tools

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Spec describes one request kind the executor accepts.
type Spec struct {
	Kind       protocol.Kind
	SchemaJSON string
}

const (
	targetPath = `"target": {"type": "string", "minLength": 1, "maxLength": 4096, "pattern": "\\S"}`
	textField  = `{"type": "string"}`
)

// Specs lists every request kind with its payload schema.
var Specs = []Spec{
	{
		Kind:       protocol.KindReadFile,
		SchemaJSON: `{"type": "object", "properties": {` + targetPath + `}, "required": ["target"]}`,
	},
	{
		Kind:       protocol.KindWriteFile,
		SchemaJSON: `{"type": "object", "properties": {` + targetPath + `, "content": ` + textField + `}, "required": ["target", "content"]}`,
	},
	{
		Kind:       protocol.KindEditFile,
		SchemaJSON: `{"type": "object", "properties": {` + targetPath + `, "old_text": ` + textField + `, "new_text": ` + textField + `}, "required": ["target", "old_text", "new_text"]}`,
	},
	{
		Kind:       protocol.KindRunShell,
		SchemaJSON: `{"type": "object", "properties": {"target": {"type": "string", "minLength": 1, "pattern": "\\S"}}, "required": ["target"]}`,
	},
	{
		Kind:       protocol.KindSearchCode,
		SchemaJSON: `{"type": "object", "properties": {"query": {"type": "string", "minLength": 1, "maxLength": 512}}, "required": ["query"]}`,
	},
	{
		Kind:       protocol.KindAddContext,
		SchemaJSON: `{"type": "object", "properties": {"paths": {"type": "string", "minLength": 1}}, "required": ["paths"]}`,
	},
	{
		Kind:       protocol.KindDropContext,
		SchemaJSON: `{"type": "object", "properties": {"paths": {"type": "string", "minLength": 1}}, "required": ["paths"]}`,
	},
	{
		Kind:       protocol.KindCommit,
		SchemaJSON: `{"type": "object", "properties": {"message": {"type": "string", "maxLength": 4096}}}`,
	},
}

// ValidationError lists the schema violations of one request.
type ValidationError struct {
	Kind   protocol.Kind
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s request: %s", e.Kind, strings.Join(e.Errors, "; "))
}

// Registry holds the compiled schema of every kind.
type Registry struct {
	schemas map[protocol.Kind]*gojsonschema.Schema
}

// NewRegistry compiles the schemas of specs.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{schemas: make(map[protocol.Kind]*gojsonschema.Schema, len(specs))}
	for _, s := range specs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.SchemaJSON))
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", s.Kind, err)
		}
		r.schemas[s.Kind] = schema
	}
	return r, nil
}

// Validate checks the request's target and payload against its schema.
func (r *Registry) Validate(req protocol.ToolRequest) error {
	schema, ok := r.schemas[req.Kind]
	if !ok {
		return &ValidationError{Kind: req.Kind, Errors: []string{"unknown request kind"}}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(req.Args()))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ValidationError{Kind: req.Kind, Errors: msgs}
}
