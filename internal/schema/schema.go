// Package schema wraps JSON Schema compilation and evaluation for tool
// parameter validation. Validation outcomes are plain result values, not
// errors: a rejected document is an expected condition the webhook pipeline
// maps to a 422, while a schema that fails to compile is a programming error
// surfaced at tool definition time.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Issue is one structured validation failure, addressed by JSON Pointer
// into the rejected instance.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of validating a raw params document.
// When Valid is true, Value holds the decoded object; otherwise Issues is
// non-empty and Value is nil.
type Result struct {
	Valid  bool
	Value  map[string]any
	Issues []Issue
}

// Schema is a compiled parameter schema.
type Schema struct {
	compiled *jsonschema.Schema
	raw      json.RawMessage
}

// Compile compiles a raw JSON Schema document. Fails fast on malformed
// schemas so invalid tool definitions never reach serving.
func Compile(raw json.RawMessage) (*Schema, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled, raw: append(json.RawMessage(nil), raw...)}, nil
}

// MustCompile is Compile for static tool definitions; panics on error.
func MustCompile(raw json.RawMessage) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the original schema document, for descriptor listings.
func (s *Schema) Raw() json.RawMessage {
	return s.raw
}

// Validate evaluates a raw params document against the schema.
// A document that is not valid JSON, or not a JSON object, is reported as a
// single issue at the document root rather than an error.
func (s *Schema) Validate(raw json.RawMessage) Result {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return Result{Issues: []Issue{{Path: "", Message: "params is not valid JSON"}}}
	}

	obj, ok := instance.(map[string]any)
	if !ok {
		return Result{Issues: []Issue{{Path: "", Message: "params must be a JSON object"}}}
	}

	result := s.compiled.Validate(instance)
	if !result.IsValid() {
		return Result{Issues: flatten(result.ToList())}
	}

	return Result{Valid: true, Value: obj}
}

// flatten walks the evaluator's hierarchical output and collects every
// keyword failure as a flat issue list.
func flatten(list *jsonschema.List) []Issue {
	if list == nil {
		return nil
	}
	var issues []Issue
	var walk func(node jsonschema.List)
	walk = func(node jsonschema.List) {
		for _, msg := range node.Errors {
			issues = append(issues, Issue{Path: node.InstanceLocation, Message: msg})
		}
		for _, child := range node.Details {
			walk(child)
		}
	}
	walk(*list)
	if len(issues) == 0 {
		// Keep the 422 contract: a rejected document always carries at
		// least one issue even if the evaluator produced no keyword detail.
		issues = []Issue{{Path: "", Message: "params did not match the tool schema"}}
	}
	return issues
}
