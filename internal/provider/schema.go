// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/omnisense/pkg/types"
)

// Schema is the provider's response-schema object (an OpenAPI subset with
// upper-case type names).
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// ResponseSchemaFor builds an OBJECT schema with one property per field.
// Every field is required. Array fields hold strings.
func ResponseSchemaFor(fields []types.Field) *Schema {
	s := &Schema{
		Type:       "OBJECT",
		Properties: make(map[string]*Schema, len(fields)),
		Required:   make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		prop := &Schema{
			Type:        strings.ToUpper(string(f.Type)),
			Description: f.Description,
		}
		if f.Type == types.FieldArray {
			prop.Items = &Schema{Type: "STRING"}
		}
		s.Properties[f.Name] = prop
		s.Required = append(s.Required, f.Name)
	}
	return s
}

// ValidateFields checks fields before a request is sent: names must be
// non-empty and unique, and types must be supported.
func ValidateFields(fields []types.Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: empty name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
		}
	}
	return nil
}

// jsonSchemaFor renders fields as a draft-07 JSON Schema document.
func jsonSchemaFor(fields []types.Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = map[string]any{"type": string(f.Type)}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// checkConformance validates data against fields and returns one message
// per violation.
func checkConformance(data map[string]any, fields []types.Field) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(jsonSchemaFor(fields)),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating against schema: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
