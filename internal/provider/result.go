// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import "github.com/pdiddy/omnisense/pkg/types"

// Result is the outcome of one provider call. It is implemented only by
// Text, Grounded, and Structured; callers type-switch over those three.
type Result interface {
	// Body returns the text a user would read for this result. For
	// Structured results it is the raw JSON returned by the model.
	Body() string

	isResult()
}

// Text is a plain natural-language report (visual analysis, comparison).
type Text struct {
	Content string
}

// Grounded is a report with the web citations the provider attached.
type Grounded struct {
	Content string
	Sources []types.Citation
}

// Structured is a parsed JSON object from structured extraction.
type Structured struct {
	// Data is never nil; it is empty when the response failed to parse.
	Data map[string]any

	// Raw is the unparsed response text.
	Raw string

	// Violations lists schema mismatches in Data (missing or mistyped
	// fields). They are informational: the model output is kept as-is.
	Violations []string
}

func (t Text) Body() string       { return t.Content }
func (g Grounded) Body() string   { return g.Content }
func (s Structured) Body() string { return s.Raw }

func (Text) isResult()       {}
func (Grounded) isResult()   {}
func (Structured) isResult() {}

// SourcesOf returns the citations of r, or nil for results without them.
func SourcesOf(r Result) []types.Citation {
	switch v := r.(type) {
	case Grounded:
		return v.Sources
	case Text, Structured:
		return nil
	}
	return nil
}
