// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for omnisense: research
// items, alerts, citations, extraction fields, and configuration.
//
// The JSON field names match the blobs written by earlier releases, so a
// history saved by any version loads unchanged.
package types

import (
	"strings"
	"time"
)

// ItemType tags how a ResearchItem was produced.
type ItemType string

const (
	ItemWeb        ItemType = "web"
	ItemVisual     ItemType = "visual"
	ItemComparison ItemType = "comparison"
)

// Severity ranks an Alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ScreenshotURL stands in for the origin URL of image-only submissions.
const ScreenshotURL = "Screenshot Upload"

// DefaultTitle is used when a research request carries no query.
const DefaultTitle = "Research Task"

// Citation is a source reference a search-augmented model attached to its answer.
type Citation struct {
	// URI is the cited page.
	URI string `json:"uri" yaml:"uri"`

	// Title is the page title as reported by the provider; may be empty.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// DisplayTitle returns the citation title, or "External Source" when the
// provider did not supply one.
func (c Citation) DisplayTitle() string {
	if c.Title == "" {
		return "External Source"
	}
	return c.Title
}

// ResearchItem is a persisted record of one completed research action.
// Items are immutable once created.
type ResearchItem struct {
	// ID is generated from the wall clock at creation time.
	ID string `json:"id" yaml:"id"`

	// URL is the origin URL, or ScreenshotURL for image-only submissions.
	URL string `json:"url" yaml:"url"`

	// Title is the user's query, or DefaultTitle.
	Title string `json:"title" yaml:"title"`

	// Summary is the response text truncated to SummaryLimit characters
	// followed by an ellipsis.
	Summary string `json:"summary" yaml:"summary"`

	// ExtractedData holds the raw response text or a parsed JSON object.
	ExtractedData any `json:"extractedData" yaml:"extracted_data"`

	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`

	Type ItemType `json:"type" yaml:"type"`

	// Sources lists web citations for grounded research items.
	Sources []Citation `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// CreatedAt converts Timestamp to a time.Time.
func (r ResearchItem) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Matches reports whether filter is a case-insensitive substring of the
// item's title or URL. An empty filter matches everything.
func (r ResearchItem) Matches(filter string) bool {
	f := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(r.Title), f) ||
		strings.Contains(strings.ToLower(r.URL), f)
}

// Alert is a persisted notification derived from a research response.
type Alert struct {
	ID       string   `json:"id" yaml:"id"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`

	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`

	// SourceID references the ResearchItem that triggered the alert. It is
	// a lookup key only; deleting the item leaves the alert in place.
	SourceID string `json:"sourceId" yaml:"source_id"`
}

// CreatedAt converts Timestamp to a time.Time.
func (a Alert) CreatedAt() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// FieldType is the declared type of a structured-extraction field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldArray   FieldType = "array"
	FieldBoolean FieldType = "boolean"
)

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldArray, FieldBoolean:
		return true
	}
	return false
}

// Field is one entry of a structured-extraction schema.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Type        FieldType `json:"type" yaml:"type"`
}
