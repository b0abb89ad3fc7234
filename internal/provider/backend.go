// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"

	"github.com/pdiddy/omnisense/pkg/types"
)

// Backend abstracts the model provider API so tests can supply a mock.
// One call is one generateContent request; implementations do not retry.
type Backend interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Part is one piece of multi-part content: text or an inline image.
type Part struct {
	Text string

	// InlineData holds base64-encoded bytes; MIMEType describes them.
	InlineData string
	MIMEType   string
}

// TextPart returns a Part holding text.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart returns a Part holding a base64-encoded image.
func ImagePart(data, mimeType string) Part {
	return Part{InlineData: data, MIMEType: mimeType}
}

// Request is a provider-neutral generation request.
type Request struct {
	Model string
	Parts []Part

	// GoogleSearch enables the provider's web-search augmentation.
	GoogleSearch bool

	// Temperature is omitted from the wire request when nil.
	Temperature *float64

	// ResponseMIMEType requests a specific output format, e.g. application/json.
	ResponseMIMEType string

	// ResponseSchema constrains JSON output; see ResponseSchemaFor.
	ResponseSchema *Schema

	// ThinkingBudget is omitted when zero.
	ThinkingBudget int
}

// Response is the provider's answer.
type Response struct {
	Text      string
	Citations []types.Citation
}
