// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider formats prompts and schemas for the hosted model and
// turns its answers into typed results.
//
// The Client exposes four request shapes: web research with search
// grounding, visual analysis of a screenshot, structured extraction
// against a field schema, and comparison of prior results. Every network
// or provider failure surfaces as a *ProviderError; nothing is retried.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/logging"
	"github.com/pdiddy/omnisense/pkg/types"
)

const (
	defaultImageMIMEType = "image/jpeg"
	jsonMIMEType         = "application/json"
)

// Client issues research requests against a Backend.
type Client struct {
	backend        Backend
	fastModel      string
	deepModel      string
	temperature    float64
	thinkingBudget int
	log            *zap.Logger
}

// New creates a Client. Zero-valued model and tuning fields in cfg fall
// back to types.DefaultConfig.
func New(backend Backend, cfg types.ProviderConfig, log *zap.Logger) *Client {
	def := types.DefaultConfig().Provider
	if cfg.FastModel == "" {
		cfg.FastModel = def.FastModel
	}
	if cfg.DeepModel == "" {
		cfg.DeepModel = def.DeepModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.ThinkingBudget == 0 {
		cfg.ThinkingBudget = def.ThinkingBudget
	}
	return &Client{
		backend:        backend,
		fastModel:      cfg.FastModel,
		deepModel:      cfg.DeepModel,
		temperature:    cfg.Temperature,
		thinkingBudget: cfg.ThinkingBudget,
		log:            logging.OrNop(log).Named("provider"),
	}
}

// ResearchWeb asks for a structured report on url focused on query, with
// the provider's web search enabled. Citations attached by the provider
// are returned with the text.
func (c *Client) ResearchWeb(ctx context.Context, url, query string) (Grounded, error) {
	prompt, err := render(researchPromptTmpl, struct{ URL, Query string }{url, query})
	if err != nil {
		return Grounded{}, fmt.Errorf("rendering research prompt: %w", err)
	}

	temp := c.temperature
	resp, err := c.generate(ctx, "research web", Request{
		Model:        c.fastModel,
		Parts:        []Part{TextPart(prompt)},
		GoogleSearch: true,
		Temperature:  &temp,
	})
	if err != nil {
		return Grounded{}, err
	}
	return Grounded{Content: resp.Text, Sources: resp.Citations}, nil
}

// AnalyzeVisual sends a base64-encoded screenshot with a prompt asking for
// layout and content. An empty mimeType means image/jpeg; an empty prompt
// uses DefaultVisualPrompt.
func (c *Client) AnalyzeVisual(ctx context.Context, imageBase64, mimeType, prompt string) (Text, error) {
	if imageBase64 == "" {
		return Text{}, fmt.Errorf("analyze visual: empty image")
	}
	if mimeType == "" {
		mimeType = defaultImageMIMEType
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultVisualPrompt
	}

	text, err := render(visualPromptTmpl, struct{ Prompt string }{prompt})
	if err != nil {
		return Text{}, fmt.Errorf("rendering visual prompt: %w", err)
	}

	resp, err := c.generate(ctx, "analyze visual", Request{
		Model: c.fastModel,
		Parts: []Part{ImagePart(imageBase64, mimeType), TextPart(text)},
	})
	if err != nil {
		return Text{}, err
	}
	return Text{Content: resp.Text}, nil
}

// ExtractStructured asks the provider for a JSON object conforming to
// fields. When the answer is not a JSON object the returned Structured
// still carries an empty, non-nil Data map, alongside a *ParseError.
func (c *Client) ExtractStructured(ctx context.Context, content string, fields []types.Field) (Structured, error) {
	empty := Structured{Data: map[string]any{}}

	if err := ValidateFields(fields); err != nil {
		return empty, fmt.Errorf("extract structured: %w", err)
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return empty, fmt.Errorf("marshaling fields: %w", err)
	}
	prompt, err := render(extractionPromptTmpl, struct{ Content, Fields string }{content, string(fieldsJSON)})
	if err != nil {
		return empty, fmt.Errorf("rendering extraction prompt: %w", err)
	}

	resp, err := c.generate(ctx, "extract structured", Request{
		Model:            c.fastModel,
		Parts:            []Part{TextPart(prompt)},
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema:   ResponseSchemaFor(fields),
	})
	if err != nil {
		return empty, err
	}

	raw := resp.Text
	empty.Raw = raw
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.log.Warn("structured response is not a JSON object", zap.Error(err))
		return empty, &ParseError{Raw: resp.Text, Err: err}
	}
	if data == nil {
		// The literal "null" decodes without error.
		data = map[string]any{}
	}

	out := Structured{Data: data, Raw: resp.Text}
	violations, err := checkConformance(data, fields)
	if err != nil {
		c.log.Warn("schema validation skipped", zap.Error(err))
	}
	if len(violations) > 0 {
		c.log.Info("structured response deviates from schema", zap.Strings("violations", violations))
		out.Violations = violations
	}
	return out, nil
}

// Compare asks the deep model for a feature-by-feature comparison of
// prior extracted data, rendered as a Markdown table and recommendation.
func (c *Client) Compare(ctx context.Context, blobs []any) (Text, error) {
	if len(blobs) == 0 {
		return Text{}, ErrNothingToCompare
	}

	data, err := json.Marshal(blobs)
	if err != nil {
		return Text{}, fmt.Errorf("marshaling comparison data: %w", err)
	}
	prompt, err := render(comparisonPromptTmpl, struct{ Data string }{string(data)})
	if err != nil {
		return Text{}, fmt.Errorf("rendering comparison prompt: %w", err)
	}

	resp, err := c.generate(ctx, "compare", Request{
		Model:          c.deepModel,
		Parts:          []Part{TextPart(prompt)},
		ThinkingBudget: c.thinkingBudget,
	})
	if err != nil {
		return Text{}, err
	}
	return Text{Content: resp.Text}, nil
}

func (c *Client) generate(ctx context.Context, op string, req Request) (Response, error) {
	c.log.Debug("calling provider", zap.String("op", op), zap.String("model", req.Model))
	resp, err := c.backend.Generate(ctx, req)
	if err != nil {
		return Response{}, &ProviderError{Op: op, Err: err}
	}
	c.log.Debug("provider answered",
		zap.String("op", op),
		zap.Int("chars", len(resp.Text)),
		zap.Int("citations", len(resp.Citations)))
	return resp, nil
}
