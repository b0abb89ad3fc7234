// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/omnisense/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	resp  Response
	err   error
	calls int
	last  Request
}

func (m *mockBackend) Generate(_ context.Context, req Request) (Response, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return Response{}, m.err
	}
	return m.resp, nil
}

func newTestClient(t *testing.T, b Backend) *Client {
	t.Helper()
	return New(b, types.ProviderConfig{}, zaptest.NewLogger(t))
}

func priceFields() []types.Field {
	return []types.Field{
		{Name: "price", Description: "unit price", Type: types.FieldNumber},
		{Name: "stock", Description: "units in stock", Type: types.FieldNumber},
	}
}

// --- ResearchWeb ---

func TestResearchWeb(t *testing.T) {
	mb := &mockBackend{resp: Response{
		Text:      "Report body",
		Citations: []types.Citation{{URI: "https://src.example", Title: "Src"}},
	}}
	c := newTestClient(t, mb)

	got, err := c.ResearchWeb(context.Background(), "https://example.com/widget", "Extract price")
	require.NoError(t, err)

	assert.Equal(t, "Report body", got.Content)
	assert.Equal(t, "Report body", got.Body())
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "https://src.example", got.Sources[0].URI)

	assert.Equal(t, "gemini-3-flash-preview", mb.last.Model)
	assert.True(t, mb.last.GoogleSearch)
	require.NotNil(t, mb.last.Temperature)
	assert.InDelta(t, 0.7, *mb.last.Temperature, 1e-9)
	require.Len(t, mb.last.Parts, 1)
	assert.Contains(t, mb.last.Parts[0].Text, "https://example.com/widget")
	assert.Contains(t, mb.last.Parts[0].Text, "Query focus: Extract price.")
	assert.Contains(t, mb.last.Parts[0].Text, "3. Data Points (Prices, Specs, Names)")
}

func TestResearchWeb_ProviderError(t *testing.T) {
	mb := &mockBackend{err: errors.New("quota exceeded")}
	c := newTestClient(t, mb)

	_, err := c.ResearchWeb(context.Background(), "https://example.com", "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResearchFailed)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "research web", pe.Op)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, mb.calls, "no retries")
}

// --- AnalyzeVisual ---

func TestAnalyzeVisual(t *testing.T) {
	tests := []struct {
		name       string
		mime       string
		prompt     string
		wantMIME   string
		wantPrompt string
	}{
		{
			name:       "defaults",
			wantMIME:   "image/jpeg",
			wantPrompt: DefaultVisualPrompt,
		},
		{
			name:       "explicit",
			mime:       "image/png",
			prompt:     "list the prices",
			wantMIME:   "image/png",
			wantPrompt: "list the prices",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := &mockBackend{resp: Response{
				Text:      "A product page",
				Citations: []types.Citation{{URI: "ignored"}},
			}}
			c := newTestClient(t, mb)

			got, err := c.AnalyzeVisual(context.Background(), "aGVsbG8=", tt.mime, tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, "A product page", got.Content)
			assert.Nil(t, SourcesOf(got), "visual results carry no citations")

			require.Len(t, mb.last.Parts, 2)
			assert.Equal(t, "aGVsbG8=", mb.last.Parts[0].InlineData)
			assert.Equal(t, tt.wantMIME, mb.last.Parts[0].MIMEType)
			assert.Contains(t, mb.last.Parts[1].Text, tt.wantPrompt)
			assert.False(t, mb.last.GoogleSearch)
		})
	}
}

func TestAnalyzeVisual_EmptyImage(t *testing.T) {
	mb := &mockBackend{}
	c := newTestClient(t, mb)

	_, err := c.AnalyzeVisual(context.Background(), "", "", "x")
	require.Error(t, err)
	assert.Equal(t, 0, mb.calls)
}

// --- ExtractStructured ---

func TestExtractStructured(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		wantData       map[string]any
		wantParseErr   bool
		wantViolations bool
	}{
		{
			name:     "valid JSON",
			text:     `{"price": 9.99, "stock": 5}`,
			wantData: map[string]any{"price": 9.99, "stock": float64(5)},
		},
		{
			name:         "not JSON",
			text:         "the price is 9.99",
			wantData:     map[string]any{},
			wantParseErr: true,
		},
		{
			name:         "JSON array",
			text:         `[1, 2]`,
			wantData:     map[string]any{},
			wantParseErr: true,
		},
		{
			name:     "empty text",
			text:     "",
			wantData: map[string]any{},
			// Missing required fields are reported, not fatal.
			wantViolations: true,
		},
		{
			name:           "wrong field type",
			text:           `{"price": "cheap", "stock": 5}`,
			wantData:       map[string]any{"price": "cheap", "stock": float64(5)},
			wantViolations: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := &mockBackend{resp: Response{Text: tt.text}}
			c := newTestClient(t, mb)

			got, err := c.ExtractStructured(context.Background(), "In stock: 5 units at $9.99", priceFields())
			if tt.wantParseErr {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.text, pe.Raw)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, got.Data)
			assert.Equal(t, tt.wantData, got.Data)
			assert.Equal(t, tt.wantViolations, len(got.Violations) > 0, "violations: %v", got.Violations)
		})
	}
}

func TestExtractStructured_Request(t *testing.T) {
	mb := &mockBackend{resp: Response{Text: `{"price": 1, "stock": 2}`}}
	c := newTestClient(t, mb)

	_, err := c.ExtractStructured(context.Background(), "In stock: 5 units at $9.99", priceFields())
	require.NoError(t, err)

	assert.Equal(t, "application/json", mb.last.ResponseMIMEType)
	require.NotNil(t, mb.last.ResponseSchema)
	assert.Equal(t, "OBJECT", mb.last.ResponseSchema.Type)
	assert.Equal(t, []string{"price", "stock"}, mb.last.ResponseSchema.Required)
	assert.Equal(t, "NUMBER", mb.last.ResponseSchema.Properties["price"].Type)
	assert.Contains(t, mb.last.Parts[0].Text, "CONTENT: In stock: 5 units at $9.99")
	assert.Contains(t, mb.last.Parts[0].Text, `"name":"price"`)
}

func TestExtractStructured_InvalidFields(t *testing.T) {
	mb := &mockBackend{}
	c := newTestClient(t, mb)

	got, err := c.ExtractStructured(context.Background(), "x", []types.Field{{Name: "a", Type: "date"}})
	require.Error(t, err)
	assert.NotNil(t, got.Data)
	assert.Equal(t, 0, mb.calls)
}

func TestExtractStructured_ProviderError(t *testing.T) {
	mb := &mockBackend{err: errors.New("boom")}
	c := newTestClient(t, mb)

	got, err := c.ExtractStructured(context.Background(), "x", priceFields())
	assert.ErrorIs(t, err, ErrResearchFailed)
	assert.NotNil(t, got.Data)
}

// --- Compare ---

func TestCompare(t *testing.T) {
	mb := &mockBackend{resp: Response{Text: "| a | b |"}}
	c := newTestClient(t, mb)

	got, err := c.Compare(context.Background(), []any{"report one", map[string]any{"price": 20}})
	require.NoError(t, err)
	assert.Equal(t, "| a | b |", got.Content)

	assert.Equal(t, "gemini-3-pro-preview", mb.last.Model)
	assert.Equal(t, 2000, mb.last.ThinkingBudget)
	assert.Contains(t, mb.last.Parts[0].Text, `DATA: ["report one",{"price":20}]`)
	assert.Contains(t, mb.last.Parts[0].Text, "Markdown table")
}

func TestCompare_Empty(t *testing.T) {
	mb := &mockBackend{}
	c := newTestClient(t, mb)

	_, err := c.Compare(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNothingToCompare)
	assert.Equal(t, 0, mb.calls)
}

// --- config ---

func TestNew_ConfigOverrides(t *testing.T) {
	mb := &mockBackend{resp: Response{Text: "ok"}}
	c := New(mb, types.ProviderConfig{FastModel: "fast-x", DeepModel: "deep-x", ThinkingBudget: 99}, nil)

	_, err := c.ResearchWeb(context.Background(), "u", "q")
	require.NoError(t, err)
	assert.Equal(t, "fast-x", mb.last.Model)

	_, err = c.Compare(context.Background(), []any{"a"})
	require.NoError(t, err)
	assert.Equal(t, "deep-x", mb.last.Model)
	assert.Equal(t, 99, mb.last.ThinkingBudget)
}

// --- Result variant ---

func TestResultVariants(t *testing.T) {
	results := []Result{
		Text{Content: "t"},
		Grounded{Content: "g", Sources: []types.Citation{{URI: "u"}}},
		Structured{Data: map[string]any{}, Raw: "{}"},
	}
	var kinds []string
	for _, r := range results {
		switch r.(type) {
		case Text:
			kinds = append(kinds, "text")
		case Grounded:
			kinds = append(kinds, "grounded")
		case Structured:
			kinds = append(kinds, "structured")
		}
	}
	assert.Equal(t, []string{"text", "grounded", "structured"}, kinds)
	assert.Len(t, SourcesOf(results[1]), 1)
	assert.Equal(t, "{}", results[2].Body())
}
