// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/omnisense/internal/httputil"
	"github.com/pdiddy/omnisense/pkg/types"
)

// GeminiBackend calls the Gemini generateContent REST endpoint.
type GeminiBackend struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewGeminiBackend builds a backend from configuration. The HTTP client has
// no timeout: a request runs until it completes or ctx is cancelled.
func NewGeminiBackend(cfg types.ProviderConfig) *GeminiBackend {
	return &GeminiBackend{
		APIKey:  cfg.APIKey,
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Client:  &http.Client{},
	}
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	Temperature      *float64              `json:"temperature,omitempty"`
	ResponseMIMEType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema               `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	Tools            []geminiTool            `json:"tools,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// Generate sends one generateContent request.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (Response, error) {
	if g.APIKey == "" {
		return Response{}, errors.New("missing API key: set OMNISENSE_API_KEY or .secrets/gemini-api-key")
	}
	if req.Model == "" {
		return Response{}, errors.New("missing model identifier")
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := httputil.Do(g.Client, httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return Response{}, fmt.Errorf("decoding Gemini response: %w", err)
	}
	if len(gResp.Candidates) == 0 {
		return Response{}, errors.New("Gemini API returned no candidates")
	}

	cand := gResp.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}

	out := Response{Text: text.String()}
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			out.Citations = append(out.Citations, types.Citation{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	return out, nil
}

func buildGeminiRequest(req Request) geminiRequest {
	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.InlineData != "" {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: p.MIMEType,
				Data:     p.InlineData,
			}})
			continue
		}
		parts = append(parts, geminiPart{Text: p.Text})
	}

	gr := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.GoogleSearch {
		gr.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	cfg := geminiGenerationConfig{
		Temperature:      req.Temperature,
		ResponseMIMEType: req.ResponseMIMEType,
		ResponseSchema:   req.ResponseSchema,
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}
	if cfg != (geminiGenerationConfig{}) {
		gr.GenerationConfig = &cfg
	}
	return gr
}
