// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"text/template"
)

// DefaultVisualPrompt is used when an image is submitted without a query.
const DefaultVisualPrompt = "Describe the contents and structured data from this screenshot."

var researchPromptTmpl = template.Must(template.New("research").Parse(
	`Perform a deep research analysis on the following URL: {{.URL}}.
Query focus: {{.Query}}.
Provide a structured report including:
1. Executive Summary
2. Key Findings
3. Data Points (Prices, Specs, Names)
4. Conclusion.`))

var visualPromptTmpl = template.Must(template.New("visual").Parse(
	`Identify the webpage elements, layout, and extract visible information based on this prompt: {{.Prompt}}`))

var extractionPromptTmpl = template.Must(template.New("extraction").Parse(
	`Extract the following structured data from this content:
CONTENT: {{.Content}}
REQUIRED FIELDS: {{.Fields}}`))

var comparisonPromptTmpl = template.Must(template.New("comparison").Parse(
	`Compare the following research data and provide a feature-by-feature breakdown:
DATA: {{.Data}}
Provide the output as a Markdown table followed by a recommendation.`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
