// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package derive turns a provider response into a persisted ResearchItem
// and, when the response mentions a trigger phrase, an Alert.
package derive

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/omnisense/pkg/types"
)

// SummaryLimit is the number of characters of response text kept in a
// ResearchItem summary before the ellipsis.
const SummaryLimit = 500

const ellipsis = "..."

// alertTriggers are matched case-insensitively against the response text.
var alertTriggers = []string{"price drop", "new release"}

// IDFunc returns a new item identifier for time t.
type IDFunc func(t time.Time) string

// TimeID returns a UUIDv7 string. The leading 48 bits are the Unix
// millisecond timestamp, so ids sort by creation time; the random tail
// keeps two ids from the same millisecond distinct.
func TimeID(t time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		// The random source failed; fall back to the bare clock value.
		return fmt.Sprintf("%d", t.UnixMilli())
	}
	return id.String()
}

// Input carries the original request fields the deriver needs.
type Input struct {
	URL      string
	Query    string
	HasImage bool
	Sources  []types.Citation
}

// Deriver builds items and alerts.
type Deriver struct {
	NewID IDFunc
}

// New returns a Deriver that generates ids with TimeID.
func New() *Deriver {
	return &Deriver{NewID: TimeID}
}

func (d *Deriver) id(now time.Time) string {
	if d.NewID == nil {
		return TimeID(now)
	}
	return d.NewID(now)
}

// Derive builds a ResearchItem for a web or visual response. The item is
// visual whenever an image was supplied, even if a URL was given too. An
// Alert is returned iff ShouldAlert(text).
func (d *Deriver) Derive(in Input, text string, now time.Time) (types.ResearchItem, *types.Alert) {
	item := types.ResearchItem{
		ID:            d.id(now),
		URL:           in.URL,
		Title:         in.Query,
		Summary:       Summarize(text),
		ExtractedData: text,
		Timestamp:     now.UnixMilli(),
		Type:          types.ItemWeb,
		Sources:       in.Sources,
	}
	if item.URL == "" {
		item.URL = types.ScreenshotURL
	}
	if item.Title == "" {
		item.Title = types.DefaultTitle
	}
	if in.HasImage {
		item.Type = types.ItemVisual
	}

	if !ShouldAlert(text) {
		return item, nil
	}
	return item, &types.Alert{
		ID:        item.ID + "-alert",
		Message:   "Insight found: " + in.Query,
		Severity:  types.SeverityMedium,
		Timestamp: item.Timestamp,
		SourceID:  item.ID,
	}
}

// DeriveComparison builds a comparison item from the compared items and
// the provider's answer. Comparisons never raise alerts.
func (d *Deriver) DeriveComparison(items []types.ResearchItem, text string, now time.Time) types.ResearchItem {
	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	return types.ResearchItem{
		ID:            d.id(now),
		URL:           strings.Join(urls, ", "),
		Title:         fmt.Sprintf("Comparison: %d items", len(items)),
		Summary:       Summarize(text),
		ExtractedData: text,
		Timestamp:     now.UnixMilli(),
		Type:          types.ItemComparison,
	}
}

// DeriveExtraction builds a web item whose extracted data is the parsed
// object from structured extraction. title falls back to DefaultTitle.
func (d *Deriver) DeriveExtraction(url, title string, data map[string]any, now time.Time) types.ResearchItem {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}
	if url == "" {
		url = "Structured Extraction"
	}
	if title == "" {
		title = types.DefaultTitle
	}
	return types.ResearchItem{
		ID:            d.id(now),
		URL:           url,
		Title:         title,
		Summary:       Summarize(string(raw)),
		ExtractedData: data,
		Timestamp:     now.UnixMilli(),
		Type:          types.ItemWeb,
	}
}

// Summarize keeps the first SummaryLimit characters of text and appends an
// ellipsis. The ellipsis is appended even when nothing was cut.
func Summarize(text string) string {
	runes := []rune(text)
	if len(runes) > SummaryLimit {
		runes = runes[:SummaryLimit]
	}
	return string(runes) + ellipsis
}

// ShouldAlert reports whether text contains any trigger phrase, ignoring case.
func ShouldAlert(text string) bool {
	lower := strings.ToLower(text)
	for _, trig := range alertTriggers {
		if strings.Contains(lower, trig) {
			return true
		}
	}
	return false
}
