// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads a web page and reduces it to its title and
// visible text, for use as structured-extraction input.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/omnisense/internal/httputil"
)

// MaxTextRunes bounds the text kept from a page.
const MaxTextRunes = 20000

// Page is the reduced form of a fetched document.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	Client *http.Client
}

// New returns a Fetcher with a 20 second timeout.
func New() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: 20 * time.Second}}
}

// Fetch downloads rawURL and extracts its title and body text. Script,
// style, and other non-visible elements are dropped.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Page{}, fmt.Errorf("invalid page URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := httputil.Do(f.Client, req)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("parse document: %w", err)
	}

	return Page{
		URL:   rawURL,
		Title: pageTitle(doc),
		Text:  visibleText(doc),
	}, nil
}

func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("head > title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg, iframe, head").Remove()

	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	text := strings.Join(strings.Fields(root.Text()), " ")
	if r := []rune(text); len(r) > MaxTextRunes {
		text = string(r[:MaxTextRunes])
	}
	return text
}
