// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/derive"
	"github.com/pdiddy/omnisense/internal/fetch"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/pkg/types"
)

// ErrEmptyRequest is returned when a request carries nothing to research.
var ErrEmptyRequest = errors.New("provide a URL, an image, or content")

// FailureMessage is what users see for any provider failure. The
// underlying error is logged, not shown.
const FailureMessage = "Research failed. Please try again."

// Provider is the subset of provider.Client the researcher drives.
type Provider interface {
	ResearchWeb(ctx context.Context, url, query string) (provider.Grounded, error)
	AnalyzeVisual(ctx context.Context, imageBase64, mimeType, prompt string) (provider.Text, error)
	ExtractStructured(ctx context.Context, content string, fields []types.Field) (provider.Structured, error)
	Compare(ctx context.Context, blobs []any) (provider.Text, error)
}

// PageFetcher loads page text for extraction requests that name only a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

// ResearchRequest is one submission from the research console.
type ResearchRequest struct {
	URL   string `json:"url"`
	Query string `json:"query"`

	// ImageBase64 is a screenshot without the data: URL prefix. When set,
	// the request is a visual analysis and Query becomes the prompt.
	ImageBase64 string `json:"image,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ExtractRequest asks for the named fields from Content, or from the page
// at URL when Content is empty.
type ExtractRequest struct {
	URL     string        `json:"url,omitempty"`
	Title   string        `json:"title,omitempty"`
	Content string        `json:"content,omitempty"`
	Fields  []types.Field `json:"fields"`
}

// Outcome is what a finished task produced. Item is nil when nothing was
// saved.
type Outcome struct {
	Result provider.Result
	Item   *types.ResearchItem
	Alert  *types.Alert
}

// Task is a running request. Wait blocks until it finishes.
type Task struct {
	done    chan struct{}
	outcome Outcome
	err     error
}

// Wait returns the outcome once the task has finished.
func (t *Task) Wait() (Outcome, error) {
	<-t.done
	return t.outcome, t.err
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Researcher runs requests one at a time against the provider and records
// the results in State.
type Researcher struct {
	provider Provider
	state    *State
	deriver  *derive.Deriver
	fetcher  PageFetcher
	log      *zap.Logger

	// Now is the clock used for item timestamps.
	Now func() time.Time
}

// NewResearcher wires a researcher. fetcher may be nil, in which case
// extraction requires inline content.
func NewResearcher(p Provider, state *State, d *derive.Deriver, fetcher PageFetcher, log *zap.Logger) *Researcher {
	if log == nil {
		log = zap.NewNop()
	}
	if d == nil {
		d = derive.New()
	}
	return &Researcher{
		provider: p,
		state:    state,
		deriver:  d,
		fetcher:  fetcher,
		log:      log.Named("research"),
		Now:      time.Now,
	}
}

// Start begins a web or visual research request. It returns ErrBusy
// without contacting the provider if another request is pending.
//
// On provider failure the task fails with an error matching
// provider.ErrResearchFailed and nothing is saved.
func (r *Researcher) Start(ctx context.Context, req ResearchRequest) (*Task, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" && req.ImageBase64 == "" {
		return nil, ErrEmptyRequest
	}
	return r.start(ctx, func(ctx context.Context) (Outcome, error) {
		return r.research(ctx, req)
	})
}

// StartExtraction begins a structured-extraction request. If the provider
// answers with something that is not a JSON object the task fails with a
// *provider.ParseError, the outcome still carries an empty Structured
// result, and nothing is saved.
func (r *Researcher) StartExtraction(ctx context.Context, req ExtractRequest) (*Task, error) {
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.URL) == "" {
		return nil, ErrEmptyRequest
	}
	if err := provider.ValidateFields(req.Fields); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" && r.fetcher == nil {
		return nil, fmt.Errorf("no page fetcher configured: %w", ErrEmptyRequest)
	}
	return r.start(ctx, func(ctx context.Context) (Outcome, error) {
		return r.extract(ctx, req)
	})
}

// StartComparison compares the extracted data of the given history items
// and records the comparison as a new item. No alert is derived.
func (r *Researcher) StartComparison(ctx context.Context, ids []string) (*Task, error) {
	if len(ids) == 0 {
		return nil, provider.ErrNothingToCompare
	}
	items, err := r.state.Items(ids)
	if err != nil {
		return nil, err
	}
	return r.start(ctx, func(ctx context.Context) (Outcome, error) {
		return r.compare(ctx, items)
	})
}

func (r *Researcher) start(ctx context.Context, fn func(context.Context) (Outcome, error)) (*Task, error) {
	release, err := r.state.Begin()
	if err != nil {
		return nil, err
	}
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer release()
		t.outcome, t.err = fn(ctx)
	}()
	return t, nil
}

func (r *Researcher) research(ctx context.Context, req ResearchRequest) (Outcome, error) {
	var (
		res provider.Result
		err error
	)
	if req.ImageBase64 != "" {
		r.log.Info("analyzing screenshot", zap.String("url", req.URL))
		res, err = r.provider.AnalyzeVisual(ctx, req.ImageBase64, req.MIMEType, req.Query)
	} else {
		r.log.Info("researching", zap.String("url", req.URL))
		res, err = r.provider.ResearchWeb(ctx, req.URL, req.Query)
	}
	if err != nil {
		r.log.Debug("research failed", zap.Error(err))
		return Outcome{}, err
	}

	item, alert := r.deriver.Derive(derive.Input{
		URL:      req.URL,
		Query:    req.Query,
		HasImage: req.ImageBase64 != "",
		Sources:  provider.SourcesOf(res),
	}, res.Body(), r.Now())

	return r.record(ctx, res, item, alert)
}

func (r *Researcher) extract(ctx context.Context, req ExtractRequest) (Outcome, error) {
	content, title := req.Content, req.Title
	if strings.TrimSpace(content) == "" {
		page, err := r.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			return Outcome{}, fmt.Errorf("loading page: %w", err)
		}
		content = page.Text
		if title == "" {
			title = page.Title
		}
	}

	res, err := r.provider.ExtractStructured(ctx, content, req.Fields)
	if err != nil {
		return Outcome{Result: res}, err
	}

	item := r.deriver.DeriveExtraction(req.URL, title, res.Data, r.Now())
	return r.record(ctx, res, item, nil)
}

func (r *Researcher) compare(ctx context.Context, items []types.ResearchItem) (Outcome, error) {
	blobs := make([]any, len(items))
	for i, it := range items {
		blobs[i] = it.ExtractedData
	}

	res, err := r.provider.Compare(ctx, blobs)
	if err != nil {
		return Outcome{}, err
	}

	item := r.deriver.DeriveComparison(items, res.Body(), r.Now())
	return r.record(ctx, res, item, nil)
}

// record persists item then alert. The item is written first so an alert
// never references an unsaved item.
func (r *Researcher) record(ctx context.Context, res provider.Result, item types.ResearchItem, alert *types.Alert) (Outcome, error) {
	out := Outcome{Result: res}
	if err := r.state.AddItem(ctx, item); err != nil {
		return out, fmt.Errorf("saving item: %w", err)
	}
	out.Item = &item
	if alert != nil {
		if err := r.state.AddAlert(ctx, *alert); err != nil {
			return out, fmt.Errorf("saving alert: %w", err)
		}
		out.Alert = alert
	}
	r.log.Info("research saved", zap.String("id", item.ID), zap.Bool("alert", alert != nil))
	return out, nil
}
