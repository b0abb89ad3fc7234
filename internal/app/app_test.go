// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/omnisense/internal/derive"
	"github.com/pdiddy/omnisense/internal/fetch"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/internal/store"
	"github.com/pdiddy/omnisense/internal/store/kv"
	"github.com/pdiddy/omnisense/pkg/types"
)

// --- test helpers ---

type mockProvider struct {
	mu      sync.Mutex
	text    string
	sources []types.Citation
	data    map[string]any
	err     error
	block   chan struct{}

	webCalls     int
	visualCalls  int
	lastPrompt   string
	lastContent  string
	compareBlobs []any
}

func (m *mockProvider) wait() {
	if m.block != nil {
		<-m.block
	}
}

func (m *mockProvider) ResearchWeb(_ context.Context, url, query string) (provider.Grounded, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webCalls++
	if m.err != nil {
		return provider.Grounded{}, m.err
	}
	return provider.Grounded{Content: m.text, Sources: m.sources}, nil
}

func (m *mockProvider) AnalyzeVisual(_ context.Context, img, mime, prompt string) (provider.Text, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visualCalls++
	m.lastPrompt = prompt
	if m.err != nil {
		return provider.Text{}, m.err
	}
	return provider.Text{Content: m.text}, nil
}

func (m *mockProvider) ExtractStructured(_ context.Context, content string, fields []types.Field) (provider.Structured, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastContent = content
	if m.err != nil {
		return provider.Structured{Data: map[string]any{}}, m.err
	}
	return provider.Structured{Data: m.data, Raw: m.text}, nil
}

func (m *mockProvider) Compare(_ context.Context, blobs []any) (provider.Text, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compareBlobs = blobs
	if m.err != nil {
		return provider.Text{}, m.err
	}
	return provider.Text{Content: m.text}, nil
}

type stubFetcher struct{ page fetch.Page }

func (s stubFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	p := s.page
	p.URL = url
	return p, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) (*State, *store.Store) {
	t.Helper()
	b, err := kv.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	st := store.New(b, zaptest.NewLogger(t))
	s, err := Load(context.Background(), st, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, st
}

func newTestResearcher(t *testing.T, p Provider) (*Researcher, *State, *store.Store) {
	t.Helper()
	s, st := newTestState(t)
	n := 0
	d := &derive.Deriver{NewID: func(time.Time) string {
		n++
		return "id-" + string(rune('0'+n))
	}}
	r := NewResearcher(p, s, d, stubFetcher{page: fetch.Page{Title: "Page Title", Text: "page body"}}, zaptest.NewLogger(t))
	r.Now = func() time.Time { return testNow }
	return r, s, st
}

func item(id, title, url string) types.ResearchItem {
	return types.ResearchItem{ID: id, Title: title, URL: url, Type: types.ItemWeb}
}

// --- state ---

func TestState_AddItemNewestFirstAndPersists(t *testing.T) {
	ctx := context.Background()
	s, st := newTestState(t)

	require.NoError(t, s.AddItem(ctx, item("1", "first", "https://a")))
	require.NoError(t, s.AddItem(ctx, item("2", "second", "https://b")))

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "2", h[0].ID)
	assert.Equal(t, "1", h[1].ID)

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, h, snap.History)
}

func TestState_HistoryIsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	require.NoError(t, s.AddItem(ctx, item("1", "first", "https://a")))

	h := s.History()
	h[0].Title = "changed"
	assert.Equal(t, "first", s.History()[0].Title)
}

func TestState_FilterHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	require.NoError(t, s.AddItem(ctx, item("1", "Laptop prices", "https://shop.example")))
	require.NoError(t, s.AddItem(ctx, item("2", "Weather", "https://news.example/LAPTOP")))
	require.NoError(t, s.AddItem(ctx, item("3", "Other", "https://other")))

	tests := []struct {
		filter string
		want   []string
	}{
		{"laptop", []string{"2", "1"}},
		{"SHOP", []string{"1"}},
		{"", []string{"3", "2", "1"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := []string{}
			for _, it := range s.FilterHistory(tt.filter) {
				got = append(got, it.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_DeleteItemKeepsAlerts(t *testing.T) {
	ctx := context.Background()
	s, st := newTestState(t)
	require.NoError(t, s.AddItem(ctx, item("1", "a", "u")))
	require.NoError(t, s.AddAlert(ctx, types.Alert{ID: "1-alert", SourceID: "1"}))

	require.NoError(t, s.DeleteItem(ctx, "1"))
	assert.Empty(t, s.History())
	assert.Len(t, s.Alerts(), 1, "alerts are not cascaded")

	err := s.DeleteItem(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.History)
}

func TestState_AlertsDismissAndClear(t *testing.T) {
	ctx := context.Background()
	s, st := newTestState(t)
	require.NoError(t, s.AddAlert(ctx, types.Alert{ID: "a"}))
	require.NoError(t, s.AddAlert(ctx, types.Alert{ID: "b"}))

	require.NoError(t, s.DismissAlert(ctx, "a"))
	require.Len(t, s.Alerts(), 1)
	assert.Equal(t, "b", s.Alerts()[0].ID)
	assert.ErrorIs(t, s.DismissAlert(ctx, "a"), ErrNotFound)

	require.NoError(t, s.ClearAlerts(ctx))
	assert.Empty(t, s.Alerts())

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Alerts)
}

func TestState_ClearHistory(t *testing.T) {
	ctx := context.Background()
	s, st := newTestState(t)
	require.NoError(t, s.AddItem(ctx, item("1", "a", "u")))
	require.NoError(t, s.ClearHistory(ctx))
	assert.Empty(t, s.History())

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.History)
}

func TestState_Dashboard(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, s.AddItem(ctx, item(id, id, id)))
		require.NoError(t, s.AddAlert(ctx, types.Alert{ID: id}))
	}
	require.NoError(t, s.AddAlert(ctx, types.Alert{ID: "f"}))

	d := s.Dashboard()
	assert.Equal(t, 5, d.ItemCount)
	assert.Equal(t, 6, d.AlertCount)
	require.Len(t, d.RecentItems, DashboardItems)
	assert.Equal(t, "e", d.RecentItems[0].ID)
	require.Len(t, d.RecentAlerts, DashboardAlerts)
	assert.Equal(t, "f", d.RecentAlerts[0].ID)
}

func TestState_ItemsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	require.NoError(t, s.AddItem(ctx, item("1", "a", "u")))
	require.NoError(t, s.AddItem(ctx, item("2", "b", "v")))

	got, err := s.Items([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	_, err = s.Items([]string{"1", "zzz"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestState_Begin(t *testing.T) {
	s, _ := newTestState(t)

	release, err := s.Begin()
	require.NoError(t, err)

	_, err = s.Begin()
	assert.ErrorIs(t, err, ErrBusy)

	release()
	release() // second call is a no-op

	release, err = s.Begin()
	require.NoError(t, err)
	release()
}

// --- researcher ---

func TestStart_WebScenario(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{
		text:    "... price drop detected ... new price $20",
		sources: []types.Citation{{URI: "https://src", Title: "Src"}},
	}
	r, s, st := newTestResearcher(t, p)

	task, err := r.Start(ctx, ResearchRequest{URL: "https://example.com/widget", Query: "Extract price"})
	require.NoError(t, err)
	out, err := task.Wait()
	require.NoError(t, err)

	require.NotNil(t, out.Item)
	assert.Equal(t, types.ItemWeb, out.Item.Type)
	assert.Equal(t, "Extract price", out.Item.Title)
	assert.Equal(t, p.sources, out.Item.Sources)
	assert.Equal(t, testNow.UnixMilli(), out.Item.Timestamp)
	assert.IsType(t, provider.Grounded{}, out.Result)

	require.NotNil(t, out.Alert)
	assert.Equal(t, types.SeverityMedium, out.Alert.Severity)
	assert.Equal(t, out.Item.ID, out.Alert.SourceID)

	assert.Len(t, s.History(), 1)
	assert.Len(t, s.Alerts(), 1)

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.History, 1)
	assert.Len(t, snap.Alerts, 1)
}

func TestStart_VisualUsesQueryAsPrompt(t *testing.T) {
	p := &mockProvider{text: "a chart"}
	r, _, _ := newTestResearcher(t, p)

	task, err := r.Start(context.Background(), ResearchRequest{ImageBase64: "aGk=", Query: "read the chart"})
	require.NoError(t, err)
	out, err := task.Wait()
	require.NoError(t, err)

	assert.Equal(t, 1, p.visualCalls)
	assert.Equal(t, 0, p.webCalls)
	assert.Equal(t, "read the chart", p.lastPrompt)
	assert.Equal(t, types.ItemVisual, out.Item.Type)
	assert.Equal(t, types.ScreenshotURL, out.Item.URL)
	assert.Nil(t, out.Alert)
}

func TestStart_EmptyRequest(t *testing.T) {
	r, _, _ := newTestResearcher(t, &mockProvider{})
	_, err := r.Start(context.Background(), ResearchRequest{Query: "only a query"})
	assert.ErrorIs(t, err, ErrEmptyRequest)
}

func TestStart_ProviderFailureSavesNothing(t *testing.T) {
	p := &mockProvider{err: &provider.ProviderError{Op: "research web", Err: errors.New("503")}}
	r, s, _ := newTestResearcher(t, p)

	task, err := r.Start(context.Background(), ResearchRequest{URL: "https://a"})
	require.NoError(t, err)
	out, err := task.Wait()

	assert.ErrorIs(t, err, provider.ErrResearchFailed)
	assert.Nil(t, out.Item)
	assert.Empty(t, s.History())
	assert.Empty(t, s.Alerts())

	// The guard is released after a failure.
	_, err = s.Begin()
	assert.NoError(t, err)
}

func TestStart_ConcurrentIsBusy(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{text: "ok", block: make(chan struct{})}
	r, s, _ := newTestResearcher(t, p)

	first, err := r.Start(ctx, ResearchRequest{URL: "https://a"})
	require.NoError(t, err)

	_, err = r.Start(ctx, ResearchRequest{URL: "https://b"})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = r.StartComparison(ctx, []string{"x"})
	assert.Error(t, err)

	close(p.block)
	_, err = first.Wait()
	require.NoError(t, err)
	assert.Len(t, s.History(), 1, "rejected request was not queued")

	second, err := r.Start(ctx, ResearchRequest{URL: "https://b"})
	require.NoError(t, err)
	_, err = second.Wait()
	assert.NoError(t, err)
}

func TestStartExtraction_Content(t *testing.T) {
	p := &mockProvider{data: map[string]any{"price": 9.99}, text: `{"price":9.99}`}
	r, s, _ := newTestResearcher(t, p)

	task, err := r.StartExtraction(context.Background(), ExtractRequest{
		Content: "Widget costs $9.99",
		Fields:  []types.Field{{Name: "price", Type: types.FieldNumber, Description: "unit price"}},
	})
	require.NoError(t, err)
	out, err := task.Wait()
	require.NoError(t, err)

	assert.Equal(t, "Widget costs $9.99", p.lastContent)
	assert.Equal(t, map[string]any{"price": 9.99}, out.Item.ExtractedData)
	assert.Nil(t, out.Alert)
	assert.Len(t, s.History(), 1)
}

func TestStartExtraction_FetchesURL(t *testing.T) {
	p := &mockProvider{data: map[string]any{"price": 1.0}}
	r, _, _ := newTestResearcher(t, p)

	task, err := r.StartExtraction(context.Background(), ExtractRequest{
		URL:    "https://shop.example/w",
		Fields: []types.Field{{Name: "price", Type: types.FieldNumber}},
	})
	require.NoError(t, err)
	out, err := task.Wait()
	require.NoError(t, err)

	assert.Equal(t, "page body", p.lastContent)
	assert.Equal(t, "https://shop.example/w", out.Item.URL)
	assert.Equal(t, "Page Title", out.Item.Title)
}

func TestStartExtraction_ParseErrorSavesNothing(t *testing.T) {
	p := &mockProvider{err: &provider.ParseError{Raw: "not json", Err: errors.New("bad")}}
	r, s, _ := newTestResearcher(t, p)

	task, err := r.StartExtraction(context.Background(), ExtractRequest{
		Content: "x",
		Fields:  []types.Field{{Name: "a", Type: types.FieldString}},
	})
	require.NoError(t, err)
	out, err := task.Wait()

	var pe *provider.ParseError
	require.ErrorAs(t, err, &pe)
	structured, ok := out.Result.(provider.Structured)
	require.True(t, ok)
	assert.NotNil(t, structured.Data)
	assert.Empty(t, structured.Data)
	assert.Empty(t, s.History())
}

func TestStartExtraction_Validation(t *testing.T) {
	r, _, _ := newTestResearcher(t, &mockProvider{})
	ctx := context.Background()

	_, err := r.StartExtraction(ctx, ExtractRequest{Fields: []types.Field{{Name: "a", Type: types.FieldString}}})
	assert.ErrorIs(t, err, ErrEmptyRequest)

	_, err = r.StartExtraction(ctx, ExtractRequest{Content: "x"})
	assert.Error(t, err, "no fields")

	_, err = r.StartExtraction(ctx, ExtractRequest{Content: "x", Fields: []types.Field{{Name: "a", Type: "date"}}})
	assert.Error(t, err, "bad field type")
}

func TestStartComparison(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{text: "| a | b |\nA new release of both."}
	r, s, _ := newTestResearcher(t, p)

	require.NoError(t, s.AddItem(ctx, types.ResearchItem{ID: "a", URL: "https://a", ExtractedData: "alpha"}))
	require.NoError(t, s.AddItem(ctx, types.ResearchItem{ID: "b", URL: "https://b", ExtractedData: map[string]any{"x": 1.0}}))

	task, err := r.StartComparison(ctx, []string{"a", "b"})
	require.NoError(t, err)
	out, err := task.Wait()
	require.NoError(t, err)

	assert.Equal(t, []any{"alpha", map[string]any{"x": 1.0}}, p.compareBlobs)
	assert.Equal(t, types.ItemComparison, out.Item.Type)
	assert.Nil(t, out.Alert, "comparisons never alert")
	assert.Empty(t, s.Alerts())
	assert.Len(t, s.History(), 3)
}

func TestStartComparison_Errors(t *testing.T) {
	r, _, _ := newTestResearcher(t, &mockProvider{})
	ctx := context.Background()

	_, err := r.StartComparison(ctx, nil)
	assert.ErrorIs(t, err, provider.ErrNothingToCompare)

	_, err = r.StartComparison(ctx, []string{"missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}
