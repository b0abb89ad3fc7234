// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package app holds the process-wide research state and runs research
// requests against the provider.
//
// State is the only writer to the persisted store. Every mutation builds
// the new list, persists it, and only then replaces the in-memory copy, so
// memory and storage never disagree after a failed write.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/omnisense/internal/store"
	"github.com/pdiddy/omnisense/pkg/types"
)

var (
	// ErrBusy is returned when a request is started while another is pending.
	ErrBusy = errors.New("a research request is already in progress")

	// ErrNotFound is returned for an unknown item or alert id.
	ErrNotFound = errors.New("not found")
)

// Dashboard sizes.
const (
	DashboardItems  = 3
	DashboardAlerts = 5
)

// Dashboard summarizes the state for the overview screen.
type Dashboard struct {
	ItemCount    int                  `json:"itemCount" yaml:"item_count"`
	AlertCount   int                  `json:"alertCount" yaml:"alert_count"`
	RecentItems  []types.ResearchItem `json:"recentItems" yaml:"recent_items"`
	RecentAlerts []types.Alert        `json:"recentAlerts" yaml:"recent_alerts"`
}

// State owns the history and alert lists, newest first.
type State struct {
	store    *store.Store
	log      *zap.Logger
	inflight *semaphore.Weighted

	mu      sync.Mutex // held across persistence calls
	history []types.ResearchItem
	alerts  []types.Alert
}

// Load reads both lists from st and returns the state that owns them.
func Load(ctx context.Context, st *store.Store, log *zap.Logger) (*State, error) {
	if log == nil {
		log = zap.NewNop()
	}
	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return &State{
		store:    st,
		log:      log.Named("state"),
		inflight: semaphore.NewWeighted(1),
		history:  snap.History,
		alerts:   snap.Alerts,
	}, nil
}

// Begin claims the single in-flight slot. The returned release must be
// called exactly once when the request finishes. ErrBusy is returned
// immediately if the slot is taken; requests are never queued.
func (s *State) Begin() (release func(), err error) {
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(func() { s.inflight.Release(1) }) }, nil
}

// History returns a copy of all items, newest first.
func (s *State) History() []types.ResearchItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// FilterHistory returns items whose title or URL contains filter,
// ignoring case.
func (s *State) FilterHistory(filter string) []types.ResearchItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ResearchItem, 0, len(s.history))
	for _, item := range s.history {
		if item.Matches(filter) {
			out = append(out, item)
		}
	}
	return out
}

// Item returns the item with the given id.
func (s *State) Item(id string) (types.ResearchItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.history {
		if item.ID == id {
			return item, nil
		}
	}
	return types.ResearchItem{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
}

// Items returns the items for ids in the order given.
func (s *State) Items(ids []string) ([]types.ResearchItem, error) {
	out := make([]types.ResearchItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.Item(id)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Alerts returns a copy of all alerts, newest first.
func (s *State) Alerts() []types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

// Snapshot returns copies of both lists.
func (s *State) Snapshot() store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Snapshot{
		History: slices.Clone(s.history),
		Alerts:  slices.Clone(s.alerts),
	}
}

// Dashboard returns the counts and the most recent entries.
func (s *State) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dashboard{
		ItemCount:    len(s.history),
		AlertCount:   len(s.alerts),
		RecentItems:  slices.Clone(s.history[:min(DashboardItems, len(s.history))]),
		RecentAlerts: slices.Clone(s.alerts[:min(DashboardAlerts, len(s.alerts))]),
	}
}

// AddItem prepends item and persists the history.
func (s *State) AddItem(ctx context.Context, item types.ResearchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]types.ResearchItem{item}, s.history...)
	if err := s.saveHistory(ctx, next); err != nil {
		return err
	}
	s.log.Debug("item added", zap.String("id", item.ID), zap.String("type", string(item.Type)))
	return nil
}

// AddAlert prepends alert and persists the alerts.
func (s *State) AddAlert(ctx context.Context, alert types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]types.Alert{alert}, s.alerts...)
	if err := s.saveAlerts(ctx, next); err != nil {
		return err
	}
	s.log.Debug("alert added", zap.String("id", alert.ID), zap.String("source", alert.SourceID))
	return nil
}

// DeleteItem removes one item. Alerts that reference it are kept.
func (s *State) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.history, func(it types.ResearchItem) bool { return it.ID == id })
	if i < 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return s.saveHistory(ctx, slices.Delete(slices.Clone(s.history), i, i+1))
}

// ClearHistory removes every item.
func (s *State) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveHistory(ctx, []types.ResearchItem{})
}

// DismissAlert removes one alert.
func (s *State) DismissAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.alerts, func(a types.Alert) bool { return a.ID == id })
	if i < 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return s.saveAlerts(ctx, slices.Delete(slices.Clone(s.alerts), i, i+1))
}

// ClearAlerts removes every alert.
func (s *State) ClearAlerts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAlerts(ctx, []types.Alert{})
}

// saveHistory and saveAlerts require the lock.
func (s *State) saveHistory(ctx context.Context, next []types.ResearchItem) error {
	if err := s.store.SaveHistory(ctx, next); err != nil {
		s.log.Error("saving history", zap.Error(err))
		return err
	}
	s.history = next
	return nil
}

func (s *State) saveAlerts(ctx context.Context, next []types.Alert) error {
	if err := s.store.SaveAlerts(ctx, next); err != nil {
		s.log.Error("saving alerts", zap.Error(err))
		return err
	}
	s.alerts = next
	return nil
}
