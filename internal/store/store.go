// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists research history and alerts under two fixed keys.
//
// Each key holds a JSON array, newest first. Every save replaces the whole
// array. A value that cannot be decoded loads as an empty list and is
// copied aside to <key>.corrupt so the original bytes are not lost on the
// next save.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/store/kv"
	"github.com/pdiddy/omnisense/pkg/types"
)

// Storage keys. These names are shared with data written by earlier
// releases and must not change.
const (
	HistoryKey = "omnisense_history"
	AlertsKey  = "omnisense_alerts"
)

const corruptSuffix = ".corrupt"

// StorageError reports a failed backend operation on one key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Snapshot is the full persisted state.
type Snapshot struct {
	History []types.ResearchItem `json:"history" yaml:"history"`
	Alerts  []types.Alert        `json:"alerts" yaml:"alerts"`
}

// Store reads and writes the two lists through a kv.Backend.
type Store struct {
	backend kv.Backend
	log     *zap.Logger
}

// New wraps backend. A nil logger discards output.
func New(backend kv.Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log.Named("store")}
}

// Load reads both lists. Missing keys load as empty lists. A key whose value
// is not a valid JSON array loads as empty and its bytes are preserved under
// <key>.corrupt. Only backend failures return an error.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	history, err := loadList[types.ResearchItem](ctx, s, HistoryKey)
	if err != nil {
		return Snapshot{}, err
	}
	alerts, err := loadList[types.Alert](ctx, s, AlertsKey)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{History: history, Alerts: alerts}
	s.log.Debug("loaded", zap.Int("history", len(snap.History)), zap.Int("alerts", len(snap.Alerts)))
	return snap, nil
}

func loadList[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok || len(data) == 0 {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		s.log.Warn("stored value is malformed, starting empty",
			zap.String("key", key),
			zap.String("backup", key+corruptSuffix),
			zap.Error(err))
		if perr := s.backend.Put(ctx, key+corruptSuffix, data); perr != nil {
			s.log.Warn("could not preserve malformed value", zap.String("key", key), zap.Error(perr))
		}
		return []T{}, nil
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// SaveHistory replaces the stored history.
func (s *Store) SaveHistory(ctx context.Context, items []types.ResearchItem) error {
	if items == nil {
		items = []types.ResearchItem{}
	}
	return s.save(ctx, HistoryKey, items)
}

// SaveAlerts replaces the stored alerts.
func (s *Store) SaveAlerts(ctx context.Context, alerts []types.Alert) error {
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return s.save(ctx, AlertsKey, alerts)
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// IsStorageError reports whether err came from a backend operation.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
