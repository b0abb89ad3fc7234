// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/pdiddy/omnisense/internal/app"
	"github.com/pdiddy/omnisense/internal/derive"
	"github.com/pdiddy/omnisense/internal/fetch"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/internal/store"
	"github.com/pdiddy/omnisense/internal/store/kv"
)

// session is the wired application for one command invocation.
type session struct {
	store      *store.Store
	state      *app.State
	researcher *app.Researcher
}

func openSession(ctx context.Context) (*session, error) {
	backend, err := kv.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, logger)

	state, err := app.Load(ctx, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	client := provider.New(provider.NewGeminiBackend(cfg.Provider), cfg.Provider, logger)
	researcher := app.NewResearcher(client, state, derive.New(), fetch.New(), logger)

	return &session{store: st, state: state, researcher: researcher}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}
