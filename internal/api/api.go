// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves the research state and research actions as a local
// JSON API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/app"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/internal/store"
	"github.com/pdiddy/omnisense/pkg/types"
)

const maxBodySize = 20 << 20 // screenshots arrive inline

// Deps are the handler's collaborators.
type Deps struct {
	State      *app.State
	Researcher *app.Researcher
	Log        *zap.Logger
}

// NewHandler builds the router.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	h := &handler{deps: deps, log: deps.Log.Named("api")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)

		r.Post("/research", h.research)
		r.Post("/extract", h.extract)
		r.Post("/compare", h.compare)

		r.Get("/history", h.listHistory)
		r.Delete("/history", h.clearHistory)
		r.Get("/history/{id}", h.getItem)
		r.Delete("/history/{id}", h.deleteItem)

		r.Get("/alerts", h.listAlerts)
		r.Delete("/alerts", h.clearAlerts)
		r.Delete("/alerts/{id}", h.dismissAlert)
	})
	return r
}

type handler struct {
	deps Deps
	log  *zap.Logger
}

// ResearchResponse is returned by the research, extract, and compare routes.
type ResearchResponse struct {
	Item       *types.ResearchItem `json:"item,omitempty"`
	Alert      *types.Alert        `json:"alert,omitempty"`
	Text       string              `json:"text,omitempty"`
	Sources    []types.Citation    `json:"sources,omitempty"`
	Data       map[string]any      `json:"data,omitempty"`
	Violations []string            `json:"violations,omitempty"`
}

type compareRequest struct {
	IDs []string `json:"ids"`
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.State.Dashboard())
}

func (h *handler) research(w http.ResponseWriter, r *http.Request) {
	var req app.ResearchRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ImageBase64 != "" {
		req.ImageBase64, req.MIMEType = SplitDataURL(req.ImageBase64, req.MIMEType)
	}
	task, err := h.deps.Researcher.Start(r.Context(), req)
	h.finish(w, task, err)
}

func (h *handler) extract(w http.ResponseWriter, r *http.Request) {
	var req app.ExtractRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.deps.Researcher.StartExtraction(r.Context(), req)
	h.finish(w, task, err)
}

func (h *handler) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.deps.Researcher.StartComparison(r.Context(), req.IDs)
	h.finish(w, task, err)
}

// finish waits for task and writes its outcome, or maps the start error.
func (h *handler) finish(w http.ResponseWriter, task *app.Task, startErr error) {
	if startErr != nil {
		writeError(w, startStatus(startErr), startErr.Error())
		return
	}

	out, err := task.Wait()
	resp := responseFor(out)

	var pe *provider.ParseError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &pe):
		h.log.Warn("structured response could not be parsed", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"data":  map[string]any{},
			"error": map[string]string{"message": pe.Error()},
		})
	case errors.Is(err, provider.ErrResearchFailed):
		h.log.Debug("provider failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, app.FailureMessage)
	case store.IsStorageError(err):
		h.log.Error("result not saved", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Warn("request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func responseFor(out app.Outcome) ResearchResponse {
	resp := ResearchResponse{Item: out.Item, Alert: out.Alert}
	if out.Result == nil {
		return resp
	}
	resp.Text = out.Result.Body()
	resp.Sources = provider.SourcesOf(out.Result)
	if s, ok := out.Result.(provider.Structured); ok {
		resp.Data = s.Data
		resp.Violations = s.Violations
		resp.Text = ""
	}
	return resp
}

func startStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.State.FilterHistory(r.URL.Query().Get("filter")))
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.deps.State.Item(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, h.deps.State.DeleteItem(r.Context(), chi.URLParam(r, "id")))
}

func (h *handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, h.deps.State.ClearHistory(r.Context()))
}

func (h *handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.State.Alerts())
}

func (h *handler) dismissAlert(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, h.deps.State.DismissAlert(r.Context(), chi.URLParam(r, "id")))
}

func (h *handler) clearAlerts(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, h.deps.State.ClearAlerts(r.Context()))
}

func (h *handler) mutate(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("state update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// SplitDataURL strips a "data:<mime>;base64," prefix from s. The mime type
// from the prefix wins over fallback.
func SplitDataURL(s, fallback string) (data, mimeType string) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return s, fallback
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return s, fallback
	}
	mimeType, _, _ = strings.Cut(header, ";")
	if mimeType == "" {
		mimeType = fallback
	}
	return payload, mimeType
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]string{"message": msg},
	})
}
