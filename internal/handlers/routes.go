package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nvalden/discsync/internal/domain"
	"github.com/nvalden/discsync/internal/engine"
)

// syncRequest is the POST /api/sync body. Every field is optional and
// falls back to the server configuration. The library root is fixed by
// configuration and never taken from the request.
type syncRequest struct {
	Artist       string `json:"artist,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Concurrency  int    `json:"concurrency,omitempty"`
	RecheckHours *int   `json:"recheck_hours,omitempty"`
	FullSync     bool   `json:"full_sync,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
}

// StartSync runs a sync to completion and returns its summary. A second
// request while one is active gets 409 without touching the engine's run.
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	req := syncRequest{
		Quality:     h.Config.Quality,
		Concurrency: h.Config.Concurrency,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	quality, err := domain.ParseQuality(req.Quality)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recheck := h.Config.RecheckHours
	if req.RecheckHours != nil {
		recheck = *req.RecheckHours
	}

	params := engine.Params{
		Root:         h.Config.MusicDir,
		Quality:      quality,
		Concurrency:  req.Concurrency,
		RecheckHours: recheck,
		FullSync:     req.FullSync,
		DryRun:       req.DryRun,
		Artist:       req.Artist,
	}

	summary, err := h.Engine.Sync(r.Context(), params)
	if err != nil {
		if errors.Is(err, engine.ErrSyncActive) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.Logger.Error("Sync run failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// SyncStatus reports whether a run is active and the last completed summary.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":      h.Engine.Running(),
		"last_summary": h.Engine.LastSummary(),
	})
}

// Failures returns the newest failure log entries, newest first.
func (h *Handler) Failures(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	entries, err := h.DB.ListFailures(limit)
	if err != nil {
		h.Logger.Error("Failed to list failures", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read failure log")
		return
	}
	if entries == nil {
		entries = []domain.FailureLogEntry{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(entries),
		"failures": entries,
	})
}
