// Package handlers exposes the HTTP trigger surface: start a sync run,
// poll the engine's status, and read the durable failure log.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvalden/discsync/internal/config"
	"github.com/nvalden/discsync/internal/engine"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/store"
)

type Handler struct {
	Engine *engine.Engine
	DB     *store.DB
	Config *config.Config
	Logger *logger.Logger
}

func NewHandler(eng *engine.Engine, db *store.DB, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		Engine: eng,
		DB:     db,
		Config: cfg,
		Logger: log.WithComponent("api"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", h.StartSync)
		r.Get("/sync", h.SyncStatus)
		r.Get("/failures", h.Failures)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
