// Package handler exposes the document engine over a small JSON API.
//
// Opening a document binds a live object server-side; the session endpoints
// mutate that object and let the watch-diff protocol carry the change to the
// backend, which is the whole point: no handler ever issues a save.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"livedoc/internal/domain"
	"livedoc/internal/live"
	"livedoc/internal/store"
	"livedoc/internal/validator"
)

// Handler serves the document API.
type Handler struct {
	store    *store.Store
	sessions *xsync.MapOf[string, *live.Object]
	log      *slog.Logger
}

// New creates a handler over a store.
func New(s *store.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		store:    s,
		sessions: xsync.NewMapOf[string, *live.Object](),
		log:      log,
	}
}

// Routes registers the API on a mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.openDocument)
	mux.HandleFunc("DELETE /api/documents", h.removeDocument)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", h.patchSession)
	mux.HandleFunc("GET /api/drivers", h.listDrivers)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

// openRequest selects or creates a document.
type openRequest struct {
	Driver     string         `json:"driver"`
	Collection string         `json:"collection"`
	Query      domain.Query   `json:"query,omitempty"`
	Value      map[string]any `json:"value,omitempty"`
}

type openResponse struct {
	ID    string         `json:"id"`
	State map[string]any `json:"state"`
}

func (h *Handler) openDocument(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Driver == "" || req.Collection == "" {
		http.Error(w, "driver and collection are required", http.StatusBadRequest)
		return
	}

	obj, err := h.store.Open(r.Context(), req.Driver, req.Collection, req.Query, req.Value)
	if err != nil {
		h.log.Warn("open failed", "driver", req.Driver, "collection", req.Collection, "error", err)
		http.Error(w, err.Error(), openStatus(err))
		return
	}

	h.sessions.Store(obj.ID(), obj)
	writeJSON(w, openResponse{ID: obj.ID(), State: obj.Snapshot()})
}

func openStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownDriver):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case validator.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type removeRequest struct {
	Driver     string       `json:"driver"`
	Collection string       `json:"collection"`
	Query      domain.Query `json:"query"`
}

func (h *Handler) removeDocument(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, removed := h.store.Remove(r.Context(), req.Driver, req.Collection, req.Query)
	if removed {
		// The session binding, if any, is gone with the document.
		h.sessions.Delete(id)
	}
	writeJSON(w, map[string]bool{"removed": removed})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	obj, ok := h.sessions.Load(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, openResponse{ID: obj.ID(), State: obj.Snapshot()})
}

// patchSession mutates the live object. The response reflects the in-memory
// state immediately; persistence happens asynchronously through the watcher,
// and an invalid mutation is skipped by the engine rather than rejected here.
func (h *Handler) patchSession(w http.ResponseWriter, r *http.Request) {
	obj, ok := h.sessions.Load(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	for field, value := range fields {
		obj.Set(field, value)
	}
	writeJSON(w, openResponse{ID: obj.ID(), State: obj.Snapshot()})
}

func (h *Handler) listDrivers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.store.DriverStatus())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}
