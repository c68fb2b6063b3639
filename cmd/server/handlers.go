package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brunobiangulo/conceptgraph"
)

const maxNeighborLimit = 500

type handler struct {
	engine conceptgraph.Engine
}

func newHandler(e conceptgraph.Engine) *handler {
	return &handler{engine: e}
}

// POST /build
// Body: {"paths": ["defs/ruby", "defs/sql.xml"]}. Paths must exist on the
// server's filesystem.
func (h *handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid path")
			return
		}
		if _, err := os.Stat(abs); err != nil {
			writeError(w, http.StatusBadRequest, "path does not exist: "+p)
			return
		}
		paths = append(paths, abs)
	}

	info, err := h.engine.Ingest(ctx, paths...)
	if err != nil {
		writeEngineError(w, "build failed", err)
		slog.Error("server: build error", "paths", paths, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /concepts
func (h *handler) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.engine.ListConcepts(r.Context())
	if err != nil {
		writeEngineError(w, "failed to list concepts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concepts": concepts})
}

// GET /concepts/{name}/neighbors?limit=n
func (h *handler) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxNeighborLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	neighbors, err := h.engine.Neighbors(r.Context(), name)
	if err != nil {
		writeEngineError(w, "neighbor lookup failed", err)
		return
	}
	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"concept":   name,
		"neighbors": neighbors,
	})
}

// GET /concepts/{name}/references
func (h *handler) handleReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.engine.References(r.Context(), r.PathValue("name"))
	if err != nil {
		writeEngineError(w, "reference lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// GET /concepts/{name}/images
func (h *handler) handleImages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	res, err := h.engine.SearchImages(ctx, r.PathValue("name"))
	if err != nil {
		writeEngineError(w, "image search failed", err)
		return
	}
	body := map[string]any{
		"query":  res.Query,
		"status": res.Status.String(),
		"urls":   res.URLs,
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// GET /builds
func (h *handler) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := h.engine.ListBuilds(r.Context())
	if err != nil {
		writeEngineError(w, "failed to list builds", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"builds": builds})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Store()
	stats, err := s.DBStats(r.Context())
	if err != nil {
		slog.Error("server: health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	version, err := s.SchemaVersion(r.Context())
	if err != nil {
		slog.Error("server: health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"schema_version": version,
		"db":             stats,
	})
}

// writeEngineError maps engine sentinels to HTTP statuses. Unexpected errors
// are logged and reported as 500 with msg only.
func writeEngineError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, conceptgraph.ErrConceptNotFound), errors.Is(err, conceptgraph.ErrNoBuild):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, conceptgraph.ErrParsingFailed),
		errors.Is(err, conceptgraph.ErrUnsupportedFormat),
		errors.Is(err, conceptgraph.ErrNoDefinitions):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, conceptgraph.ErrImageSearchDisabled):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		slog.Error("server: "+msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
