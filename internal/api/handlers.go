package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkgraph/internal/graphservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Graph handles GET /graph-data.json and GET /api/graph.
//
// The body is the artifact exactly as written to disk. The ETag is the
// artifact checksum.
//
//	@Summary		Get the graph artifact
//	@Tags			graph
//	@Produce		json
//	@Success		200
//	@Success		304
//	@Failure		503	{object}	errResponse
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	data, sum, ok := h.svc.Artifact()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no graph built yet"))
		return
	}
	etag := `"` + sum + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func matchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// Stats handles GET /api/stats.
//
//	@Summary		Describe the current build
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		503	{object}	errResponse
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	info, err := h.svc.Info()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Node handles GET /api/nodes/{id}.
//
//	@Summary		Get a node with its links
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Router			/nodes/{id} [get]
func (h *Handler) Node(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Node(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Backlinks handles GET /api/nodes/{id}/backlinks.
//
//	@Summary		List nodes linking to a node
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Router			/nodes/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.svc.Backlinks(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Backlinks: links})
}

// Unresolved handles GET /api/unresolved.
//
//	@Summary		List placeholder nodes and their referrers
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	UnresolvedResponse
//	@Failure		503	{object}	errResponse
//	@Router			/unresolved [get]
func (h *Handler) Unresolved(w http.ResponseWriter, _ *http.Request) {
	nodes, err := h.svc.Unresolved()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnresolvedResponse{Nodes: nodes})
}

// Item handles GET /api/items/{id}. Hidden items are served too so their
// classification can be inspected.
//
//	@Summary		Get a scanned content item
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item id"
//	@Success		200	{object}	ItemResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Router			/items/{id} [get]
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Item(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /health/ready. It reports 503 until the first build.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.svc.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "building"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
