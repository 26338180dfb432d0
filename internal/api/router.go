package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/linkgraph/internal/graphservice"
)

// RouterOptions carries the optional pieces mounted next to the graph API.
type RouterOptions struct {
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler
	// Metrics, if non-nil, is mounted at GET /metrics.
	Metrics http.Handler
	// AllowOrigin sets CORS headers when non-empty.
	AllowOrigin string
	// ArtifactPath is the root-level route serving the artifact.
	ArtifactPath string
}

// NewRouter creates the preview server's root router.
func NewRouter(svc *graphservice.Service, opts RouterOptions) chi.Router {
	h := NewHandler(svc)
	if opts.ArtifactPath == "" {
		opts.ArtifactPath = "/graph-data.json"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(opts.AllowOrigin))

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	r.Get(opts.ArtifactPath, h.Graph)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", h.Graph)
		r.Get("/stats", h.Stats)
		r.Get("/unresolved", h.Unresolved)
		r.Get("/nodes/{id}", h.Node)
		r.Get("/nodes/{id}/backlinks", h.Backlinks)
		r.Get("/items/{id}", h.Item)
		if opts.Events != nil {
			r.Method(http.MethodGet, "/events", opts.Events)
		}
	})

	return r
}
