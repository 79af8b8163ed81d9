// Package api exposes the crawl trigger, the incremental polling endpoint,
// the event stream, and the health check over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/lead-finder/internal/config"
	"github.com/sells-group/lead-finder/internal/crawl"
	"github.com/sells-group/lead-finder/internal/store"
)

const (
	serviceName    = "lead-finder"
	serviceVersion = "1.0"
)

// Server wires the store and the crawl runner to the HTTP surface.
type Server struct {
	store  store.Store
	runner *crawl.Runner
	cfg    *config.Config
}

// NewServer creates a Server. The store and runner are constructed by the
// caller and injected here; the server owns neither.
func NewServer(st store.Store, runner *crawl.Runner, cfg *config.Config) *Server {
	return &Server{store: st, runner: runner, cfg: cfg}
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	// The browser frontend is served from a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/crawl", s.handleCrawl)
	r.Get("/stream", s.handleStream)
	r.Get("/events", s.handleEvents)
	r.Get("/api/health", s.handleHealth)

	return r
}

func (s *Server) eventsPollInterval() time.Duration {
	if s.cfg.Server.EventsPollMS > 0 {
		return time.Duration(s.cfg.Server.EventsPollMS) * time.Millisecond
	}
	return time.Second
}
