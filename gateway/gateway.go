// Package gateway exposes a client session over a small local HTTP API. It is
// what `jobboard serve` runs: scripts and browser tooling talk to the gateway,
// and the gateway holds the tokens and renews them.
package gateway

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/session"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Gateway holds the dependencies needed by the HTTP handlers.
type Gateway struct {
	client      *client.Client
	session     *session.Manager
	logger      *slog.Logger
	gatherer    prometheus.Gatherer
	metrics     *metrics
	rateLimiter *loginRateLimiter
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithRegistry records request metrics on reg and serves it at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(g *Gateway) {
		g.gatherer = reg
		g.metrics = newMetrics(reg)
	}
}

// New creates a Gateway serving c's session.
func New(c *client.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:      c,
		session:     c.Session(),
		gatherer:    prometheus.DefaultGatherer,
		rateLimiter: newLoginRateLimiter(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	g.logger = g.logger.With("component", "gateway")
	return g
}

// Router returns a chi.Router with all gateway routes mounted.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(g.instrument)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))
	r.Handle("/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))

	r.Get("/session", g.GetSession)
	r.Post("/session/login", g.Login)
	r.Post("/session/logout", g.Logout)
	r.Post("/session/refresh", g.Refresh)

	r.Get("/jobs", g.ListJobs)
	r.Get("/jobs/filter-options", g.FilterOptions)
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", g.GetJob)
		r.Post("/apply", g.Apply)
		r.Post("/bookmark", g.ToggleBookmark)
	})
	r.Get("/applications", g.ListApplications)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", g.Dashboard)
		r.Post("/jobs", g.CreateJob)
		r.Delete("/jobs/{jobID}", g.DeleteJob)
	})

	return r
}
