// Package httpadapter serves the job API, the result listing, rendered
// artifacts and the operational endpoints.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

// JobService accepts render requests and reports on them. *pipeline.Dispatcher
// implements it.
type JobService interface {
	Enqueue(ctx context.Context, state, variable string) (domain.JobDescriptor, error)
	Status(ctx context.Context, id string) (domain.JobStatus, error)
}

// ResultLister enumerates rendered artifacts. *catalog.Catalog implements it.
type ResultLister interface {
	List(ctx context.Context) ([]domain.ResultEntry, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Ready     sharedobs.ReadinessChecker
	Jobs      JobService
	Results   ResultLister
	Registry  *domain.Registry
	OutputDir string
}

// Server exposes the API, artifact files, and health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/variables", s.handleVariables)
	mux.HandleFunc("GET /api/{state}/{variable}", s.handleEnqueuePath)
	mux.Handle("GET /output/", http.StripPrefix("/output/", http.FileServer(http.Dir(deps.OutputDir))))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
