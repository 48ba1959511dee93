// Package server exposes dependency resolution over HTTP.
//
// Routes:
//
//	GET /package/{name}                  resolve name at "latest"
//	GET /package/{name}/{version}        resolve name at version
//	GET /package/{scope}/{name}/{version} resolve a scoped package (@scope/name)
//	GET /healthz                         liveness and build version
//
// Every resolution response uses the envelope {"message": ..., "payload": ...}.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/depgraph/pkg/deps"
)

const shutdownTimeout = 10 * time.Second

// Resolver is the resolution entry point the server calls.
type Resolver interface {
	Resolve(ctx context.Context, name, version string) (*deps.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr         string        // Listen address (default: ":8080")
	ReadTimeout  time.Duration // Request read timeout (default: 10s)
	WriteTimeout time.Duration // Response write timeout (default: 2m)
	CORSOrigins  []string      // Allowed origins; "*" or empty allows any
	Logger       *log.Logger   // Request logger (default: discard)
}

// Server serves the HTTP API.
type Server struct {
	resolver Resolver
	opts     Options
	logger   *log.Logger
	router   chi.Router

	// identical concurrent requests share one run
	inflight singleflight.Group
}

// New creates a Server backed by r.
func New(r Resolver, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{resolver: r, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Route("/package", func(r chi.Router) {
		r.Get("/{name}", s.handlePackage)
		r.Get("/{name}/{version}", s.handlePackage)
		r.Get("/{scope}/{name}/{version}", s.handlePackage)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Route was not found."})
	})
	return r
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
