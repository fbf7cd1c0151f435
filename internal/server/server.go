package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"szurutools/internal/deps"
	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/implications"
	"szurutools/internal/importer"
	"szurutools/internal/logging"
	"szurutools/internal/services"
)

// ServiceName identifies the API in health responses.
const ServiceName = "szurutools"

// ErrAlreadyRunning reports that another server holds the state directory lock.
var ErrAlreadyRunning = errors.New("another szurutools server is already running")

// Importer runs gallery imports.
type Importer interface {
	Import(ctx context.Context, req importer.Request, sink events.Sink) (*importer.Result, error)
}

// Options wires a server.
type Options struct {
	Bind     string
	APIToken string
	// LockPath, when set, is locked for the lifetime of Run.
	LockPath string
	Board    implications.Board
	Importer Importer
	// History is optional; runs are not recorded without it.
	History      *history.Store
	Requirements []deps.Requirement
	Logger       *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// New builds a server. Board and Importer are required.
func New(opts Options) (*Server, error) {
	if opts.Board == nil {
		return nil, services.Wrap(services.ErrConfiguration, "server", "init", "board client required", nil)
	}
	if opts.Importer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "server", "init", "importer required", nil)
	}
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "api-server"),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/status", s.handleStatus)
	api.HandleFunc("POST /api/import", s.handleImport)
	api.HandleFunc("POST /api/tag-tools/apply-implications", s.handleApplyImplications)
	api.HandleFunc("POST /api/tag-tools/apply-implications-stream", s.handleApplyImplicationsStream)
	api.HandleFunc("POST /api/tag-tools/delete-unused", s.handleDeleteUnused)
	api.HandleFunc("POST /api/tag-tools/delete-unused-stream", s.handleDeleteUnusedStream)
	api.HandleFunc("GET /api/runs", s.handleRuns)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("/api/", authMiddleware(strings.TrimSpace(opts.APIToken), api))

	s.handler = s.withRequestID(mux)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run acquires the instance lock, listens on the configured bind address and
// serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if path := strings.TrimSpace(s.opts.LockPath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("ensure lock directory: %w", err)
		}
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrAlreadyRunning
		}
		defer func() { _ = lock.Unlock() }()
	}

	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streamed runs last as long as the board takes; no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		s.logger.Info("api server stopped")
		return nil
	})
	return group.Wait()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
