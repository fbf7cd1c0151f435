package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"szurutools/internal/deps"
	"szurutools/internal/events"
	"szurutools/internal/history"
	"szurutools/internal/implications"
	"szurutools/internal/importer"
	"szurutools/internal/logging"
	"szurutools/internal/services"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// StatusResponse describes the server and its external dependencies.
type StatusResponse struct {
	Service      string        `json:"service"`
	HistoryPath  string        `json:"history_path,omitempty"`
	Dependencies []deps.Status `json:"dependencies"`
}

// RunsResponse lists recent runs.
type RunsResponse struct {
	Runs []history.Run `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": ServiceName})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := StatusResponse{
		Service:      ServiceName,
		Dependencies: deps.CheckBinaries(s.opts.Requirements),
	}
	if s.opts.History != nil {
		payload.HistoryPath = s.opts.History.Path()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importer.Request
	if !s.decode(w, r, &req) {
		return
	}
	ctx := services.WithRunKind(r.Context(), history.KindImport)
	started := time.Now()
	result, err := s.opts.Importer.Import(ctx, req, nil)
	s.record(ctx, history.NewRun(history.KindImport, false, req, result, started, err))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrConfiguration) {
			status = services.HTTPStatus(err)
		}
		s.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyImplications(w http.ResponseWriter, r *http.Request) {
	var req implications.Request
	if !s.decode(w, r, &req) {
		return
	}
	result := s.runImplications(r.Context(), req, nil)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyImplicationsStream(w http.ResponseWriter, r *http.Request) {
	var req implications.Request
	if !s.decode(w, r, &req) {
		return
	}
	stream := startStream(w)
	s.runImplications(context.WithoutCancel(r.Context()), req, stream)
	s.logStreamFailure(r.Context(), stream)
}

func (s *Server) handleDeleteUnused(w http.ResponseWriter, r *http.Request) {
	var req implications.SweepRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.runSweep(r.Context(), req, nil))
}

func (s *Server) handleDeleteUnusedStream(w http.ResponseWriter, r *http.Request) {
	var req implications.SweepRequest
	if !s.decode(w, r, &req) {
		return
	}
	stream := startStream(w)
	s.runSweep(context.WithoutCancel(r.Context()), req, stream)
	s.logStreamFailure(r.Context(), stream)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeJSON(w, http.StatusOK, RunsResponse{Runs: []history.Run{}})
		return
	}
	limit := history.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	runs, err := s.opts.History.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) runImplications(ctx context.Context, req implications.Request, sink events.Sink) *implications.Result {
	ctx = services.WithRunKind(ctx, history.KindImplications)
	started := time.Now()
	propagator := implications.NewPropagator(s.opts.Board, s.opts.Board, s.opts.Board, s.opts.Logger)
	result := propagator.Run(ctx, req, sink)
	s.record(ctx, history.NewRun(history.KindImplications, req.DryRun, req, result, started, nil))
	return result
}

func (s *Server) runSweep(ctx context.Context, req implications.SweepRequest, sink events.Sink) *implications.SweepResult {
	ctx = services.WithRunKind(ctx, history.KindSweep)
	started := time.Now()
	result := implications.NewSweeper(s.opts.Board, s.opts.Logger).Sweep(ctx, req, sink)
	s.record(ctx, history.NewRun(history.KindSweep, req.DryRun, req, result, started, nil))
	return result
}

// record stores run in history. Failures are logged only.
func (s *Server) record(ctx context.Context, run history.Run) {
	if s.opts.History == nil {
		return
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		run.RequestID = id
	}
	if _, err := s.opts.History.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.WithContext(ctx, s.logger).Warn("run history not recorded",
			logging.String("kind", run.Kind),
			logging.Error(err),
		)
	}
}

func startStream(w http.ResponseWriter) *events.StreamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return events.NewStreamWriter(w)
}

func (s *Server) logStreamFailure(ctx context.Context, stream *events.StreamWriter) {
	if err := stream.Err(); err != nil {
		logging.WithContext(ctx, s.logger).Info("stream consumer went away; run finished without it", logging.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", logging.Int("status", status), logging.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
