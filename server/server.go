// Package server exposes an AgentGraph over HTTP/JSON.
//
// Requests identify their user with the X-User-ID header. When the catalog
// declares a user directory, unknown users are rejected.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ordo-ai/agentgraph"
	"github.com/ordo-ai/agentgraph/config"
	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/runlog"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// Options configures a Server.
type Options struct {
	Addr string
	// Service is reported by /health.
	Service string
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64
	Logger       logging.Logger
}

// Server serves the agent API.
type Server struct {
	ag     *agentgraph.AgentGraph
	users  []config.UserSpec
	opts   Options
	logger *logging.GraphLogger
}

// New creates a Server over ag. The user directory is taken from the
// runtime's catalog.
func New(ag *agentgraph.AgentGraph, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:         ":8080",
		Service:      "agentgraph",
		MaxBodyBytes: 1 << 20,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Server{
		ag:     ag,
		users:  ag.Runtime().Catalog().Users,
		opts:   opts,
		logger: logging.NewGraphLogger(opts.Logger).WithComponent("server"),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/users", s.handleUsers)
	mux.HandleFunc("GET /v1/agents", s.handleAgents)

	mux.Handle("GET /v1/me", s.authenticate(s.handleMe))
	mux.Handle("POST /v1/agents/{name}/invoke", s.authenticate(s.handleInvoke))
	mux.Handle("DELETE /v1/agents/{name}/history", s.authenticate(s.handleClearHistory))
	mux.Handle("POST /v1/agents/{name}/jobs", s.authenticate(s.handleSubmit))
	mux.Handle("GET /v1/jobs/{id}", s.authenticate(s.handleJob))
	mux.Handle("GET /v1/runs", s.authenticate(s.handleRuns))

	return s.logRequests(mux)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server.started", "addr", s.opts.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		return err
	}
}

type userKey struct{}

// authenticate resolves the X-User-ID header into a user.
func (s *Server) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserHeader)
		if id == "" {
			writeError(w, &apiError{Status: http.StatusUnauthorized, Message: "Missing X-User-ID header"})
			return
		}

		user := config.UserSpec{ID: id}

		if len(s.users) > 0 {
			var found bool

			for _, u := range s.users {
				if u.ID == id {
					user, found = u, true
					break
				}
			}

			if !found {
				writeError(w, &apiError{Status: http.StatusNotFound, Message: "User not found"})
				return
			}
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		next(w, r.WithContext(core.WithUserID(ctx, id)))
	})
}

func userFrom(r *http.Request) config.UserSpec {
	u, _ := r.Context().Value(userKey{}).(config.UserSpec)
	return u
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": s.opts.Service})
}

func (s *Server) handleUsers(w http.ResponseWriter, _ *http.Request) {
	users := s.users
	if users == nil {
		users = []config.UserSpec{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": userFrom(r)})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	rt := s.ag.Runtime()
	writeJSON(w, http.StatusOK, map[string]any{"default": rt.Default(), "agents": rt.Agents()})
}

type invokeBody struct {
	Message string `json:"message"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (invokeBody, error) {
	var body invokeBody

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return body, &apiError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err}
	}

	return body, nil
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := s.decode(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ag.Invoke(r.Context(), agentgraph.InvokeRequest{
		UserID:  userFrom(r).ID,
		Agent:   r.PathValue("name"),
		Message: body.Message,
	})

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case core.IsNotConverged(err) && res != nil:
		s.logger.Warn("invoke.not_converged", "agent", res.Agent, "run_id", res.RunID, "steps", res.Steps)
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		writeError(w, err)
	}
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.ag.ClearHistory(r.Context(), userFrom(r).ID, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := s.decode(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	run, err := s.ag.Submit(r.Context(), agentgraph.InvokeRequest{
		UserID:  userFrom(r).ID,
		Agent:   r.PathValue("name"),
		Message: body.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": run.ID, "status": run.Status})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	run, err := s.ag.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Runs of other users are reported as missing.
	if run.UserID != userFrom(r).ID {
		writeError(w, runlog.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.ag.Runs(r.Context(), userFrom(r).ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if runs == nil {
		runs = []runlog.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("http.request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}
