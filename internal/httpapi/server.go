// Package httpapi exposes the dashboard operations over HTTP: roster and
// path reads for both role views, path generation and assignment for the
// admin view, topic toggles for the student view.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prepdesk/prepdesk/internal/generator"
	"github.com/prepdesk/prepdesk/internal/learnpath"
)

// HealthCheck verifies one backing dependency for the readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	store     learnpath.Store
	generator *generator.Generator
	events    learnpath.EventLog
	broadcast *learnpath.Broadcaster
	checks    []HealthCheck
}

// Config configures a Server. Store and Generator are required; the rest
// default to no-ops.
type Config struct {
	Store       learnpath.Store
	Generator   *generator.Generator
	Events      learnpath.EventLog
	Broadcaster *learnpath.Broadcaster
	Checks      []HealthCheck
}

// NewServer creates an API server.
func NewServer(cfg Config) *Server {
	events := cfg.Events
	if events == nil {
		events = learnpath.NopEventLog{}
	}
	broadcast := cfg.Broadcaster
	if broadcast == nil {
		broadcast = learnpath.NewBroadcaster()
	}
	return &Server{
		store:     cfg.Store,
		generator: cfg.Generator,
		events:    events,
		broadcast: broadcast,
		checks:    cfg.Checks,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/v1/students", s.handleListStudents)
	mux.HandleFunc("GET /api/v1/students/{id}", s.handleGetStudent)
	mux.HandleFunc("GET /api/v1/paths", s.handleListPaths)
	mux.HandleFunc("GET /api/v1/paths/{id}", s.handleGetPath)
	mux.HandleFunc("POST /api/v1/paths/generate", s.handleGeneratePath)
	mux.HandleFunc("POST /api/v1/paths/{id}/assign", s.handleAssignPath)
	mux.HandleFunc("POST /api/v1/paths/{id}/topics/{topicID}/toggle", s.handleToggleTopic)
	mux.HandleFunc("GET /api/v1/reports/progress.xlsx", s.handleProgressReport)
	mux.HandleFunc("GET /api/v1/progress/watch", s.handleProgressWatch)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.checks {
		if err := check.Check(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", check.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"check":  check.Name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
