package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodyMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Post("/write", s.handleWrite)
		r.Post("/render", s.handleRender)
		if s.stream != nil {
			r.Get("/stream", s.handleStream)
		}
	})

	return r
}

// handleHealth reports the server version and the health of every
// registered component.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

// handleStats returns pipeline counters and the spool backlog.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"pipeline": s.writer.Stats(),
		"sinks":    s.writer.SinkNames(),
	}

	if s.spool != nil {
		counts, err := s.spool.Count(r.Context())
		if err != nil {
			s.logger.Error("reading spool backlog", "error", err)
			writeInternalError(w, "failed to read spool backlog")
			return
		}
		resp["spool"] = counts
	}

	if s.stream != nil {
		resp["stream"] = map[string]int64{
			"clients": int64(s.stream.ClientCount()),
			"dropped": s.stream.Dropped(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
