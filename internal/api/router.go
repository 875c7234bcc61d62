package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// componentCheckTimeout bounds each backing-service probe during /health.
const componentCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Trigger intake for producers not on the message bus
		r.Post("/triggers", s.handleReceiveTrigger)

		// Automation definitions (read-only inspection)
		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Get("/{id}", s.handleGetAutomation)
		})

		// Execution audit surface
		r.Route("/executions", func(r chi.Router) {
			r.Get("/", s.handleListExecutions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetExecution)
				r.Post("/resume", s.handleResumeExecution)
			})
		})
	})

	return r
}

// handleHealth returns the server health status along with per-component
// probe results for the backing services.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.components))

	for name, checker := range s.components {
		ctx, cancel := context.WithTimeout(r.Context(), componentCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()

		if err != nil {
			status = "degraded"
			components[name] = err.Error()
		} else {
			components[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":      status,
		"version":     s.version,
		"automations": s.registry.Count(),
		"components":  components,
	})
}
