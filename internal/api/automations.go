package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaykit/automation-core/internal/automation"
)

// handleListAutomations returns all active automation definitions from the
// repository, with graph diagnostics attached for authoring feedback.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	automations, err := s.repo.ListActiveAutomations(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list automations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"automations": automations,
		"count":       len(automations),
	})
}

// handleGetAutomation returns a single automation definition by ID,
// served from the registry cache where possible.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	a, err := s.registry.GetAutomation(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"automation": a,
		"warnings":   automation.GraphWarnings(a),
	})
}
