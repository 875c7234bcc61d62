package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaykit/automation-core/internal/automation"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListExecutions returns recent executions for an automation,
// newest first.
//
// Query parameters:
//   - automation_id: required, the automation whose audit trail to list
//   - limit: optional, maximum rows to return
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	automationID := r.URL.Query().Get("automation_id")
	if automationID == "" || len(automationID) > maxQueryParamLen {
		writeBadRequest(w, "automation_id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	executions, err := s.repo.ListExecutions(r.Context(), automationID, limit)
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"executions": executions,
		"count":      len(executions),
	})
}

// handleGetExecution returns a single execution by ID.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid execution ID")
		return
	}

	exec, err := s.repo.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrExecutionNotFound) {
			writeNotFound(w, "execution not found")
			return
		}
		writeInternalError(w, "failed to get execution")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleResumeExecution resumes a waiting execution immediately, without
// waiting for the sweeper's deadline pass. The claim is atomic: a second
// resume of the same execution reports a conflict.
func (s *Server) handleResumeExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid execution ID")
		return
	}

	outcome, err := s.engine.Resume(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, automation.ErrExecutionNotFound):
			writeNotFound(w, "execution not found")
		case errors.Is(err, automation.ErrNotWaiting):
			writeConflict(w, "execution is not waiting")
		default:
			writeInternalError(w, "failed to resume execution")
		}
		return
	}

	exec, err := s.repo.GetExecution(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to load resumed execution")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":   string(outcome),
		"execution": exec,
	})
}
