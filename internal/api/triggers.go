package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relaykit/automation-core/internal/automation"
)

// maxTriggerTargets limits how many targets one HTTP trigger may carry.
const maxTriggerTargets = 500

// triggerRequest is the POST /triggers body: the same shape trigger
// producers publish on the message bus.
type triggerRequest struct {
	Type    string              `json:"type"`
	Targets []automation.Target `json:"targets"`
}

// handleReceiveTrigger accepts a trigger event over HTTP and runs the full
// dispatch pass (enrollment + graph walk) before responding. Producers that
// need fire-and-forget semantics should publish to the bus instead.
func (s *Server) handleReceiveTrigger(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "trigger dispatch not available")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		writeBadRequest(w, "trigger type is required")
		return
	}
	if len(req.Targets) == 0 {
		writeBadRequest(w, "at least one target is required")
		return
	}
	if len(req.Targets) > maxTriggerTargets {
		writeBadRequest(w, "too many targets in one trigger")
		return
	}

	s.dispatcher.Receive(r.Context(), req.Type, req.Targets)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"type":    req.Type,
		"targets": len(req.Targets),
	})
}
