package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"kestrel-qhse/core/scoring"
	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error classes onto HTTP statuses.
// Conflicts (lost races, duplicate workflows, non-active steps) are all 409:
// the client re-reads current state and decides whether to retry.
func writeServiceError(w http.ResponseWriter, logger *utils.Logger, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, workflow.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, workflow.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, workflow.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "step is not active")
	case errors.Is(err, workflow.ErrDuplicateWorkflow):
		writeError(w, http.StatusConflict, "incident already has an open workflow")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict, retry with current state")
	case errors.Is(err, workflow.ErrInvalidInput), errors.Is(err, scoring.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, workflow.ErrStoreUnavailable):
		logger.Errorf("store unavailable: %v", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
