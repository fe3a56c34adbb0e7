package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

type WorkflowsHandler struct {
	svc    *workflow.Service
	logger *utils.Logger
}

func NewWorkflowsHandler(svc *workflow.Service, logger *utils.Logger) *WorkflowsHandler {
	return &WorkflowsHandler{svc: svc, logger: logger}
}

func (h *WorkflowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workflow.CreateWorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.TemplateID) == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}
	wf, steps, err := h.svc.CreateWorkflow(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"workflow": wf, "steps": steps})
}

func (h *WorkflowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	view, err := h.svc.GetWorkflowView(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// List serves two shapes of query: ?role= returns the workflows with an
// active step assigned to that role, anything else is a plain filter list.
func (h *WorkflowsHandler) List(w http.ResponseWriter, r *http.Request) {
	if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
		items, err := h.svc.WorkflowsForRole(r.Context(), role)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
		return
	}
	filter := store.WorkflowFilter{
		Status:     strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		TemplateID: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("template_id"))),
		IncidentID: int64(parseIntDefault(r.URL.Query().Get("incident_id"), 0)),
		Limit:      parseIntDefault(r.URL.Query().Get("limit"), 0),
		Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	items, err := h.svc.ListWorkflows(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type stepActionRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Action    string `json:"action"`
	Comment   string `json:"comment"`
}

func (h *WorkflowsHandler) StepAction(w http.ResponseWriter, r *http.Request) {
	workflowID := urlParamInt64(r, "id")
	stepID := urlParamInt64(r, "step_id")
	if workflowID <= 0 || stepID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req stepActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.ActorID) == "" || strings.TrimSpace(req.ActorRole) == "" {
		writeError(w, http.StatusBadRequest, "actor_id and actor_role are required")
		return
	}
	result, err := h.svc.ApplyStepAction(r.Context(), workflow.StepActionInput{
		WorkflowID: workflowID,
		StepID:     stepID,
		ActorID:    strings.TrimSpace(req.ActorID),
		ActorRole:  req.ActorRole,
		Action:     req.Action,
		Comment:    strings.TrimSpace(req.Comment),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cancelWorkflowRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Comment   string `json:"comment"`
}

func (h *WorkflowsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req cancelWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.ActorID) == "" || strings.TrimSpace(req.ActorRole) == "" {
		writeError(w, http.StatusBadRequest, "actor_id and actor_role are required")
		return
	}
	result, err := h.svc.CancelWorkflow(r.Context(), id, strings.TrimSpace(req.ActorID), req.ActorRole, strings.TrimSpace(req.Comment))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *WorkflowsHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.svc.Registry().List()})
}

func (h *WorkflowsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to")
			return
		}
		to = t
	}
	m, err := h.svc.Metrics(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
