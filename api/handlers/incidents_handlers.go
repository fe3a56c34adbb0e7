package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"kestrel-qhse/core/store"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

type IncidentsHandler struct {
	store  store.IncidentsStore
	svc    *workflow.Service
	logger *utils.Logger
}

func NewIncidentsHandler(is store.IncidentsStore, svc *workflow.Service, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{store: is, svc: svc, logger: logger}
}

var validIncidentSeverity = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

type createIncidentRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	SectorID       int64   `json:"sector_id"`
	IncidentTypeID int64   `json:"incident_type_id"`
	Probability    float64 `json:"probability"`
	ReportedBy     string  `json:"reported_by"`
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.SectorID <= 0 || req.IncidentTypeID <= 0 {
		writeError(w, http.StatusBadRequest, "title, sector_id and incident_type_id are required")
		return
	}
	if req.Probability < 0 || req.Probability > 1 {
		writeError(w, http.StatusBadRequest, "probability must be between 0 and 1")
		return
	}
	sector, err := h.store.GetSector(r.Context(), req.SectorID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	itype, err := h.store.GetIncidentType(r.Context(), req.IncidentTypeID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if sector == nil || itype == nil {
		writeError(w, http.StatusBadRequest, "unknown sector or incident type")
		return
	}
	inc := &store.Incident{
		Title:          req.Title,
		Description:    strings.TrimSpace(req.Description),
		SectorID:       req.SectorID,
		IncidentTypeID: req.IncidentTypeID,
		Probability:    req.Probability,
		ReportedBy:     strings.TrimSpace(req.ReportedBy),
	}
	if _, err := h.store.CreateIncident(r.Context(), inc); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	inc, err := h.store.GetIncident(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if inc == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	severity := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("severity")))
	if severity != "" {
		if _, ok := validIncidentSeverity[severity]; !ok {
			writeError(w, http.StatusBadRequest, "invalid severity")
			return
		}
	}
	filter := store.IncidentFilter{
		Search:   r.URL.Query().Get("q"),
		Status:   strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		Severity: severity,
		SectorID: int64(parseIntDefault(r.URL.Query().Get("sector_id"), 0)),
		Limit:    parseIntDefault(r.URL.Query().Get("limit"), 0),
		Offset:   parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	items, err := h.store.ListIncidents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Score computes and persists the risk score for one incident.
func (h *IncidentsHandler) Score(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	inc, err := h.svc.ScoreIncident(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *IncidentsHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListSectors(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *IncidentsHandler) ListIncidentTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListIncidentTypes(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
