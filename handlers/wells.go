package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/storage"
	"p9e.in/rigops/pkg/store"
	"p9e.in/rigops/pkg/workflow"
)

// WellHandler serves well records and their approval workflow.
type WellHandler struct {
	svc      *workflow.WellService
	wells    store.WellStore
	access   *access.Resolver
	uploader storage.Uploader
}

func NewWellHandler(svc *workflow.WellService, wells store.WellStore, resolver *access.Resolver, uploader storage.Uploader) *WellHandler {
	return &WellHandler{svc: svc, wells: wells, access: resolver, uploader: uploader}
}

type wellRequest struct {
	WellID         string            `json:"well_id"`
	Name           string            `json:"name"`
	WellName       string            `json:"well_name"`
	WellType       string            `json:"well_type"`
	WellShape      string            `json:"well_shape"`
	HoleSize       string            `json:"hole_size"`
	CasingSize     string            `json:"casing_size"`
	ArtificialLift string            `json:"artificial_lift"`
	Field          string            `json:"field"`
	Location       string            `json:"location"`
	Country        string            `json:"country"`
	Project        string            `json:"project"`
	Unit           string            `json:"unit"`
	Status         models.WellStatus `json:"status"`
	CurrentStep    int               `json:"current_step"`
	ChecklistData  *models.Checklist `json:"checklist_data"`
	AssignedTo     *uuid.UUID        `json:"assigned_to"`
}

func (h *WellHandler) visibility(r *http.Request) (access.Visibility, error) {
	return h.access.For(r.Context(), middleware.GetUserID(r), middleware.GetRole(r), access.ScopeWells)
}

// mustVisibility resolves the caller's well visibility or writes the error.
func (h *WellHandler) mustVisibility(w http.ResponseWriter, r *http.Request) (access.Visibility, bool) {
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return access.Visibility{}, false
	}
	return vis, true
}

// List returns the wells visible to the caller.
// GET /api/v1/wells?status=&country=&search=&mine=true
func (h *WellHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.WellFilter{
		Status:  models.WellStatus(q.Get("status")),
		Country: q.Get("country"),
		Search:  strings.TrimSpace(q.Get("search")),
	}
	if q.Get("mine") == "true" {
		me := middleware.GetUserID(r)
		filter.CreatedBy = &me
	}

	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	wells, err := h.wells.ListWells(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	visible := access.Filter(vis, wells, func(w models.Well) models.Location { return w.LocatedAt() })
	writeJSON(w, http.StatusOK, map[string]any{"data": visible})
}

// Create stores a new well as draft, or directly as submitted.
// POST /api/v1/wells
func (h *WellHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req wellRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.WellID = strings.TrimSpace(req.WellID)
	if req.WellID == "" {
		writeError(w, http.StatusBadRequest, "Well ID is required")
		return
	}
	name := req.Name
	if name == "" {
		name = req.WellName
	}

	well := &models.Well{
		WellID:         req.WellID,
		Name:           strings.TrimSpace(name),
		WellType:       req.WellType,
		WellShape:      req.WellShape,
		HoleSize:       req.HoleSize,
		CasingSize:     req.CasingSize,
		ArtificialLift: req.ArtificialLift,
		Field:          req.Field,
		Location:       req.Location,
		Country:        strings.TrimSpace(req.Country),
		Project:        strings.TrimSpace(req.Project),
		Unit:           strings.TrimSpace(req.Unit),
		Status:         req.Status,
		CurrentStep:    req.CurrentStep,
		ChecklistData:  req.ChecklistData,
		AssignedTo:     req.AssignedTo,
	}
	created, err := h.svc.Create(r.Context(), well, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": created, "message": "Well created successfully"})
}

// Get returns one well if the caller may see it.
// GET /api/v1/wells/{id}
func (h *WellHandler) Get(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Get(r.Context(), mux.Vars(r)["id"], vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well})
}

// History returns the audit trail of a well.
// GET /api/v1/wells/{id}/history
func (h *WellHandler) History(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	list, err := h.svc.History(r.Context(), mux.Vars(r)["id"], vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// PendingApproval lists submitted wells awaiting a decision.
// GET /api/v1/wells/pending-approval
func (h *WellHandler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	wells, err := h.svc.PendingApproval(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": access.Filter(vis, wells, func(w models.Well) models.Location { return w.LocatedAt() }),
	})
}

// POST /api/v1/wells/{id}/submit
func (h *WellHandler) Submit(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Submit(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "message": "Well submitted for approval"})
}

// POST /api/v1/wells/{id}/resubmit
func (h *WellHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Resubmit(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "message": "Well resubmitted for approval"})
}

// POST /api/v1/wells/{id}/approve
func (h *WellHandler) Approve(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Approve(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "message": "Well approved successfully"})
}

// Reject records a rejection reason. The well stays in progress.
// POST /api/v1/wells/{id}/reject
func (h *WellHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Reject(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "message": "Well rejected"})
}

// POST /api/v1/wells/{id}/complete
func (h *WellHandler) Complete(w http.ResponseWriter, r *http.Request) {
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.Complete(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "message": "Well completed"})
}

// Spud records the spud date.
// POST /api/v1/wells/{id}/spud
func (h *WellHandler) Spud(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpudDate string `json:"spud_date"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SpudDate) == "" {
		writeError(w, http.StatusBadRequest, "Spud date is required")
		return
	}
	day, err := models.ParseDay(strings.TrimSpace(req.SpudDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.SetSpudDate(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis, day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "well": well})
}

// UpdateChecklist saves wizard progress.
// PUT /api/v1/wells/{id}/checklist
func (h *WellHandler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentStep   int               `json:"current_step" validate:"required,min=1,max=9"`
		ChecklistData *models.Checklist `json:"checklist_data"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "current_step must be between 1 and 9")
		return
	}
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	well, err := h.svc.UpdateChecklist(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r), vis, req.CurrentStep, req.ChecklistData)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well})
}

// UploadPhoto stores the multipart "file" and appends its URL to the well.
// POST /api/v1/wells/{id}/photos
func (h *WellHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	vis, ok := h.mustVisibility(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Get(r.Context(), rawID, vis); err != nil {
		writeServiceError(w, r, err)
		return
	}
	data, filename, contentType, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	url, err := h.uploader.Upload(r.Context(), filename, contentType, bytes.NewReader(data))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	well, err := h.svc.AddPhotos(r.Context(), rawID, middleware.GetUserID(r), vis, url)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": well, "url": url})
}
