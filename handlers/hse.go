package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/hse"
	"p9e.in/rigops/pkg/storage"
	"p9e.in/rigops/pkg/store"
)

// HSEHandler serves hazards and their corrective tasks.
type HSEHandler struct {
	svc      *hse.Service
	access   *access.Resolver
	uploader storage.Uploader
}

func NewHSEHandler(svc *hse.Service, resolver *access.Resolver, uploader storage.Uploader) *HSEHandler {
	return &HSEHandler{svc: svc, access: resolver, uploader: uploader}
}

type hazardRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Country     string `json:"country"`
	Project     string `json:"project"`
	Unit        string `json:"unit"`
	Priority    string `json:"priority"`
}

type taskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	HazardID    *uuid.UUID  `json:"hazard_id"`
	AssignedTo  *uuid.UUID  `json:"assigned_to"`
	DueDate     *models.Day `json:"due_date"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *HSEHandler) visibility(r *http.Request) (access.Visibility, error) {
	return h.access.For(r.Context(), middleware.GetUserID(r), middleware.GetRole(r), access.ScopeHazards)
}

// ListHazards returns the hazards visible to the caller.
// GET /api/v1/hazards
func (h *HSEHandler) ListHazards(w http.ResponseWriter, r *http.Request) {
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.svc.Hazards(r.Context(), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// GET /api/v1/hazards/{id}
func (h *HSEHandler) GetHazard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	hz, err := h.svc.Hazard(r.Context(), id, vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": hz})
}

// ReportHazard records a new field observation.
// POST /api/v1/hazards
func (h *HSEHandler) ReportHazard(w http.ResponseWriter, r *http.Request) {
	var req hazardRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hz, err := h.svc.ReportHazard(r.Context(), &models.Hazard{
		Subject:     req.Subject,
		Description: req.Description,
		Location:    req.Location,
		Country:     strings.TrimSpace(req.Country),
		Project:     strings.TrimSpace(req.Project),
		Unit:        strings.TrimSpace(req.Unit),
		Priority:    req.Priority,
	}, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": hz, "message": "Hazard reported"})
}

// SetHazardStatus moves a hazard between open, in_progress, closed and cancelled.
// PUT /api/v1/hazards/{id}/status
func (h *HSEHandler) SetHazardStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	hz, err := h.svc.SetHazardStatus(r.Context(), id, models.HazardStatus(req.Status), vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": hz})
}

// UploadHazardPhoto stores the multipart "file" as the before or after photo
// selected by the "stage" form field.
// POST /api/v1/hazards/{id}/photos
func (h *HSEHandler) UploadHazardPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	data, filename, contentType, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stage := hse.PhotoStage(strings.ToLower(r.FormValue("stage")))
	if stage != hse.PhotoBefore && stage != hse.PhotoAfter {
		writeError(w, http.StatusBadRequest, "stage must be before or after")
		return
	}
	vis, err := h.visibility(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := h.svc.Hazard(r.Context(), id, vis); err != nil {
		writeServiceError(w, r, err)
		return
	}

	url, err := h.uploader.Upload(r.Context(), filename, contentType, bytes.NewReader(data))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	hz, err := h.svc.SetHazardPhoto(r.Context(), id, stage, url, vis)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": hz, "url": url})
}

// ListTasks returns tasks, optionally narrowed by assignee, hazard or status.
// GET /api/v1/tasks?assigned_to=&hazard_id=&status=&mine=true
func (h *HSEHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskFilter{Status: models.TaskStatus(q.Get("status"))}
	if q.Get("mine") == "true" {
		me := middleware.GetUserID(r)
		filter.AssignedTo = &me
	} else if raw := q.Get("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid assigned_to")
			return
		}
		filter.AssignedTo = &id
	}
	if raw := q.Get("hazard_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hazard_id")
			return
		}
		filter.HazardID = &id
	}

	tasks, err := h.svc.Tasks(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tasks})
}

// CreateTask raises a corrective action.
// POST /api/v1/tasks
func (h *HSEHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.CreateTask(r.Context(), &models.HSETask{
		Title:       req.Title,
		Description: req.Description,
		HazardID:    req.HazardID,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": t, "message": "Task created"})
}

// SetTaskStatus moves a task and stamps its start and completion times.
// PUT /api/v1/tasks/{id}/status
func (h *HSEHandler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	t, err := h.svc.SetTaskStatus(r.Context(), id, models.TaskStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": t})
}
