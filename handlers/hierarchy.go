package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/hierarchy"
	"p9e.in/rigops/pkg/store"
)

type HierarchyHandler struct {
	svc *hierarchy.Service
}

func NewHierarchyHandler(svc *hierarchy.Service) *HierarchyHandler {
	return &HierarchyHandler{svc: svc}
}

type hierarchyRequest struct {
	Country      string          `json:"country"`
	Project      string          `json:"project"`
	Unit         string          `json:"unit"`
	UnitNumber   string          `json:"unit_number"`
	DisplayOrder int             `json:"display_order"`
	Geofence     json.RawMessage `json:"geofence"`
}

// List returns the nested tree plus the flat rows.
// GET /api/v1/hierarchy
func (h *HierarchyHandler) List(w http.ResponseWriter, r *http.Request) {
	tree, rows, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hierarchy": tree, "raw": rows})
}

// Create inserts one hierarchy entry.
// POST /api/v1/hierarchy
func (h *HierarchyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req hierarchyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node := &models.LocationNode{
		Country:      req.Country,
		Project:      models.StringPtr(req.Project),
		Unit:         models.StringPtr(req.Unit),
		UnitNumber:   models.StringPtr(req.UnitNumber),
		DisplayOrder: req.DisplayOrder,
	}
	if len(req.Geofence) > 0 && string(req.Geofence) != "null" {
		node.Geofence = datatypes.JSON(req.Geofence)
	}

	created, err := h.svc.Create(r.Context(), node)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "This entry already exists")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": created})
}

// Delete removes exactly one entry.
// DELETE /api/v1/hierarchy/{id}
func (h *HierarchyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SetGeofence replaces a node's boundary, either from a GeoJSON body or from
// an uploaded KMZ/KML file with an optional "placemark" form field.
// PUT /api/v1/hierarchy/{id}/geofence
func (h *HierarchyHandler) SetGeofence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	var node *models.LocationNode
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, _, _, err := readUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		node, err = h.svc.ImportBoundary(r.Context(), id, data, r.FormValue("placemark"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	} else {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		node, err = h.svc.SetGeofence(r.Context(), id, raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": node})
}

// Locate finds the deepest entry whose geofence contains the point.
// GET /api/v1/hierarchy/locate?lat=&lng=
func (h *HierarchyHandler) Locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	node, err := h.svc.Locate(r.Context(), lat, lng)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No hierarchy entry contains this point")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": node})
}
