package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

// AssignmentHandler manages user location assignments.
type AssignmentHandler struct {
	assignments store.AssignmentStore
	users       store.UserStore
}

func NewAssignmentHandler(assignments store.AssignmentStore, users store.UserStore) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, users: users}
}

type assignmentRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	Country string `json:"country" validate:"required"`
	Project string `json:"project"`
	Unit    string `json:"unit"`
}

// List returns one user's assignments, newest first.
// GET /api/v1/user-assignments?userId=
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	list, err := h.assignments.ListAssignments(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// Create grants a user visibility over a country, project or unit.
// POST /api/v1/user-assignments
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Country = strings.TrimSpace(req.Country)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "user_id and country are required")
		return
	}
	userID := uuid.MustParse(req.UserID)
	if req.Unit != "" && strings.TrimSpace(req.Project) == "" {
		writeError(w, http.StatusBadRequest, "project is required when unit is set")
		return
	}
	if _, err := h.users.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	a := &models.LocationAssignment{
		UserID:  userID,
		Country: req.Country,
		Project: models.StringPtr(req.Project),
		Unit:    models.StringPtr(req.Unit),
	}
	if err := h.assignments.CreateAssignment(r.Context(), a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "This assignment already exists for this user")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("user_id", userID.String()).
		Str("country", a.Country).
		Msg("location assignment created")
	writeJSON(w, http.StatusOK, map[string]any{"data": a})
}

// Delete removes one assignment.
// DELETE /api/v1/user-assignments?id=
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.assignments.DeleteAssignment(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
