package handlers

import (
	"net/http"

	"p9e.in/rigops/middleware"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/dashboard"
)

type DashboardHandler struct {
	svc    *dashboard.Service
	access *access.Resolver
}

func NewDashboardHandler(svc *dashboard.Service, resolver *access.Resolver) *DashboardHandler {
	return &DashboardHandler{svc: svc, access: resolver}
}

func (h *DashboardHandler) views(r *http.Request) (wells, hazards access.Visibility, err error) {
	userID, role := middleware.GetUserID(r), middleware.GetRole(r)
	if wells, err = h.access.For(r.Context(), userID, role, access.ScopeWells); err != nil {
		return
	}
	hazards, err = h.access.For(r.Context(), userID, role, access.ScopeHazards)
	return
}

// Stats returns the headline counters.
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	wells, hazards, err := h.views(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	stats, err := h.svc.Stats(r.Context(), wells, hazards)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": stats})
}

// Parameters summarises drilling depth, mud weight and pump pressure.
// GET /api/v1/dashboard/parameters?well_id=&start_date=&end_date=
func (h *DashboardHandler) Parameters(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	wells, _, err := h.views(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := h.svc.ReportParameters(r.Context(), filter, wells)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": summary})
}
