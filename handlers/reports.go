package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/reporting"
	"p9e.in/rigops/pkg/store"
)

// ReportHandler serves daily reports, their schedule and the pending check.
type ReportHandler struct {
	svc    *reporting.Service
	wells  store.WellStore
	users  store.UserStore
	access *access.Resolver
	now    func() time.Time
}

func NewReportHandler(svc *reporting.Service, wells store.WellStore, users store.UserStore, resolver *access.Resolver) *ReportHandler {
	return &ReportHandler{svc: svc, wells: wells, users: users, access: resolver, now: time.Now}
}

// WithClock sets the clock used for export timestamps.
func (h *ReportHandler) WithClock(now func() time.Time) *ReportHandler {
	h.now = now
	return h
}

type dailyReportRequest struct {
	WellID        string    `json:"well_id" validate:"required,uuid"`
	ReportDate    string    `json:"report_date"`
	TimeSlot      int       `json:"time_slot" validate:"required"`
	DrillingDepth *float64  `json:"drilling_depth"`
	MudWeight     *float64  `json:"mud_weight"`
	PumpPressure  *float64  `json:"pump_pressure"`
	Incidents     string    `json:"incidents"`
	Remarks       string    `json:"remarks"`
	SubmittedBy   uuid.UUID `json:"submitted_by"`
}

type reportWell struct {
	WellID   string `json:"well_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type reportUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// dailyReportView is a report joined with its well and submitter.
type dailyReportView struct {
	models.DailyReport
	Well *reportWell `json:"wells"`
	User *reportUser `json:"users"`
}

// CheckPending lists the report slots the caller still owes today. Admins
// may ask on behalf of another user with user_id.
// GET /api/v1/reports/check-pending?user_id=
func (h *ReportHandler) CheckPending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		if id != userID && middleware.GetRole(r) != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "Cannot check pending reports for another user")
			return
		}
		userID = id
	}
	pending, err := h.svc.CheckPending(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

// Submit stores one daily report. Duplicates for the same well, day and
// slot are rejected with 409.
// POST /api/v1/reports/daily
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dailyReportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: well_id, report_date, time_slot")
		return
	}
	if req.TimeSlot != 1 && req.TimeSlot != 2 {
		writeError(w, http.StatusBadRequest, "time_slot must be 1 or 2")
		return
	}

	report := &models.DailyReport{
		WellID:        uuid.MustParse(req.WellID),
		TimeSlot:      req.TimeSlot,
		SubmittedBy:   middleware.GetUserID(r),
		DrillingDepth: req.DrillingDepth,
		MudWeight:     req.MudWeight,
		PumpPressure:  req.PumpPressure,
		Incidents:     req.Incidents,
		Remarks:       req.Remarks,
	}
	if d := strings.TrimSpace(req.ReportDate); d != "" {
		day, err := models.ParseDay(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		report.ReportDate = day
	}
	// admins may file on behalf of an engineer
	if req.SubmittedBy != uuid.Nil && middleware.GetRole(r) == models.RoleAdmin {
		report.SubmittedBy = req.SubmittedBy
	}

	saved, err := h.svc.Submit(r.Context(), report)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": saved, "message": "Report submitted successfully"})
}

func parseReportFilter(r *http.Request) (models.DailyReportFilter, error) {
	q := r.URL.Query()
	var filter models.DailyReportFilter
	if raw := q.Get("well_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid well_id %q", errInvalidQuery, raw)
		}
		filter.WellID = &id
	}
	if raw := q.Get("start_date"); raw != "" {
		d, err := models.ParseDay(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: start_date: %v", errInvalidQuery, err)
		}
		filter.StartDate = &d
	}
	if raw := q.Get("end_date"); raw != "" {
		d, err := models.ParseDay(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: end_date: %v", errInvalidQuery, err)
		}
		filter.EndDate = &d
	}
	return filter, nil
}

// load returns the reports matching the request filters that the caller may
// see, with the wells and users they reference.
func (h *ReportHandler) load(r *http.Request) ([]models.DailyReport, map[uuid.UUID]models.Well, map[uuid.UUID]models.User, error) {
	filter, err := parseReportFilter(r)
	if err != nil {
		return nil, nil, nil, err
	}
	vis, err := h.access.For(r.Context(), middleware.GetUserID(r), middleware.GetRole(r), access.ScopeWells)
	if err != nil {
		return nil, nil, nil, err
	}

	reports, err := h.svc.List(r.Context(), filter)
	if err != nil {
		return nil, nil, nil, err
	}
	wellList, err := h.wells.ListWells(r.Context(), models.WellFilter{})
	if err != nil {
		return nil, nil, nil, err
	}
	userList, err := h.users.ListUsers(r.Context())
	if err != nil {
		return nil, nil, nil, err
	}

	wells := make(map[uuid.UUID]models.Well, len(wellList))
	for _, well := range wellList {
		if vis.CanView(well.LocatedAt()) {
			wells[well.ID] = well
		}
	}
	users := make(map[uuid.UUID]models.User, len(userList))
	for _, u := range userList {
		users[u.ID] = u
	}

	visible := reports[:0:0]
	for _, rep := range reports {
		if _, ok := wells[rep.WellID]; ok {
			visible = append(visible, rep)
		}
	}
	return visible, wells, users, nil
}

// List returns reports joined with their well and submitter.
// GET /api/v1/reports/daily?well_id=&start_date=&end_date=
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, wells, users, err := h.load(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dailyReportView, 0, len(reports))
	for _, rep := range reports {
		view := dailyReportView{DailyReport: rep}
		if well, ok := wells[rep.WellID]; ok {
			view.Well = &reportWell{WellID: well.WellID, Name: well.Name, Location: well.Location}
		}
		if u, ok := users[rep.SubmittedBy]; ok {
			view.User = &reportUser{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// Export streams the filtered reports as an xlsx workbook.
// GET /api/v1/reports/daily/export
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	reports, wells, users, err := h.load(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := h.now()
	f, err := reporting.BuildWorkbook(reports, wells, users, now)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	buffer, err := f.WriteToBuffer()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filename := fmt.Sprintf("daily_reports_%s.xlsx", now.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// GetSchedule returns the active schedule or null.
// GET /api/v1/reports/schedule
func (h *ReportHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.Schedule(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": sched})
}

// SaveSchedule updates the two daily submission times.
// POST /api/v1/reports/schedule
func (h *ReportHandler) SaveSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimeSlot1 string `json:"time_slot_1" validate:"required"`
		TimeSlot2 string `json:"time_slot_2" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Both time slots are required")
		return
	}
	sched, err := h.svc.SaveSchedule(r.Context(), req.TimeSlot1, req.TimeSlot2)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": sched, "message": "Schedule updated successfully"})
}
