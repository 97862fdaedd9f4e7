package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/dashboard"
	"p9e.in/rigops/pkg/hierarchy"
	"p9e.in/rigops/pkg/hse"
	"p9e.in/rigops/pkg/reporting"
	"p9e.in/rigops/pkg/storage"
	"p9e.in/rigops/pkg/store"
	"p9e.in/rigops/pkg/workflow"
)

type testEnv struct {
	st          *store.MemoryStore
	auth        *middleware.Auth
	hierarchy   *HierarchyHandler
	assignments *AssignmentHandler
	wells       *WellHandler
	reports     *ReportHandler
	login       *AuthHandler
	users       *UserHandler
	hse         *HSEHandler
	dashboard   *DashboardHandler

	admin, engineer, ops *models.User
}

// 08:05 on a Friday
var testNow = time.Date(2025, 3, 14, 8, 5, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	now := func() time.Time { return testNow }
	st := store.NewMemoryStore().WithClock(now)
	log := zerolog.Nop()
	resolver := access.NewResolver(st)
	uploader := storage.NewLocal(t.TempDir(), "/uploads")
	auth := middleware.NewAuth("test-secret", time.Hour)

	e := &testEnv{
		st:          st,
		auth:        auth,
		hierarchy:   NewHierarchyHandler(hierarchy.NewService(st, log)),
		assignments: NewAssignmentHandler(st, st),
		wells:       NewWellHandler(workflow.NewWellService(st, log).WithClock(now), st, resolver, uploader),
		reports:     NewReportHandler(reporting.NewService(st, st, log).WithClock(now), st, st, resolver).WithClock(now),
		login:       NewAuthHandler(st, auth),
		users:       NewUserHandler(st),
		hse:         NewHSEHandler(hse.NewService(st, log).WithClock(now), resolver, uploader),
		dashboard:   NewDashboardHandler(dashboard.NewService(st, log).WithClock(now), resolver),
	}
	e.admin = e.addUser(t, "admin@rig.local", models.RoleAdmin)
	e.engineer = e.addUser(t, "eng@rig.local", models.RoleEngineer)
	e.ops = e.addUser(t, "ops@rig.local", models.RoleOps)
	return e
}

func (e *testEnv) addUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: string(hash), FirstName: "Test", LastName: string(role), Role: role, Status: "active"}
	require.NoError(t, e.st.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) addWell(t *testing.T, w *models.Well) *models.Well {
	t.Helper()
	if w.CreatedBy == uuid.Nil {
		w.CreatedBy = e.engineer.ID
	}
	require.NoError(t, e.st.CreateWell(context.Background(), w))
	return w
}

type request struct {
	method string
	target string
	body   any
	user   *models.User
	vars   map[string]string
}

func do(h http.HandlerFunc, req request) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := req.body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}
	r := httptest.NewRequest(req.method, req.target, &buf)
	r.Header.Set("Content-Type", "application/json")
	if req.user != nil {
		r = r.WithContext(middleware.WithClaims(r.Context(), &middleware.Claims{UserID: req.user.ID, Role: req.user.Role}))
	}
	if req.vars != nil {
		r = mux.SetURLVars(r, req.vars)
	}
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHierarchyCreate(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
		errMsg string
	}{
		{"country only", map[string]any{"country": "Oman"}, http.StatusOK, ""},
		{"duplicate country", map[string]any{"country": "Oman"}, http.StatusBadRequest, "This entry already exists"},
		{"with project", map[string]any{"country": "Oman", "project": "Block 6"}, http.StatusOK, ""},
		{"missing country", map[string]any{"project": "Block 6"}, http.StatusBadRequest, "Country is required"},
		{"gap in levels", map[string]any{"country": "Oman", "unit": "Rig 1"}, http.StatusBadRequest, ""},
		{"bad json", "{", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e.hierarchy.Create, request{method: http.MethodPost, target: "/api/v1/hierarchy", body: tt.body, user: e.admin})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, decodeBody(t, rec)["error"])
			}
		})
	}

	rec := do(e.hierarchy.List, request{method: http.MethodGet, target: "/api/v1/hierarchy", user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	tree := body["hierarchy"].(map[string]any)
	assert.Contains(t, tree["Oman"], "Block 6")
	assert.Len(t, body["raw"], 2)
}

func TestHierarchyDeleteMissing(t *testing.T) {
	e := newTestEnv(t)
	rec := do(e.hierarchy.Delete, request{method: http.MethodDelete, target: "/", user: e.admin, vars: map[string]string{"id": uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e.hierarchy.Delete, request{method: http.MethodDelete, target: "/", user: e.admin, vars: map[string]string{"id": "nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHierarchyGeofenceAndLocate(t *testing.T) {
	e := newTestEnv(t)
	node := &models.LocationNode{Country: "Oman"}
	require.NoError(t, e.st.CreateLocation(context.Background(), node))

	square := `{"type":"Polygon","coordinates":[[[56,20],[58,20],[58,22],[56,22],[56,20]]]}`
	rec := do(e.hierarchy.SetGeofence, request{method: http.MethodPut, target: "/", body: square, user: e.admin, vars: map[string]string{"id": node.ID.String()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e.hierarchy.Locate, request{method: http.MethodGet, target: "/api/v1/hierarchy/locate?lat=21&lng=57", user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Oman", decodeBody(t, rec)["data"].(map[string]any)["country"])

	rec = do(e.hierarchy.Locate, request{method: http.MethodGet, target: "/api/v1/hierarchy/locate?lat=0&lng=0", user: e.engineer})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e.hierarchy.Locate, request{method: http.MethodGet, target: "/api/v1/hierarchy/locate?lat=abc", user: e.engineer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignments(t *testing.T) {
	e := newTestEnv(t)
	create := func(body any) *httptest.ResponseRecorder {
		return do(e.assignments.Create, request{method: http.MethodPost, target: "/api/v1/user-assignments", body: body, user: e.admin})
	}

	rec := create(map[string]any{"user_id": e.ops.ID, "country": "Oman"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = create(map[string]any{"user_id": e.ops.ID, "country": "Oman"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This assignment already exists for this user", decodeBody(t, rec)["error"])

	rec = create(map[string]any{"country": "Oman"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_id and country are required", decodeBody(t, rec)["error"])

	rec = create(map[string]any{"user_id": uuid.New(), "country": "Oman"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e.assignments.List, request{method: http.MethodGet, target: "/api/v1/user-assignments", user: e.admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "userId is required", decodeBody(t, rec)["error"])

	rec = do(e.assignments.List, request{method: http.MethodGet, target: "/api/v1/user-assignments?userId=" + e.ops.ID.String(), user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].([]any)
	require.Len(t, data, 1)

	id := data[0].(map[string]any)["id"].(string)
	rec = do(e.assignments.Delete, request{method: http.MethodDelete, target: "/api/v1/user-assignments?id=" + id, user: e.admin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = do(e.assignments.Delete, request{method: http.MethodDelete, target: "/api/v1/user-assignments", user: e.admin})
	assert.Equal(t, "id is required", decodeBody(t, rec)["error"])
}

func TestWellCreate(t *testing.T) {
	e := newTestEnv(t)

	rec := do(e.wells.Create, request{method: http.MethodPost, target: "/api/v1/wells", body: map[string]any{"well_name": "x"}, user: e.engineer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Well ID is required", decodeBody(t, rec)["error"])

	rec = do(e.wells.Create, request{method: http.MethodPost, target: "/api/v1/wells", body: map[string]any{
		"well_id": "OM-10", "well_name": "Fahud 10", "status": "in_progress", "country": "Oman", "hole_size": "12.25",
	}, user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Well created successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Fahud 10", data["name"])
	assert.Equal(t, "in_progress", data["status"])
	assert.Equal(t, e.engineer.ID.String(), data["created_by"])
	assert.NotNil(t, data["submitted_at"])

	rec = do(e.wells.Create, request{method: http.MethodPost, target: "/api/v1/wells", body: map[string]any{"well_id": "OM-11", "status": "approved"}, user: e.engineer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWellApproveReject(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})
	draft := e.addWell(t, &models.Well{WellID: "OM-2", Country: "Oman", Status: models.WellDraft})
	vars := map[string]string{"id": well.ID.String()}
	require.NoError(t, e.st.CreateAssignment(context.Background(), &models.LocationAssignment{UserID: e.ops.ID, Country: "Oman"}))

	// empty reason fails and leaves the well untouched
	rec := do(e.wells.Reject, request{method: http.MethodPost, target: "/", body: map[string]any{"reason": "   "}, user: e.ops, vars: vars})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Rejection reason is required", decodeBody(t, rec)["error"])
	stored, err := e.st.GetWell(context.Background(), well.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RejectionReason)
	assert.Nil(t, stored.RejectedAt)

	rec = do(e.wells.Reject, request{method: http.MethodPost, target: "/", body: map[string]any{"reason": "casing log missing"}, user: e.ops, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Well rejected", decodeBody(t, rec)["message"])

	// rejected wells leave the approval queue
	rec = do(e.wells.PendingApproval, request{method: http.MethodGet, target: "/", user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["data"])

	rec = do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: vars})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e.wells.Resubmit, request{method: http.MethodPost, target: "/", user: e.engineer, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Well approved successfully", body["message"])
	assert.Equal(t, "approved", body["data"].(map[string]any)["status"])
	assert.Nil(t, body["data"].(map[string]any)["rejection_reason"])

	rec = do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: map[string]string{"id": draft.ID.String()}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e.wells.History, request{method: http.MethodGet, target: "/", user: e.admin, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 3)
}

func TestWellInvalidID(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"", "undefined", "null", "123"} {
		t.Run(id, func(t *testing.T) {
			rec := do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: map[string]string{"id": id}})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid well ID", decodeBody(t, rec)["error"])
		})
	}

	rec := do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: map[string]string{"id": uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWellSpud(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellApproved})
	vars := map[string]string{"id": well.ID.String()}

	rec := do(e.wells.Spud, request{method: http.MethodPost, target: "/", body: map[string]any{}, user: e.engineer, vars: vars})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Spud date is required", decodeBody(t, rec)["error"])

	rec = do(e.wells.Spud, request{method: http.MethodPost, target: "/", body: map[string]any{"spud_date": "2025-03-01"}, user: e.engineer, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2025-03-01", body["well"].(map[string]any)["spud_date"])
}

func TestWellListRestrictedForOps(t *testing.T) {
	e := newTestEnv(t)
	e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})
	kw := e.addWell(t, &models.Well{WellID: "KW-1", Country: "Kuwait", Status: models.WellInProgress})

	list := func(u *models.User) []any {
		rec := do(e.wells.List, request{method: http.MethodGet, target: "/api/v1/wells", user: u})
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeBody(t, rec)["data"].([]any)
	}

	assert.Len(t, list(e.engineer), 2)
	assert.Empty(t, list(e.ops), "ops without assignments sees nothing")

	require.NoError(t, e.st.CreateAssignment(context.Background(), &models.LocationAssignment{UserID: e.ops.ID, Country: "kuwait"}))
	visible := list(e.ops)
	require.Len(t, visible, 1)
	assert.Equal(t, "KW-1", visible[0].(map[string]any)["well_id"])

	rec := do(e.wells.Get, request{method: http.MethodGet, target: "/", user: e.ops, vars: map[string]string{"id": kw.ID.String()}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWellCommandsOutOfScopeForOps(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.st.CreateAssignment(context.Background(), &models.LocationAssignment{UserID: e.ops.ID, Country: "Oman"}))
	kw := e.addWell(t, &models.Well{WellID: "KW-1", Country: "Kuwait", Status: models.WellInProgress})
	vars := map[string]string{"id": kw.ID.String()}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		body    any
	}{
		{"get", e.wells.Get, http.MethodGet, nil},
		{"history", e.wells.History, http.MethodGet, nil},
		{"submit", e.wells.Submit, http.MethodPost, nil},
		{"resubmit", e.wells.Resubmit, http.MethodPost, nil},
		{"approve", e.wells.Approve, http.MethodPost, nil},
		{"reject", e.wells.Reject, http.MethodPost, map[string]any{"reason": "casing depth wrong"}},
		{"complete", e.wells.Complete, http.MethodPost, nil},
		{"spud", e.wells.Spud, http.MethodPost, map[string]any{"spud_date": "2025-03-01"}},
		{"checklist", e.wells.UpdateChecklist, http.MethodPut, map[string]any{"current_step": 2}},
		{"photos", e.wells.UploadPhoto, http.MethodPost, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(tt.handler, request{method: tt.method, target: "/", body: tt.body, user: e.ops, vars: vars})
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		})
	}

	got, err := e.st.GetWell(context.Background(), kw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WellInProgress, got.Status)
	assert.Nil(t, got.RejectionReason)
	assert.Nil(t, got.SpudDate)
	history, err := e.st.ListWellTransitions(context.Background(), kw.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// the same call succeeds once the well is in scope
	require.NoError(t, e.st.CreateAssignment(context.Background(), &models.LocationAssignment{UserID: e.ops.ID, Country: "Kuwait"}))
	rec := do(e.wells.Approve, request{method: http.MethodPost, target: "/", user: e.ops, vars: vars})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decodeBody(t, rec)["data"].(map[string]any)["status"])
}

func TestWellUploadPhoto(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "rig floor.jpg")
	require.NoError(t, err)
	part.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r = r.WithContext(middleware.WithClaims(r.Context(), &middleware.Claims{UserID: e.engineer.ID, Role: models.RoleEngineer}))
	r = mux.SetURLVars(r, map[string]string{"id": well.ID.String()})
	rec := httptest.NewRecorder()
	e.wells.UploadPhoto(rec, r)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Contains(t, body["url"], "/uploads/")
	assert.Contains(t, body["url"], "rig_floor.jpg")
	assert.Len(t, body["data"].(map[string]any)["photos"], 1)
}

func TestDailyReportSubmit(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Name: "Fahud 1", Location: "Fahud", Country: "Oman", Status: models.WellInProgress})
	submit := func(body any) *httptest.ResponseRecorder {
		return do(e.reports.Submit, request{method: http.MethodPost, target: "/api/v1/reports/daily", body: body, user: e.engineer})
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
		errMsg string
	}{
		{"first submission", map[string]any{"well_id": well.ID, "report_date": "2025-03-14", "time_slot": 1, "drilling_depth": 1200.5}, http.StatusOK, ""},
		{"same slot again", map[string]any{"well_id": well.ID, "report_date": "2025-03-14", "time_slot": 1}, http.StatusConflict, "Report already submitted for this time slot"},
		{"second slot", map[string]any{"well_id": well.ID, "time_slot": 2}, http.StatusOK, ""},
		{"missing slot", map[string]any{"well_id": well.ID}, http.StatusBadRequest, "Missing required fields: well_id, report_date, time_slot"},
		{"slot out of range", map[string]any{"well_id": well.ID, "time_slot": 3}, http.StatusBadRequest, "time_slot must be 1 or 2"},
		{"unknown well", map[string]any{"well_id": uuid.New(), "time_slot": 1}, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submit(tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, decodeBody(t, rec)["error"])
			}
		})
	}

	reports, err := e.st.ListDailyReports(context.Background(), models.DailyReportFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2, "duplicate must not create a row")

	rec := do(e.reports.List, request{method: http.MethodGet, target: "/api/v1/reports/daily?well_id=" + well.ID.String() + "&start_date=2025-03-14", user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody(t, rec)["reports"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.EqualValues(t, 1, first["time_slot"])
	assert.Equal(t, "Fahud 1", first["wells"].(map[string]any)["name"])
	assert.Equal(t, "eng@rig.local", first["users"].(map[string]any)["email"])

	rec = do(e.reports.List, request{method: http.MethodGet, target: "/api/v1/reports/daily?start_date=14-03-2025", user: e.admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyReportExport(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})
	require.NoError(t, e.st.CreateDailyReport(context.Background(), &models.DailyReport{
		WellID: well.ID, ReportDate: models.DayOf(testNow), TimeSlot: 1, SubmittedBy: e.engineer.ID,
	}))

	rec := do(e.reports.Export, request{method: http.MethodGet, target: "/api/v1/reports/daily/export", user: e.ops})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "daily_reports_20250314_080500.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestCheckPending(t *testing.T) {
	e := newTestEnv(t)
	well := e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})

	target := "/api/v1/reports/check-pending?user_id=" + e.engineer.ID.String()

	// no schedule yet
	rec := do(e.reports.CheckPending, request{method: http.MethodGet, target: target, user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["pending"])

	rec = do(e.reports.SaveSchedule, request{method: http.MethodPost, target: "/", body: map[string]any{"time_slot_1": "08:00", "time_slot_2": "20:00"}, user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Schedule updated successfully", decodeBody(t, rec)["message"])

	rec = do(e.reports.CheckPending, request{method: http.MethodGet, target: target, user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeBody(t, rec)["pending"].([]any)
	require.Len(t, pending, 1)
	entry := pending[0].(map[string]any)
	assert.Equal(t, well.ID.String(), entry["well_id"])
	assert.Equal(t, "OM-1", entry["well_name"])
	assert.EqualValues(t, 1, entry["time_slot"])
	assert.Equal(t, "08:00", entry["due_time"])

	tests := []struct {
		name    string
		target  string
		user    *models.User
		status  int
		pending int
	}{
		{"defaults to caller", "/api/v1/reports/check-pending", e.engineer, http.StatusOK, 1},
		{"admin on behalf of engineer", target, e.admin, http.StatusOK, 1},
		{"admin without user_id", "/api/v1/reports/check-pending", e.admin, http.StatusOK, 0},
		{"engineer for someone else", "/api/v1/reports/check-pending?user_id=" + e.admin.ID.String(), e.engineer, http.StatusForbidden, 0},
		{"ops for engineer", target, e.ops, http.StatusForbidden, 0},
		{"bad user_id", "/api/v1/reports/check-pending?user_id=nope", e.engineer, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e.reports.CheckPending, request{method: http.MethodGet, target: tt.target, user: tt.user})
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Len(t, decodeBody(t, rec)["pending"], tt.pending)
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	e := newTestEnv(t)

	rec := do(e.reports.GetSchedule, request{method: http.MethodGet, target: "/", user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "schedule")
	assert.Nil(t, body["schedule"])

	rec = do(e.reports.SaveSchedule, request{method: http.MethodPost, target: "/", body: map[string]any{"time_slot_1": "08:00"}, user: e.admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Both time slots are required", decodeBody(t, rec)["error"])

	rec = do(e.reports.SaveSchedule, request{method: http.MethodPost, target: "/", body: map[string]any{"time_slot_1": "25:00", "time_slot_2": "20:00"}, user: e.admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	e := newTestEnv(t)

	rec := do(e.login.Login, request{method: http.MethodPost, target: "/auth/login", body: map[string]any{"email": "ENG@rig.local", "password": "secret123"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	claims, err := e.auth.ParseToken(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, e.engineer.ID, claims.UserID)
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := e.st.GetUser(context.Background(), e.engineer.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)

	rec = do(e.login.Login, request{method: http.MethodPost, target: "/auth/login", body: map[string]any{"email": "eng@rig.local", "password": "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e.login.Me, request{method: http.MethodGet, target: "/api/v1/auth/me", user: e.ops})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@rig.local", decodeBody(t, rec)["data"].(map[string]any)["email"])
}

func TestUserManagement(t *testing.T) {
	e := newTestEnv(t)
	create := func(body any) *httptest.ResponseRecorder {
		return do(e.users.Create, request{method: http.MethodPost, target: "/api/v1/users", body: body, user: e.admin})
	}

	rec := create(map[string]any{"email": "hse@rig.local", "password": "secret1"})
	assert.Equal(t, "Missing required fields", decodeBody(t, rec)["error"])

	rec = create(map[string]any{"email": "hse@rig.local", "password": "secret1", "first_name": "H", "last_name": "S", "role": "driller"})
	assert.Equal(t, "Invalid role. Must be admin, engineer, hse_lead, or ops", decodeBody(t, rec)["error"])

	rec = create(map[string]any{"email": "hse@rig.local", "password": "secret1", "first_name": "H", "last_name": "S", "role": "hse_lead"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = create(map[string]any{"email": "HSE@rig.local", "password": "secret1", "first_name": "H", "last_name": "S", "role": "hse_lead"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e.users.List, request{method: http.MethodGet, target: "/api/v1/users", user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody(t, rec)["data"].([]any)
	assert.Len(t, users, 4)

	rec = do(e.users.ResetPassword, request{method: http.MethodPost, target: "/", body: map[string]any{"userId": id, "newPassword": "123"}, user: e.admin})
	assert.Equal(t, "Password must be at least 6 characters", decodeBody(t, rec)["error"])

	rec = do(e.users.ResetPassword, request{method: http.MethodPost, target: "/", body: map[string]any{"userId": id}, user: e.admin})
	assert.Equal(t, "Missing userId or newPassword", decodeBody(t, rec)["error"])

	rec = do(e.users.ResetPassword, request{method: http.MethodPost, target: "/", body: map[string]any{"userId": id, "newPassword": "n3wpass"}, user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password updated successfully", decodeBody(t, rec)["message"])

	rec = do(e.login.Login, request{method: http.MethodPost, target: "/auth/login", body: map[string]any{"email": "hse@rig.local", "password": "n3wpass"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e.users.Delete, request{method: http.MethodDelete, target: "/", user: e.admin, vars: map[string]string{"id": e.admin.ID.String()}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e.users.Delete, request{method: http.MethodDelete, target: "/", user: e.admin, vars: map[string]string{"id": id}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHazardsAndTasks(t *testing.T) {
	e := newTestEnv(t)
	lead := e.addUser(t, "lead@rig.local", models.RoleHSELead)

	rec := do(e.hse.ReportHazard, request{method: http.MethodPost, target: "/", body: map[string]any{"subject": "Loose handrail", "country": "Oman", "priority": "high"}, user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hazardID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = do(e.hse.ReportHazard, request{method: http.MethodPost, target: "/", body: map[string]any{"subject": " "}, user: e.engineer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// hse lead without assignments sees no hazards
	rec = do(e.hse.ListHazards, request{method: http.MethodGet, target: "/", user: lead})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["data"])

	require.NoError(t, e.st.CreateAssignment(context.Background(), &models.LocationAssignment{UserID: lead.ID, Country: "Oman"}))
	rec = do(e.hse.ListHazards, request{method: http.MethodGet, target: "/", user: lead})
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = do(e.hse.SetHazardStatus, request{method: http.MethodPut, target: "/", body: map[string]any{"status": "in_progress"}, user: lead, vars: map[string]string{"id": hazardID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", decodeBody(t, rec)["data"].(map[string]any)["status"])

	rec = do(e.hse.SetHazardStatus, request{method: http.MethodPut, target: "/", body: map[string]any{"status": "gone"}, user: lead, vars: map[string]string{"id": hazardID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e.hse.CreateTask, request{method: http.MethodPost, target: "/", body: map[string]any{"title": "Fix handrail", "hazard_id": hazardID, "assigned_to": e.engineer.ID, "due_date": "2025-03-20"}, user: lead})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	taskID := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	rec = do(e.hse.ListTasks, request{method: http.MethodGet, target: "/api/v1/tasks?mine=true", user: e.engineer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = do(e.hse.SetTaskStatus, request{method: http.MethodPut, target: "/", body: map[string]any{"status": "completed"}, user: e.engineer, vars: map[string]string{"id": taskID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeBody(t, rec)["data"].(map[string]any)["completed_at"])
}

func TestDashboardStats(t *testing.T) {
	e := newTestEnv(t)
	e.addWell(t, &models.Well{WellID: "OM-1", Country: "Oman", Status: models.WellInProgress})
	e.addWell(t, &models.Well{WellID: "OM-2", Country: "Oman", Status: models.WellCompleted})

	rec := do(e.dashboard.Stats, request{method: http.MethodGet, target: "/", user: e.admin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["active_wells"])
	assert.EqualValues(t, 1, data["completed_wells"])

	rec = do(e.dashboard.Stats, request{method: http.MethodGet, target: "/", user: e.ops})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["data"].(map[string]any)["active_wells"])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{workflow.ErrInvalidTransition, http.StatusConflict},
		{reporting.ErrAlreadySubmitted, http.StatusConflict},
		{hierarchy.ErrCountryRequired, http.StatusBadRequest},
		{hse.ErrInvalidInput, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
