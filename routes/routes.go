package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/rigops/handlers"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/utils"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires together.
type Deps struct {
	Auth        *middleware.Auth
	Store       Pinger
	UploadDir   string
	Hierarchy   *handlers.HierarchyHandler
	Assignments *handlers.AssignmentHandler
	Wells       *handlers.WellHandler
	Reports     *handlers.ReportHandler
	Login       *handlers.AuthHandler
	Users       *handlers.UserHandler
	HSE         *handlers.HSEHandler
	Dashboard   *handlers.DashboardHandler
}

// RegisterRoutes sets up all application routes.
func RegisterRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/auth/login", d.Login.Login).Methods("POST")
	r.HandleFunc("/health", health(d.Store)).Methods("GET")
	if d.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))),
		)
	}

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(d.Auth.JWT)

	api.HandleFunc("/auth/me", d.Login.Me).Methods("GET")

	registerHierarchyRoutes(api, d)
	registerWellRoutes(api, d)
	registerReportRoutes(api, d)
	registerUserRoutes(api, d)
	registerHSERoutes(api, d)

	api.Handle("/dashboard/stats", guard("dashboard:read", d.Dashboard.Stats)).Methods("GET")
	api.Handle("/dashboard/parameters", guard("dashboard:read", d.Dashboard.Parameters)).Methods("GET")

	return r
}

func guard(perm string, h http.HandlerFunc) http.Handler {
	return middleware.RequirePermission(perm, h)
}

func registerHierarchyRoutes(api *mux.Router, d Deps) {
	api.Handle("/hierarchy", guard("hierarchy:read", d.Hierarchy.List)).Methods("GET")
	api.Handle("/hierarchy", guard("hierarchy:create", d.Hierarchy.Create)).Methods("POST")
	api.Handle("/hierarchy/locate", guard("hierarchy:read", d.Hierarchy.Locate)).Methods("GET")
	api.Handle("/hierarchy/{id}", guard("hierarchy:delete", d.Hierarchy.Delete)).Methods("DELETE")
	api.Handle("/hierarchy/{id}/geofence", guard("hierarchy:update", d.Hierarchy.SetGeofence)).Methods("PUT")

	api.Handle("/user-assignments", guard("assignment:read", d.Assignments.List)).Methods("GET")
	api.Handle("/user-assignments", guard("assignment:create", d.Assignments.Create)).Methods("POST")
	api.Handle("/user-assignments", guard("assignment:delete", d.Assignments.Delete)).Methods("DELETE")
}

func registerWellRoutes(api *mux.Router, d Deps) {
	api.Handle("/wells", guard("well:read", d.Wells.List)).Methods("GET")
	api.Handle("/wells", guard("well:create", d.Wells.Create)).Methods("POST")
	// before /wells/{id} so the literal segment wins
	api.Handle("/wells/pending-approval", guard("well:approve", d.Wells.PendingApproval)).Methods("GET")
	api.Handle("/wells/{id}", guard("well:read", d.Wells.Get)).Methods("GET")
	api.Handle("/wells/{id}/history", guard("well:read", d.Wells.History)).Methods("GET")
	api.Handle("/wells/{id}/checklist", guard("well:update", d.Wells.UpdateChecklist)).Methods("PUT")
	api.Handle("/wells/{id}/photos", guard("well:update", d.Wells.UploadPhoto)).Methods("POST")
	api.Handle("/wells/{id}/spud", guard("well:update", d.Wells.Spud)).Methods("POST")
	api.Handle("/wells/{id}/submit", guard("well:submit", d.Wells.Submit)).Methods("POST")
	api.Handle("/wells/{id}/resubmit", guard("well:submit", d.Wells.Resubmit)).Methods("POST")
	api.Handle("/wells/{id}/approve", guard("well:approve", d.Wells.Approve)).Methods("POST")
	api.Handle("/wells/{id}/reject", guard("well:approve", d.Wells.Reject)).Methods("POST")
	api.Handle("/wells/{id}/complete", guard("well:approve", d.Wells.Complete)).Methods("POST")
}

func registerReportRoutes(api *mux.Router, d Deps) {
	api.Handle("/reports/check-pending", guard("report:create", d.Reports.CheckPending)).Methods("GET")
	api.Handle("/reports/daily", guard("report:read", d.Reports.List)).Methods("GET")
	api.Handle("/reports/daily", guard("report:create", d.Reports.Submit)).Methods("POST")
	api.Handle("/reports/daily/export", guard("report:export", d.Reports.Export)).Methods("GET")
	api.Handle("/reports/schedule", guard("schedule:read", d.Reports.GetSchedule)).Methods("GET")
	api.Handle("/reports/schedule", guard("schedule:update", d.Reports.SaveSchedule)).Methods("POST")
}

func registerUserRoutes(api *mux.Router, d Deps) {
	api.Handle("/users", guard("user:read", d.Users.List)).Methods("GET")
	api.Handle("/users/list", guard("user:read", d.Users.List)).Methods("GET")
	api.Handle("/users", guard("user:create", d.Users.Create)).Methods("POST")
	api.Handle("/users/reset-password", guard("user:update", d.Users.ResetPassword)).Methods("POST")
	api.Handle("/users/{id}", guard("user:delete", d.Users.Delete)).Methods("DELETE")
}

func registerHSERoutes(api *mux.Router, d Deps) {
	api.Handle("/hazards", guard("hazard:read", d.HSE.ListHazards)).Methods("GET")
	api.Handle("/hazards", guard("hazard:create", d.HSE.ReportHazard)).Methods("POST")
	api.Handle("/hazards/{id}", guard("hazard:read", d.HSE.GetHazard)).Methods("GET")
	api.Handle("/hazards/{id}/status", guard("hazard:update", d.HSE.SetHazardStatus)).Methods("PUT")
	api.Handle("/hazards/{id}/photos", guard("hazard:photo", d.HSE.UploadHazardPhoto)).Methods("POST")

	api.Handle("/tasks", guard("task:read", d.HSE.ListTasks)).Methods("GET")
	api.Handle("/tasks", guard("task:create", d.HSE.CreateTask)).Methods("POST")
	api.Handle("/tasks/{id}/status", guard("task:update", d.HSE.SetTaskStatus)).Methods("PUT")
}

func health(st Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
