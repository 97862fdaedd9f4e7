// Package store defines the persistence boundary of the service.
//
// Two implementations exist: [PostgresStore] backed by GORM, and
// [MemoryStore], an in-process store used for demo mode and tests. The
// composition root picks one from configuration and injects it; no package
// holds a global database handle.
//
// Conventions shared by every implementation:
//   - Get methods return [ErrNotFound] for missing rows.
//   - Create methods return [ErrDuplicate] when a unique index rejects the row.
//   - List methods return an empty slice, never nil, for no results.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"p9e.in/rigops/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type LocationStore interface {
	// ListLocations returns active nodes ordered by country, project, unit,
	// display_order. Absent levels sort before present ones.
	ListLocations(ctx context.Context) ([]models.LocationNode, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.LocationNode, error)
	CreateLocation(ctx context.Context, node *models.LocationNode) error
	UpdateLocationGeofence(ctx context.Context, id uuid.UUID, geofence []byte) (*models.LocationNode, error)
	// DeleteLocation removes exactly one node. Deeper nodes are left alone.
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

type AssignmentStore interface {
	// ListAssignments returns the user's grants, newest first.
	ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.LocationAssignment, error)
	CreateAssignment(ctx context.Context, a *models.LocationAssignment) error
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
}

// WellMutation inspects and changes a locked well. Returning an error aborts
// the change. A non-nil transition is stored in the same unit of work.
type WellMutation func(w *models.Well) (*models.WellTransition, error)

type WellStore interface {
	ListWells(ctx context.Context, filter models.WellFilter) ([]models.Well, error)
	// ListPendingApproval returns in-progress wells without a rejection
	// reason, newest submission first.
	ListPendingApproval(ctx context.Context) ([]models.Well, error)
	// ListReportableWells returns wells created by or assigned to the user
	// that are in progress or approved, oldest first.
	ListReportableWells(ctx context.Context, userID uuid.UUID) ([]models.Well, error)
	GetWell(ctx context.Context, id uuid.UUID) (*models.Well, error)
	CreateWell(ctx context.Context, w *models.Well) error
	// MutateWell applies fn to the current row while holding it exclusively,
	// then saves the well and the returned transition atomically.
	MutateWell(ctx context.Context, id uuid.UUID, fn WellMutation) (*models.Well, error)
	ListWellTransitions(ctx context.Context, wellID uuid.UUID) ([]models.WellTransition, error)
}

type ReportStore interface {
	CreateDailyReport(ctx context.Context, r *models.DailyReport) error
	// ListDailyReports orders by report_date desc, then time_slot.
	ListDailyReports(ctx context.Context, filter models.DailyReportFilter) ([]models.DailyReport, error)
	ActiveSchedule(ctx context.Context) (*models.ReportSchedule, error)
	// SaveSchedule updates the active schedule in place, or creates it.
	SaveSchedule(ctx context.Context, s *models.ReportSchedule) error
}

type UserStore interface {
	// ListUsers returns users newest first.
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	// DeleteUser also drops the user's location assignments.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// TaskFilter narrows task listings. Zero values are ignored.
type TaskFilter struct {
	AssignedTo *uuid.UUID
	HazardID   *uuid.UUID
	Status     models.TaskStatus
}

type HSEStore interface {
	ListHazards(ctx context.Context) ([]models.Hazard, error)
	GetHazard(ctx context.Context, id uuid.UUID) (*models.Hazard, error)
	CreateHazard(ctx context.Context, h *models.Hazard) error
	UpdateHazard(ctx context.Context, h *models.Hazard) error
	// ListTasks orders by due_date with undated tasks last, then newest first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.HSETask, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.HSETask, error)
	CreateTask(ctx context.Context, t *models.HSETask) error
	UpdateTask(ctx context.Context, t *models.HSETask) error
}

// Store is everything the HTTP layer needs.
type Store interface {
	LocationStore
	AssignmentStore
	WellStore
	ReportStore
	UserStore
	HSEStore
	Ping(ctx context.Context) error
	Close() error
}
