package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/rigops/models"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL through GORM. The *gorm.DB
// should be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---- locations ----

func (s *PostgresStore) ListLocations(ctx context.Context) ([]models.LocationNode, error) {
	nodes := []models.LocationNode{}
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("country").
		Order("project NULLS FIRST").
		Order("unit NULLS FIRST").
		Order("display_order").
		Order("unit_number NULLS FIRST").
		Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return nodes, nil
}

func (s *PostgresStore) GetLocation(ctx context.Context, id uuid.UUID) (*models.LocationNode, error) {
	var node models.LocationNode
	if err := s.db.WithContext(ctx).First(&node, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &node, nil
}

func (s *PostgresStore) CreateLocation(ctx context.Context, node *models.LocationNode) error {
	return translate(s.db.WithContext(ctx).Create(node).Error)
}

func (s *PostgresStore) UpdateLocationGeofence(ctx context.Context, id uuid.UUID, geofence []byte) (*models.LocationNode, error) {
	var value interface{}
	if len(geofence) > 0 {
		value = datatypes.JSON(geofence)
	}
	res := s.db.WithContext(ctx).Model(&models.LocationNode{}).Where("id = ?", id).Update("geofence", value)
	if res.Error != nil {
		return nil, fmt.Errorf("update geofence: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetLocation(ctx, id)
}

func (s *PostgresStore) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.LocationNode{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete location: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- assignments ----

func (s *PostgresStore) ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.LocationAssignment, error) {
	out := []models.LocationAssignment{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateAssignment(ctx context.Context, a *models.LocationAssignment) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *PostgresStore) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.LocationAssignment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- wells ----

func (s *PostgresStore) ListWells(ctx context.Context, filter models.WellFilter) ([]models.Well, error) {
	q := s.db.WithContext(ctx).Model(&models.Well{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Country != "" {
		q = q.Where("LOWER(country) = ?", strings.ToLower(filter.Country))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("well_id ILIKE ? OR name ILIKE ?", like, like)
	}

	wells := []models.Well{}
	if err := q.Order("created_at DESC").Find(&wells).Error; err != nil {
		return nil, fmt.Errorf("list wells: %w", err)
	}
	return wells, nil
}

func (s *PostgresStore) ListPendingApproval(ctx context.Context) ([]models.Well, error) {
	wells := []models.Well{}
	err := s.db.WithContext(ctx).
		Where("status = ? AND rejection_reason IS NULL", models.WellInProgress).
		Order("submitted_at DESC NULLS LAST").
		Find(&wells).Error
	if err != nil {
		return nil, fmt.Errorf("list pending approval: %w", err)
	}
	return wells, nil
}

func (s *PostgresStore) ListReportableWells(ctx context.Context, userID uuid.UUID) ([]models.Well, error) {
	wells := []models.Well{}
	err := s.db.WithContext(ctx).
		Where("(created_by = ? OR assigned_to = ?)", userID, userID).
		Where("status IN ?", []models.WellStatus{models.WellInProgress, models.WellApproved}).
		Order("created_at").
		Find(&wells).Error
	if err != nil {
		return nil, fmt.Errorf("list reportable wells: %w", err)
	}
	return wells, nil
}

func (s *PostgresStore) GetWell(ctx context.Context, id uuid.UUID) (*models.Well, error) {
	var w models.Well
	if err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (s *PostgresStore) CreateWell(ctx context.Context, w *models.Well) error {
	return translate(s.db.WithContext(ctx).Create(w).Error)
}

func (s *PostgresStore) MutateWell(ctx context.Context, id uuid.UUID, fn WellMutation) (*models.Well, error) {
	var well models.Well
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&well, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		transition, err := fn(&well)
		if err != nil {
			return err
		}

		if err := tx.Save(&well).Error; err != nil {
			return fmt.Errorf("save well: %w", err)
		}
		if transition != nil {
			transition.WellID = well.ID
			if err := tx.Create(transition).Error; err != nil {
				return fmt.Errorf("record transition: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &well, nil
}

func (s *PostgresStore) ListWellTransitions(ctx context.Context, wellID uuid.UUID) ([]models.WellTransition, error) {
	out := []models.WellTransition{}
	err := s.db.WithContext(ctx).
		Where("well_id = ?", wellID).
		Order("transitioned_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list well transitions: %w", err)
	}
	return out, nil
}

// ---- daily reports ----

func (s *PostgresStore) CreateDailyReport(ctx context.Context, r *models.DailyReport) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *PostgresStore) ListDailyReports(ctx context.Context, filter models.DailyReportFilter) ([]models.DailyReport, error) {
	q := s.db.WithContext(ctx).Model(&models.DailyReport{})
	if filter.WellID != nil {
		q = q.Where("well_id = ?", *filter.WellID)
	}
	if filter.WellIDs != nil {
		if len(filter.WellIDs) == 0 {
			return []models.DailyReport{}, nil
		}
		q = q.Where("well_id IN ?", filter.WellIDs)
	}
	if filter.StartDate != nil {
		q = q.Where("report_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("report_date <= ?", *filter.EndDate)
	}

	reports := []models.DailyReport{}
	if err := q.Order("report_date DESC").Order("time_slot").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list daily reports: %w", err)
	}
	return reports, nil
}

func (s *PostgresStore) ActiveSchedule(ctx context.Context) (*models.ReportSchedule, error) {
	var sched models.ReportSchedule
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&sched).Error; err != nil {
		return nil, translate(err)
	}
	return &sched, nil
}

func (s *PostgresStore) SaveSchedule(ctx context.Context, in *models.ReportSchedule) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReportSchedule
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("is_active = ?", true).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			in.IsActive = true
			return translate(tx.Create(in).Error)
		case err != nil:
			return fmt.Errorf("load active schedule: %w", err)
		}

		current.TimeSlot1 = in.TimeSlot1
		current.TimeSlot2 = in.TimeSlot2
		if err := tx.Save(&current).Error; err != nil {
			return fmt.Errorf("save schedule: %w", err)
		}
		*in = current
		return nil
	})
}

// ---- users ----

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	res := s.db.WithContext(ctx).Save(u)
	return translate(res.Error)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.LocationAssignment{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete user assignments: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ---- HSE ----

func (s *PostgresStore) ListHazards(ctx context.Context) ([]models.Hazard, error) {
	out := []models.Hazard{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list hazards: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetHazard(ctx context.Context, id uuid.UUID) (*models.Hazard, error) {
	var h models.Hazard
	if err := s.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (s *PostgresStore) CreateHazard(ctx context.Context, h *models.Hazard) error {
	return translate(s.db.WithContext(ctx).Create(h).Error)
}

func (s *PostgresStore) UpdateHazard(ctx context.Context, h *models.Hazard) error {
	return translate(s.db.WithContext(ctx).Save(h).Error)
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]models.HSETask, error) {
	q := s.db.WithContext(ctx).Model(&models.HSETask{})
	if filter.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.HazardID != nil {
		q = q.Where("hazard_id = ?", *filter.HazardID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	out := []models.HSETask{}
	if err := q.Order("due_date NULLS LAST").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*models.HSETask, error) {
	var t models.HSETask
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *models.HSETask) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.HSETask) error {
	return translate(s.db.WithContext(ctx).Save(t).Error)
}

var _ Store = (*PostgresStore)(nil)
