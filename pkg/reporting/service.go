package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

var (
	ErrAlreadySubmitted = errors.New("report already submitted for this time slot")
	ErrInvalidReport    = errors.New("invalid report")
)

// Service ties the pending computation and report submission to the store.
type Service struct {
	wells   store.WellStore
	reports store.ReportStore
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(wells store.WellStore, reports store.ReportStore, log zerolog.Logger) *Service {
	return &Service{
		wells:   wells,
		reports: reports,
		now:     time.Now,
		log:     log.With().Str("component", "daily_reports").Logger(),
	}
}

// WithClock replaces the wall clock. Slot times are compared against it as-is.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Schedule returns the active schedule, or nil when none is configured.
func (s *Service) Schedule(ctx context.Context) (*models.ReportSchedule, error) {
	sched, err := s.reports.ActiveSchedule(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load report schedule: %w", err)
	}
	return sched, nil
}

// SaveSchedule validates and stores the two daily slot times.
func (s *Service) SaveSchedule(ctx context.Context, slot1, slot2 string) (*models.ReportSchedule, error) {
	first, err := ParseSlotTime(slot1)
	if err != nil {
		return nil, fmt.Errorf("%w: time_slot_1: %v", ErrInvalidReport, err)
	}
	second, err := ParseSlotTime(slot2)
	if err != nil {
		return nil, fmt.Errorf("%w: time_slot_2: %v", ErrInvalidReport, err)
	}

	sched := &models.ReportSchedule{TimeSlot1: first.String(), TimeSlot2: second.String()}
	if err := s.reports.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("save report schedule: %w", err)
	}
	s.log.Info().Str("slot1", sched.TimeSlot1).Str("slot2", sched.TimeSlot2).Msg("report schedule updated")
	return sched, nil
}

// CheckPending lists the reports userID still owes today.
func (s *Service) CheckPending(ctx context.Context, userID uuid.UUID) ([]models.PendingReport, error) {
	sched, err := s.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return []models.PendingReport{}, nil
	}

	wells, err := s.wells.ListReportableWells(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(wells) == 0 {
		return []models.PendingReport{}, nil
	}

	now := s.now()
	today := models.DayOf(now)
	ids := make([]uuid.UUID, len(wells))
	for i, w := range wells {
		ids[i] = w.ID
	}
	reports, err := s.reports.ListDailyReports(ctx, models.DailyReportFilter{
		WellIDs:   ids,
		StartDate: &today,
		EndDate:   &today,
	})
	if err != nil {
		return nil, err
	}

	return Pending(sched, wells, SubmittedOn(reports, today), now)
}

// Submit stores a daily report. A second report for the same well, day and
// slot fails with ErrAlreadySubmitted.
func (s *Service) Submit(ctx context.Context, r *models.DailyReport) (*models.DailyReport, error) {
	if r.WellID == uuid.Nil {
		return nil, fmt.Errorf("%w: well_id is required", ErrInvalidReport)
	}
	if r.TimeSlot != 1 && r.TimeSlot != 2 {
		return nil, fmt.Errorf("%w: time_slot must be 1 or 2", ErrInvalidReport)
	}
	if r.ReportDate.IsZero() {
		r.ReportDate = models.DayOf(s.now())
	}
	if _, err := s.wells.GetWell(ctx, r.WellID); err != nil {
		return nil, fmt.Errorf("well %s: %w", r.WellID, err)
	}

	r.ID = uuid.Nil
	if err := s.reports.CreateDailyReport(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create daily report: %w", err)
	}
	s.log.Info().
		Str("well", r.WellID.String()).
		Str("date", r.ReportDate.String()).
		Int("slot", r.TimeSlot).
		Msg("daily report submitted")
	return r, nil
}

// List returns reports matching filter, newest first.
func (s *Service) List(ctx context.Context, filter models.DailyReportFilter) ([]models.DailyReport, error) {
	return s.reports.ListDailyReports(ctx, filter)
}
