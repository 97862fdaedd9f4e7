// Package dashboard computes the headline counters and drilling parameter
// summaries shown on the operations dashboard.
package dashboard

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/store"
)

type Stats struct {
	ActiveWells         int `json:"active_wells"`
	CompletedWells      int `json:"completed_wells"`
	PendingApproval     int `json:"pending_approval"`
	OpenHazards         int `json:"open_hazards"`
	InProgressHazards   int `json:"in_progress_hazards"`
	HighPriorityHazards int `json:"high_priority_hazards"`
	OverdueTasks        int `json:"overdue_tasks"`
	PendingTasks        int `json:"pending_tasks"`
	TodaysReports       int `json:"todays_reports"`
	ActiveUsers         int `json:"active_users"`
}

// Snapshot is the raw material for Compute, already filtered for the viewer.
type Snapshot struct {
	Wells   []models.Well
	Hazards []models.Hazard
	Tasks   []models.HSETask
	Reports []models.DailyReport
	Users   []models.User
}

// Compute counts the snapshot as of today. A task is overdue when its due
// date has passed and it is not completed.
func Compute(s Snapshot, today models.Day) Stats {
	var st Stats
	for _, w := range s.Wells {
		switch w.Status {
		case models.WellInProgress:
			st.ActiveWells++
			if w.AwaitingApproval() {
				st.PendingApproval++
			}
		case models.WellCompleted:
			st.CompletedWells++
		}
	}
	for _, h := range s.Hazards {
		switch h.Status {
		case models.HazardOpen:
			st.OpenHazards++
		case models.HazardInProgress:
			st.InProgressHazards++
		default:
			continue
		}
		if h.Priority == "high" {
			st.HighPriorityHazards++
		}
	}
	for _, t := range s.Tasks {
		if t.Status == models.TaskPending {
			st.PendingTasks++
		}
		if t.Status != models.TaskCompleted && t.DueDate != nil && t.DueDate.Before(today) {
			st.OverdueTasks++
		}
	}
	for _, r := range s.Reports {
		if r.ReportDate == today {
			st.TodaysReports++
		}
	}
	for _, u := range s.Users {
		if u.IsActive() {
			st.ActiveUsers++
		}
	}
	return st
}

// Summary describes one drilling parameter over a set of reports.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// Summarize returns nil for no values.
func Summarize(values []float64) *Summary {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := &Summary{Count: len(sorted), Min: sorted[0], Max: sorted[len(sorted)-1]}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s.Mean = sum / float64(s.Count)

	var sq float64
	for _, v := range sorted {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(sq / float64(s.Count))
	s.Median = percentile(sorted, 50)
	s.Q1 = percentile(sorted, 25)
	s.Q3 = percentile(sorted, 75)
	return s
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []float64, p float64) float64 {
	idx := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	w := idx - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Parameters summarizes the recorded drilling parameters. Reports that left
// a parameter blank do not count towards it.
func Parameters(reports []models.DailyReport) map[string]*Summary {
	var depth, mud, pressure []float64
	for _, r := range reports {
		if r.DrillingDepth != nil {
			depth = append(depth, *r.DrillingDepth)
		}
		if r.MudWeight != nil {
			mud = append(mud, *r.MudWeight)
		}
		if r.PumpPressure != nil {
			pressure = append(pressure, *r.PumpPressure)
		}
	}
	return map[string]*Summary{
		"drilling_depth": Summarize(depth),
		"mud_weight":     Summarize(mud),
		"pump_pressure":  Summarize(pressure),
	}
}

// Service loads a snapshot from the store.
type Service struct {
	store store.Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, now: time.Now, log: log}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats computes the counters with wells and hazards narrowed to what the
// viewer may see.
func (s *Service) Stats(ctx context.Context, wells, hazards access.Visibility) (Stats, error) {
	today := models.DayOf(s.now())
	var snap Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Wells, err = s.store.ListWells(ctx, models.WellFilter{})
		return err
	})
	g.Go(func() (err error) {
		snap.Hazards, err = s.store.ListHazards(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Tasks, err = s.store.ListTasks(ctx, store.TaskFilter{})
		return err
	})
	g.Go(func() (err error) {
		snap.Reports, err = s.store.ListDailyReports(ctx, models.DailyReportFilter{StartDate: &today, EndDate: &today})
		return err
	})
	g.Go(func() (err error) {
		snap.Users, err = s.store.ListUsers(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	snap.Wells = access.Filter(wells, snap.Wells, func(w models.Well) models.Location { return w.LocatedAt() })
	snap.Hazards = access.Filter(hazards, snap.Hazards, func(h models.Hazard) models.Location { return h.LocatedAt() })
	return Compute(snap, today), nil
}

// ReportParameters summarises the drilling parameters of the reports matching
// filter whose well is visible.
func (s *Service) ReportParameters(ctx context.Context, filter models.DailyReportFilter, wells access.Visibility) (map[string]*Summary, error) {
	reports, err := s.store.ListDailyReports(ctx, filter)
	if err != nil {
		return nil, err
	}
	if wells.Restricted {
		list, err := s.store.ListWells(ctx, models.WellFilter{})
		if err != nil {
			return nil, err
		}
		visible := make(map[uuid.UUID]bool, len(list))
		for _, w := range access.Filter(wells, list, func(w models.Well) models.Location { return w.LocatedAt() }) {
			visible[w.ID] = true
		}
		kept := reports[:0]
		for _, r := range reports {
			if visible[r.WellID] {
				kept = append(kept, r)
			}
		}
		reports = kept
	}
	return Parameters(reports), nil
}
