package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"p9e.in/rigops/models"
)

// MemoryStore is an in-process Store. Unique indexes are emulated with key
// maps and every method runs under a single mutex, so MutateWell is atomic
// with respect to all other calls.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	locations   []*models.LocationNode
	assignments []*models.LocationAssignment
	wells       []*models.Well
	transitions []*models.WellTransition
	reports     []*models.DailyReport
	schedule    *models.ReportSchedule
	users       []*models.User
	hazards     []*models.Hazard
	tasks       []*models.HSETask

	locationKeys   map[string]uuid.UUID
	assignmentKeys map[string]uuid.UUID
	reportKeys     map[string]uuid.UUID
	emails         map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:            time.Now,
		locationKeys:   map[string]uuid.UUID{},
		assignmentKeys: map[string]uuid.UUID{},
		reportKeys:     map[string]uuid.UUID{},
		emails:         map[string]uuid.UUID{},
	}
}

// WithClock replaces the clock used for created_at/updated_at stamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func opt(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// compareOpt orders absent values before present ones.
func compareOpt(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

func key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

func (m *MemoryStore) stamp(id *uuid.UUID, created, updated *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := m.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = now
	}
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, what)
}

// ---- locations ----

func locationKey(n *models.LocationNode) string {
	return key(n.Country, opt(n.Project), opt(n.Unit), opt(n.UnitNumber))
}

func (m *MemoryStore) ListLocations(ctx context.Context) ([]models.LocationNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.LocationNode{}
	for _, n := range m.locations {
		if n.IsActive {
			out = append(out, *n)
		}
	}
	slices.SortStableFunc(out, func(a, b models.LocationNode) int {
		return cmp.Or(
			strings.Compare(a.Country, b.Country),
			compareOpt(a.Project, b.Project),
			compareOpt(a.Unit, b.Unit),
			cmp.Compare(a.DisplayOrder, b.DisplayOrder),
			compareOpt(a.UnitNumber, b.UnitNumber),
		)
	})
	return out, nil
}

func (m *MemoryStore) findLocation(id uuid.UUID) (int, *models.LocationNode) {
	for i, n := range m.locations {
		if n.ID == id {
			return i, n
		}
	}
	return -1, nil
}

func (m *MemoryStore) GetLocation(ctx context.Context, id uuid.UUID) (*models.LocationNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, n := m.findLocation(id); n != nil {
		cp := *n
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateLocation(ctx context.Context, node *models.LocationNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := locationKey(node)
	if _, exists := m.locationKeys[k]; exists {
		return duplicate("well_hierarchy")
	}
	m.stamp(&node.ID, &node.CreatedAt, &node.UpdatedAt)
	cp := *node
	m.locations = append(m.locations, &cp)
	m.locationKeys[k] = node.ID
	return nil
}

func (m *MemoryStore) UpdateLocationGeofence(ctx context.Context, id uuid.UUID, geofence []byte) (*models.LocationNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, n := m.findLocation(id)
	if n == nil {
		return nil, ErrNotFound
	}
	if len(geofence) == 0 {
		n.Geofence = nil
	} else {
		n.Geofence = datatypes.JSON(slices.Clone(geofence))
	}
	n.UpdatedAt = m.now()
	cp := *n
	return &cp, nil
}

func (m *MemoryStore) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, n := m.findLocation(id)
	if n == nil {
		return ErrNotFound
	}
	delete(m.locationKeys, locationKey(n))
	m.locations = slices.Delete(m.locations, i, i+1)
	return nil
}

// ---- assignments ----

func assignmentKey(a *models.LocationAssignment) string {
	return key(a.UserID.String(), a.Country, opt(a.Project), opt(a.Unit))
}

func (m *MemoryStore) ListAssignments(ctx context.Context, userID uuid.UUID) ([]models.LocationAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.LocationAssignment{}
	for i := len(m.assignments) - 1; i >= 0; i-- {
		if a := m.assignments[i]; a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateAssignment(ctx context.Context, a *models.LocationAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := assignmentKey(a)
	if _, exists := m.assignmentKeys[k]; exists {
		return duplicate("user_location_assignments")
	}
	m.stamp(&a.ID, &a.CreatedAt, nil)
	cp := *a
	m.assignments = append(m.assignments, &cp)
	m.assignmentKeys[k] = a.ID
	return nil
}

func (m *MemoryStore) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.assignments {
		if a.ID == id {
			delete(m.assignmentKeys, assignmentKey(a))
			m.assignments = slices.Delete(m.assignments, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

// ---- wells ----

func copyWell(w *models.Well) models.Well {
	cp := *w
	cp.Photos = slices.Clone(w.Photos)
	if w.ChecklistData != nil {
		cl := *w.ChecklistData
		cp.ChecklistData = &cl
	}
	return cp
}

func (m *MemoryStore) ListWells(ctx context.Context, filter models.WellFilter) ([]models.Well, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(filter.Search)
	out := []models.Well{}
	// newest first
	for i := len(m.wells) - 1; i >= 0; i-- {
		w := m.wells[i]
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		if filter.CreatedBy != nil && w.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Country != "" && !strings.EqualFold(w.Country, filter.Country) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(w.WellID), search) &&
			!strings.Contains(strings.ToLower(w.Name), search) {
			continue
		}
		out = append(out, copyWell(w))
	}
	return out, nil
}

func (m *MemoryStore) ListPendingApproval(ctx context.Context) ([]models.Well, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Well{}
	for _, w := range m.wells {
		if w.AwaitingApproval() {
			out = append(out, copyWell(w))
		}
	}
	slices.SortStableFunc(out, func(a, b models.Well) int {
		switch {
		case a.SubmittedAt == nil && b.SubmittedAt == nil:
			return 0
		case a.SubmittedAt == nil:
			return 1
		case b.SubmittedAt == nil:
			return -1
		}
		return b.SubmittedAt.Compare(*a.SubmittedAt)
	})
	return out, nil
}

func (m *MemoryStore) ListReportableWells(ctx context.Context, userID uuid.UUID) ([]models.Well, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Well{}
	for _, w := range m.wells {
		mine := w.CreatedBy == userID || (w.AssignedTo != nil && *w.AssignedTo == userID)
		if !mine {
			continue
		}
		if w.Status == models.WellInProgress || w.Status == models.WellApproved {
			out = append(out, copyWell(w))
		}
	}
	return out, nil
}

func (m *MemoryStore) findWell(id uuid.UUID) *models.Well {
	for _, w := range m.wells {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (m *MemoryStore) GetWell(ctx context.Context, id uuid.UUID) (*models.Well, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.findWell(id)
	if w == nil {
		return nil, ErrNotFound
	}
	cp := copyWell(w)
	return &cp, nil
}

func (m *MemoryStore) CreateWell(ctx context.Context, w *models.Well) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if m.findWell(w.ID) != nil {
		return duplicate("wells_pkey")
	}
	cp := copyWell(w)
	m.wells = append(m.wells, &cp)
	return nil
}

func (m *MemoryStore) MutateWell(ctx context.Context, id uuid.UUID, fn WellMutation) (*models.Well, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.findWell(id)
	if current == nil {
		return nil, ErrNotFound
	}

	// work on a copy so a failed mutation leaves the row untouched
	working := copyWell(current)
	transition, err := fn(&working)
	if err != nil {
		return nil, err
	}

	*current = copyWell(&working)
	if transition != nil {
		transition.WellID = current.ID
		m.stamp(&transition.ID, &transition.TransitionedAt, nil)
		cp := *transition
		m.transitions = append(m.transitions, &cp)
	}
	return &working, nil
}

func (m *MemoryStore) ListWellTransitions(ctx context.Context, wellID uuid.UUID) ([]models.WellTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.WellTransition{}
	for _, t := range m.transitions {
		if t.WellID == wellID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// ---- daily reports ----

func reportKey(r *models.DailyReport) string {
	return key(r.WellID.String(), r.ReportDate.String(), fmt.Sprint(r.TimeSlot))
}

func (m *MemoryStore) CreateDailyReport(ctx context.Context, r *models.DailyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := reportKey(r)
	if _, exists := m.reportKeys[k]; exists {
		return duplicate("uq_daily_reports_slot")
	}
	m.stamp(&r.ID, &r.CreatedAt, nil)
	cp := *r
	m.reports = append(m.reports, &cp)
	m.reportKeys[k] = r.ID
	return nil
}

func (m *MemoryStore) ListDailyReports(ctx context.Context, filter models.DailyReportFilter) ([]models.DailyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.DailyReport{}
	for _, r := range m.reports {
		if filter.WellID != nil && r.WellID != *filter.WellID {
			continue
		}
		if filter.WellIDs != nil && !slices.Contains(filter.WellIDs, r.WellID) {
			continue
		}
		if filter.StartDate != nil && r.ReportDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && r.ReportDate.After(*filter.EndDate) {
			continue
		}
		out = append(out, *r)
	}
	slices.SortStableFunc(out, func(a, b models.DailyReport) int {
		return cmp.Or(
			b.ReportDate.Time().Compare(a.ReportDate.Time()),
			cmp.Compare(a.TimeSlot, b.TimeSlot),
		)
	})
	return out, nil
}

func (m *MemoryStore) ActiveSchedule(ctx context.Context) (*models.ReportSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == nil || !m.schedule.IsActive {
		return nil, ErrNotFound
	}
	cp := *m.schedule
	return &cp, nil
}

func (m *MemoryStore) SaveSchedule(ctx context.Context, s *models.ReportSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == nil || !m.schedule.IsActive {
		s.IsActive = true
		m.stamp(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		cp := *s
		m.schedule = &cp
		return nil
	}
	m.schedule.TimeSlot1 = s.TimeSlot1
	m.schedule.TimeSlot2 = s.TimeSlot2
	m.schedule.UpdatedAt = m.now()
	*s = *m.schedule
	return nil
}

// ---- users ----

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.User, 0, len(m.users))
	for i := len(m.users) - 1; i >= 0; i-- {
		out = append(out, *m.users[i])
	}
	return out, nil
}

func (m *MemoryStore) findUser(id uuid.UUID) (int, *models.User) {
	for i, u := range m.users {
		if u.ID == id {
			return i, u
		}
	}
	return -1, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, u := m.findUser(id); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	_, u := m.findUser(id)
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := m.emails[email]; exists {
		return duplicate("users_email_key")
	}
	m.stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	cp := *u
	m.users = append(m.users, &cp)
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, current := m.findUser(u.ID)
	if current == nil {
		return ErrNotFound
	}
	oldEmail, newEmail := strings.ToLower(current.Email), strings.ToLower(u.Email)
	if oldEmail != newEmail {
		if _, exists := m.emails[newEmail]; exists {
			return duplicate("users_email_key")
		}
		delete(m.emails, oldEmail)
		m.emails[newEmail] = u.ID
	}
	u.UpdatedAt = m.now()
	*current = *u
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, u := m.findUser(id)
	if u == nil {
		return ErrNotFound
	}
	delete(m.emails, strings.ToLower(u.Email))
	m.users = slices.Delete(m.users, i, i+1)

	m.assignments = slices.DeleteFunc(m.assignments, func(a *models.LocationAssignment) bool {
		if a.UserID != id {
			return false
		}
		delete(m.assignmentKeys, assignmentKey(a))
		return true
	})
	return nil
}

// ---- HSE ----

func (m *MemoryStore) ListHazards(ctx context.Context) ([]models.Hazard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Hazard, 0, len(m.hazards))
	for i := len(m.hazards) - 1; i >= 0; i-- {
		out = append(out, *m.hazards[i])
	}
	return out, nil
}

func (m *MemoryStore) findHazard(id uuid.UUID) *models.Hazard {
	for _, h := range m.hazards {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func (m *MemoryStore) GetHazard(ctx context.Context, id uuid.UUID) (*models.Hazard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h := m.findHazard(id); h != nil {
		cp := *h
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateHazard(ctx context.Context, h *models.Hazard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	cp := *h
	m.hazards = append(m.hazards, &cp)
	return nil
}

func (m *MemoryStore) UpdateHazard(ctx context.Context, h *models.Hazard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.findHazard(h.ID)
	if current == nil {
		return ErrNotFound
	}
	h.UpdatedAt = m.now()
	*current = *h
	return nil
}

func (m *MemoryStore) ListTasks(ctx context.Context, filter TaskFilter) ([]models.HSETask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.HSETask{}
	for i := len(m.tasks) - 1; i >= 0; i-- {
		t := m.tasks[i]
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.HazardID != nil && (t.HazardID == nil || *t.HazardID != *filter.HazardID) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	slices.SortStableFunc(out, func(a, b models.HSETask) int {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Time().Compare(b.DueDate.Time())
	})
	return out, nil
}

func (m *MemoryStore) findTask(id uuid.UUID) *models.HSETask {
	for _, t := range m.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id uuid.UUID) (*models.HSETask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.findTask(id); t != nil {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateTask(ctx context.Context, t *models.HSETask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	cp := *t
	m.tasks = append(m.tasks, &cp)
	return nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, t *models.HSETask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.findTask(t.ID)
	if current == nil {
		return ErrNotFound
	}
	*current = *t
	return nil
}

var _ Store = (*MemoryStore)(nil)
