package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

// Default daily report times used until an admin saves a schedule.
const (
	DefaultSlot1 = "08:00"
	DefaultSlot2 = "20:00"
)

// RunAllSeeding makes sure an admin and a report schedule exist, and fills
// the store with demo data in mock mode.
func RunAllSeeding(ctx context.Context, st store.Store, cfg *Config, log zerolog.Logger) error {
	log.Info().Msg("seeding defaults")

	admin, err := SeedAdmin(ctx, st, cfg.AdminEmail, cfg.AdminPassword, log)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := SeedSchedule(ctx, st, log); err != nil {
		return fmt.Errorf("seed schedule: %w", err)
	}
	if cfg.UseMockData {
		if err := SeedDemoData(ctx, st, admin, cfg.AdminPassword, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}
	return nil
}

// SeedAdmin creates the first admin account unless the email is taken.
func SeedAdmin(ctx context.Context, st store.UserStore, email, password string, log zerolog.Logger) (*models.User, error) {
	existing, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	u, err := newUser(email, password, "System", "Admin", models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := st.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	log.Info().Str("email", email).Msg("created default admin, change the password after first login")
	return u, nil
}

func SeedSchedule(ctx context.Context, st store.ReportStore, log zerolog.Logger) error {
	_, err := st.ActiveSchedule(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := st.SaveSchedule(ctx, &models.ReportSchedule{TimeSlot1: DefaultSlot1, TimeSlot2: DefaultSlot2, IsActive: true}); err != nil {
		return err
	}
	log.Info().Str("slot1", DefaultSlot1).Str("slot2", DefaultSlot2).Msg("created default report schedule")
	return nil
}

// SeedDemoData loads a small Oman field with one user per role. Demo users
// share the admin password.
func SeedDemoData(ctx context.Context, st store.Store, admin *models.User, password string, log zerolog.Logger) error {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 1 {
		log.Info().Msg("demo data already present")
		return nil
	}

	paths := [][]string{
		{"Oman"},
		{"Oman", "Block 6"},
		{"Oman", "Block 6", "Fahud"},
		{"Oman", "Block 6", "Fahud", "FH-01"},
		{"Oman", "Block 6", "Fahud", "FH-02"},
		{"Oman", "Block 6", "Lekhwair"},
		{"Oman", "Block 61"},
		{"Oman", "Block 61", "Khazzan"},
		{"Kuwait"},
		{"Kuwait", "Burgan"},
	}
	for i, p := range paths {
		n := &models.LocationNode{Country: p[0], DisplayOrder: i, IsActive: true}
		if len(p) > 1 {
			n.Project = &p[1]
		}
		if len(p) > 2 {
			n.Unit = &p[2]
		}
		if len(p) > 3 {
			n.UnitNumber = &p[3]
		}
		if err := st.CreateLocation(ctx, n); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return err
		}
	}

	demo := []struct {
		email, first, last string
		role               models.Role
	}{
		{"engineer@rigops.local", "Aisha", "Al Balushi", models.RoleEngineer},
		{"ops@rigops.local", "Khalid", "Al Hinai", models.RoleOps},
		{"hse@rigops.local", "Maryam", "Al Rawahi", models.RoleHSELead},
	}
	byRole := map[models.Role]*models.User{}
	for _, d := range demo {
		u, err := newUser(d.email, password, d.first, d.last, d.role)
		if err != nil {
			return err
		}
		if err := st.CreateUser(ctx, u); err != nil {
			return err
		}
		byRole[d.role] = u
	}

	block6 := "Block 6"
	for _, a := range []*models.LocationAssignment{
		{UserID: byRole[models.RoleOps].ID, Country: "Oman", Project: &block6},
		{UserID: byRole[models.RoleHSELead].ID, Country: "Oman"},
	} {
		if err := st.CreateAssignment(ctx, a); err != nil {
			return err
		}
	}

	engineer := byRole[models.RoleEngineer].ID
	now := time.Now()
	wells := []*models.Well{
		{WellID: "FH-01-D", Name: "Fahud 1 Deep", Country: "Oman", Project: "Block 6", Unit: "Fahud", Status: models.WellInProgress, CurrentStep: 4, SubmittedAt: &now},
		{WellID: "LK-07", Name: "Lekhwair 7", Country: "Oman", Project: "Block 6", Unit: "Lekhwair", Status: models.WellApproved, CurrentStep: 9, SubmittedAt: &now, ApprovedAt: &now},
		{WellID: "KZ-12", Name: "Khazzan 12", Country: "Oman", Project: "Block 61", Unit: "Khazzan", Status: models.WellDraft, CurrentStep: 1},
		{WellID: "BG-3", Name: "Burgan 3", Country: "Kuwait", Project: "Burgan", Status: models.WellInProgress, CurrentStep: 2, SubmittedAt: &now},
	}
	for _, w := range wells {
		w.CreatedBy = engineer
		if err := st.CreateWell(ctx, w); err != nil {
			return err
		}
	}

	hazard := &models.Hazard{
		Subject:     "Loose handrail on rig floor",
		Description: "Handrail near the drawworks is not secured",
		Location:    "Fahud rig floor",
		Country:     "Oman",
		Project:     "Block 6",
		Unit:        "Fahud",
		Priority:    "high",
		Status:      models.HazardOpen,
		ReportedBy:  engineer,
	}
	if err := st.CreateHazard(ctx, hazard); err != nil {
		return err
	}
	if err := st.CreateTask(ctx, &models.HSETask{
		Title:      "Secure drawworks handrail",
		HazardID:   &hazard.ID,
		AssignedTo: &engineer,
		Status:     models.TaskPending,
		CreatedBy:  byRole[models.RoleHSELead].ID,
	}); err != nil {
		return err
	}

	log.Info().Int("wells", len(wells)).Int("users", len(demo)).Msg("demo data loaded")
	return nil
}

func newUser(email, password, first, last string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Status:       "active",
	}, nil
}
