package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// WellStatus is the lifecycle state of a well record.
type WellStatus string

const (
	WellDraft      WellStatus = "draft"
	WellInProgress WellStatus = "in_progress"
	WellApproved   WellStatus = "approved"
	WellCompleted  WellStatus = "completed"
	WellSuspended  WellStatus = "suspended"
	WellAbandoned  WellStatus = "abandoned"
)

// MaxWellStep is the number of steps in the well workflow.
const MaxWellStep = 9

func (s WellStatus) Valid() bool {
	switch s {
	case WellDraft, WellInProgress, WellApproved, WellCompleted, WellSuspended, WellAbandoned:
		return true
	}
	return false
}

// Well is a well record moving through the approval workflow.
type Well struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WellID          string         `gorm:"size:100;not null;index" json:"well_id"`
	Name            string         `gorm:"size:255" json:"name"`
	WellType        string         `gorm:"size:100" json:"well_type,omitempty"`
	WellShape       string         `gorm:"size:100" json:"well_shape,omitempty"`
	HoleSize        string         `gorm:"size:50" json:"hole_size,omitempty"`
	CasingSize      string         `gorm:"size:50" json:"casing_size,omitempty"`
	ArtificialLift  string         `gorm:"size:100" json:"artificial_lift,omitempty"`
	Field           string         `gorm:"size:100" json:"field,omitempty"`
	Location        string         `gorm:"size:255" json:"location,omitempty"`
	Country         string         `gorm:"size:100;index" json:"country"`
	Project         string         `gorm:"size:100;index" json:"project"`
	Unit            string         `gorm:"size:100" json:"unit,omitempty"`
	Status          WellStatus     `gorm:"size:30;not null;default:'draft';index" json:"status"`
	CurrentStep     int            `gorm:"not null;default:1" json:"current_step"`
	ChecklistData   *Checklist     `gorm:"type:jsonb" json:"checklist_data"`
	Photos          pq.StringArray `gorm:"type:text[]" json:"photos"`
	SubmittedAt     *time.Time     `json:"submitted_at"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	RejectedAt      *time.Time     `json:"rejected_at"`
	RejectionReason *string        `gorm:"type:text" json:"rejection_reason"`
	SpudDate        *Day           `gorm:"type:date" json:"spud_date"`
	CreatedBy       uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by"`
	AssignedTo      *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_to"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Well) TableName() string {
	return "wells"
}

func (w *Well) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}

// DisplayName falls back to the well identifier when the well has no name.
func (w *Well) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.WellID
}

// LocatedAt returns the well's location coordinates.
func (w *Well) LocatedAt() Location {
	return Location{Country: w.Country, Project: w.Project, Unit: w.Unit}
}

// AwaitingApproval reports whether the well belongs in the pending approval queue.
func (w *Well) AwaitingApproval() bool {
	return w.Status == WellInProgress && w.RejectionReason == nil
}

// WellTransition is the audit row written with every lifecycle change.
type WellTransition struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WellID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"well_id"`
	FromStatus     WellStatus `gorm:"size:30;not null" json:"from_status"`
	ToStatus       WellStatus `gorm:"size:30;not null" json:"to_status"`
	Action         string     `gorm:"size:30;not null" json:"action"`
	ActorID        uuid.UUID  `gorm:"type:uuid" json:"actor_id"`
	Comment        string     `gorm:"type:text" json:"comment,omitempty"`
	TransitionedAt time.Time  `gorm:"not null;index" json:"transitioned_at"`
}

func (WellTransition) TableName() string {
	return "well_transitions"
}

func (t *WellTransition) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// WellFilter narrows well listings. Zero values are ignored.
type WellFilter struct {
	Status    WellStatus
	CreatedBy *uuid.UUID
	Country   string
	Search    string
}
