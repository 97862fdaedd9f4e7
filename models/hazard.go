package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HazardStatus string

const (
	HazardOpen       HazardStatus = "open"
	HazardInProgress HazardStatus = "in_progress"
	HazardClosed     HazardStatus = "closed"
	HazardCancelled  HazardStatus = "cancelled"
)

func (s HazardStatus) Valid() bool {
	switch s {
	case HazardOpen, HazardInProgress, HazardClosed, HazardCancelled:
		return true
	}
	return false
}

// Hazard is an HSE observation reported from the field. Country, Project and
// Unit drive visibility for HSE leads; Location is a free-text description.
type Hazard struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Subject        string       `gorm:"size:255;not null" json:"subject"`
	Description    string       `gorm:"type:text" json:"description"`
	Location       string       `gorm:"size:255" json:"location"`
	Country        string       `gorm:"size:100;index" json:"country"`
	Project        string       `gorm:"size:100" json:"project,omitempty"`
	Unit           string       `gorm:"size:100" json:"unit,omitempty"`
	Priority       string       `gorm:"size:10;not null;default:'medium'" json:"priority"`
	Status         HazardStatus `gorm:"size:20;not null;default:'open';index" json:"status"`
	ReportedBy     uuid.UUID    `gorm:"type:uuid;not null;index" json:"reported_by"`
	BeforePhotoURL *string      `json:"before_photo_url"`
	AfterPhotoURL  *string      `json:"after_photo_url"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (Hazard) TableName() string {
	return "hazards"
}

func (h *Hazard) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

func (h *Hazard) LocatedAt() Location {
	return Location{Country: h.Country, Project: h.Project, Unit: h.Unit}
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// HSETask is a corrective action, usually raised against a hazard.
type HSETask struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	HazardID    *uuid.UUID `gorm:"type:uuid;index" json:"hazard_id"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to"`
	DueDate     *Day       `gorm:"type:date" json:"due_date"`
	Status      TaskStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (HSETask) TableName() string {
	return "hse_tasks"
}

func (t *HSETask) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// SetStatus moves the task and stamps started_at / completed_at.
func (t *HSETask) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	switch status {
	case TaskInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
	case TaskCompleted:
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
}
