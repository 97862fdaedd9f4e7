package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyReport is one engineer submission for a well in one of the two daily slots.
// (well_id, report_date, time_slot) is unique.
type DailyReport struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WellID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_daily_reports_slot,priority:1" json:"well_id"`
	ReportDate    Day       `gorm:"type:date;not null;uniqueIndex:uq_daily_reports_slot,priority:2;index" json:"report_date"`
	TimeSlot      int       `gorm:"not null;uniqueIndex:uq_daily_reports_slot,priority:3" json:"time_slot"`
	SubmittedBy   uuid.UUID `gorm:"type:uuid;not null;index" json:"submitted_by"`
	DrillingDepth *float64  `json:"drilling_depth"`
	MudWeight     *float64  `json:"mud_weight"`
	PumpPressure  *float64  `json:"pump_pressure"`
	Incidents     string    `gorm:"type:text" json:"incidents,omitempty"`
	Remarks       string    `gorm:"type:text" json:"remarks,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (DailyReport) TableName() string {
	return "daily_reports"
}

func (r *DailyReport) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// DailyReportFilter narrows report listings. Zero values are ignored.
type DailyReportFilter struct {
	WellID    *uuid.UUID
	WellIDs   []uuid.UUID
	StartDate *Day
	EndDate   *Day
}

// ReportSchedule holds the two daily submission times. At most one row is active.
type ReportSchedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TimeSlot1 string    `gorm:"column:time_slot_1;size:5;not null" json:"time_slot_1"`
	TimeSlot2 string    `gorm:"column:time_slot_2;size:5;not null" json:"time_slot_2"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReportSchedule) TableName() string {
	return "report_schedules"
}

func (s *ReportSchedule) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// PendingReport is one outstanding (well, slot) obligation.
type PendingReport struct {
	WellID   uuid.UUID `json:"well_id"`
	WellName string    `json:"well_name"`
	TimeSlot int       `json:"time_slot"`
	DueTime  string    `json:"due_time"`
}
