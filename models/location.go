package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocationNode is one row of the flattened country → project → unit → unit number tree.
// The depth of a row is the last non-null field in that sequence.
type LocationNode struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Country      string         `gorm:"size:100;not null;index" json:"country"`
	Project      *string        `gorm:"size:100" json:"project"`
	Unit         *string        `gorm:"size:100" json:"unit"`
	UnitNumber   *string        `gorm:"size:100" json:"unit_number"`
	DisplayOrder int            `gorm:"default:0" json:"display_order"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	Geofence     datatypes.JSON `gorm:"type:jsonb" json:"geofence,omitempty"` // GeoJSON polygon
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName keeps the table name used by the dashboards.
func (LocationNode) TableName() string {
	return "well_hierarchy"
}

func (n *LocationNode) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// Depth levels of the hierarchy.
const (
	DepthCountry    = 1
	DepthProject    = 2
	DepthUnit       = 3
	DepthUnitNumber = 4
)

var ErrHierarchyGap = errors.New("a deeper level cannot be set without all shallower levels")

// Depth returns the level of the node, or an error when a deeper field is set
// while a shallower one is missing.
func (n *LocationNode) Depth() (int, error) {
	levels := []bool{
		strings.TrimSpace(n.Country) != "",
		notBlank(n.Project),
		notBlank(n.Unit),
		notBlank(n.UnitNumber),
	}
	depth := 0
	for i, set := range levels {
		if !set {
			continue
		}
		if depth != i {
			return 0, ErrHierarchyGap
		}
		depth = i + 1
	}
	return depth, nil
}

// Path returns the node's location coordinates.
func (n *LocationNode) Path() Location {
	return Location{
		Country: n.Country,
		Project: deref(n.Project),
		Unit:    deref(n.Unit),
	}
}

// LocationAssignment grants a user visibility over every record whose location
// starts with the non-null prefix (country, project, unit).
type LocationAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Country   string    `gorm:"size:100;not null" json:"country"`
	Project   *string   `gorm:"size:100" json:"project"`
	Unit      *string   `gorm:"size:100" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

func (LocationAssignment) TableName() string {
	return "user_location_assignments"
}

func (a *LocationAssignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// Location is the (country, project, unit) triple of a located record.
// Empty strings mean the record carries no value at that level.
type Location struct {
	Country string `json:"country"`
	Project string `json:"project,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// StringPtr returns nil for blank strings so optional levels are stored as NULL.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func notBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
