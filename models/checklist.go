package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChecklistKind discriminates the two checklist payload shapes.
type ChecklistKind string

const (
	ChecklistFlat    ChecklistKind = "flat"
	ChecklistStepped ChecklistKind = "stepped"
)

// ChecklistItem is one tickable line of a well checklist.
type ChecklistItem struct {
	Label      string   `json:"label"`
	Checked    bool     `json:"checked"`
	Notes      string   `json:"notes,omitempty"`
	Photos     []string `json:"photos,omitempty"`
	VoiceNotes []string `json:"voice_notes,omitempty"`
}

// ChecklistStep groups items under one of the nine workflow steps.
type ChecklistStep struct {
	Step  int             `json:"step"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

// Checklist is the well checklist payload. Exactly one of Items or Steps is
// populated, selected by Kind.
type Checklist struct {
	Kind  ChecklistKind   `json:"kind"`
	Items []ChecklistItem `json:"items,omitempty"`
	Steps []ChecklistStep `json:"steps,omitempty"`
}

// UnmarshalJSON decodes and validates the payload so that callers never
// inspect its shape again.
func (c *Checklist) UnmarshalJSON(b []byte) error {
	type raw Checklist
	var r raw
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return fmt.Errorf("checklist: %w", err)
	}
	decoded := Checklist(r)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Validate checks the union invariants.
func (c Checklist) Validate() error {
	switch c.Kind {
	case ChecklistFlat:
		if len(c.Steps) > 0 {
			return errors.New("checklist: flat checklist cannot carry steps")
		}
		return validateItems(c.Items)
	case ChecklistStepped:
		if len(c.Items) > 0 {
			return errors.New("checklist: stepped checklist cannot carry top-level items")
		}
		seen := make(map[int]bool, len(c.Steps))
		for _, s := range c.Steps {
			if s.Step < 1 || s.Step > MaxWellStep {
				return fmt.Errorf("checklist: step %d out of range 1..%d", s.Step, MaxWellStep)
			}
			if seen[s.Step] {
				return fmt.Errorf("checklist: duplicate step %d", s.Step)
			}
			seen[s.Step] = true
			if err := validateItems(s.Items); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("checklist: unknown kind %q", c.Kind)
	}
}

func validateItems(items []ChecklistItem) error {
	for i, it := range items {
		if strings.TrimSpace(it.Label) == "" {
			return fmt.Errorf("checklist: item %d has no label", i+1)
		}
	}
	return nil
}

// Progress returns checked and total item counts across the whole payload.
func (c Checklist) Progress() (checked, total int) {
	count := func(items []ChecklistItem) {
		for _, it := range items {
			total++
			if it.Checked {
				checked++
			}
		}
	}
	count(c.Items)
	for _, s := range c.Steps {
		count(s.Items)
	}
	return checked, total
}

// Scan implements the sql.Scanner interface
func (c *Checklist) Scan(value interface{}) error {
	if value == nil {
		*c = Checklist{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("checklist: unsupported scan type %T", value)
	}
	if len(b) == 0 || string(b) == "null" {
		*c = Checklist{}
		return nil
	}
	return json.Unmarshal(b, c)
}

// Value implements the driver.Valuer interface
func (c Checklist) Value() (driver.Value, error) {
	if c.Kind == "" {
		return nil, nil
	}
	return json.Marshal(c)
}

// GormDataType defines the data type for GORM
func (Checklist) GormDataType() string {
	return "jsonb"
}
