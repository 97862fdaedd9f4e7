// Package reporting computes outstanding daily drilling reports and exports
// submitted ones.
package reporting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"p9e.in/rigops/models"
)

// SlotLayout is the "HH:MM" format of configured slot times.
const SlotLayout = "15:04"

// SlotTime is a time of day with minute granularity.
type SlotTime struct {
	Hour   int
	Minute int
}

// ParseSlotTime parses a 24h "HH:MM" value.
func ParseSlotTime(s string) (SlotTime, error) {
	t, err := time.Parse(SlotLayout, s)
	if err != nil {
		return SlotTime{}, fmt.Errorf("invalid slot time %q: expected HH:MM", s)
	}
	return SlotTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (s SlotTime) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// PassedAt reports whether the slot time has been reached on now's clock.
func (s SlotTime) PassedAt(now time.Time) bool {
	if now.Hour() != s.Hour {
		return now.Hour() > s.Hour
	}
	return now.Minute() >= s.Minute
}

// SlotKey identifies one (well, slot) obligation for a day.
type SlotKey struct {
	WellID uuid.UUID
	Slot   int
}

// Submitted is the set of slots already reported today.
type Submitted map[SlotKey]struct{}

// SubmittedOn indexes the reports filed on day.
func SubmittedOn(reports []models.DailyReport, day models.Day) Submitted {
	out := Submitted{}
	for _, r := range reports {
		if r.ReportDate == day {
			out[SlotKey{WellID: r.WellID, Slot: r.TimeSlot}] = struct{}{}
		}
	}
	return out
}

func (s Submitted) Has(wellID uuid.UUID, slot int) bool {
	_, ok := s[SlotKey{WellID: wellID, Slot: slot}]
	return ok
}

// Pending lists the (well, slot) pairs whose slot time has passed on now's
// clock and that have no report yet. Without a schedule nothing is pending.
// Output follows the order of wells, slot 1 before slot 2.
func Pending(schedule *models.ReportSchedule, wells []models.Well, submitted Submitted, now time.Time) ([]models.PendingReport, error) {
	out := []models.PendingReport{}
	if schedule == nil || !schedule.IsActive {
		return out, nil
	}

	slots := make([]SlotTime, 2)
	for i, raw := range []string{schedule.TimeSlot1, schedule.TimeSlot2} {
		st, err := ParseSlotTime(raw)
		if err != nil {
			return nil, fmt.Errorf("time_slot_%d: %w", i+1, err)
		}
		slots[i] = st
	}

	for _, w := range wells {
		for i, st := range slots {
			slot := i + 1
			if !st.PassedAt(now) || submitted.Has(w.ID, slot) {
				continue
			}
			out = append(out, models.PendingReport{
				WellID:   w.ID,
				WellName: w.DisplayName(),
				TimeSlot: slot,
				DueTime:  st.String(),
			})
		}
	}
	return out, nil
}
