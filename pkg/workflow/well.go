// Package workflow implements the well lifecycle.
//
//	draft --submit--> in_progress --approve--> approved --complete--> completed
//	                   |    ^
//	                reject  resubmit
//	                   v    |
//	             in_progress + rejection_reason
//
// A rejected well stays in_progress with a reason attached and is hidden from
// the approval queue until it is resubmitted.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/store"
)

var (
	ErrInvalidID         = errors.New("invalid well id")
	ErrInvalidTransition = errors.New("transition not allowed")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrInvalidInput      = errors.New("invalid input")
)

// Actions recorded on well transitions.
const (
	ActionSubmit   = "submit"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionResubmit = "resubmit"
	ActionComplete = "complete"
	ActionSpud     = "spud"
	ActionPhotos   = "photos"
	ActionEdit     = "edit"
)

// ParseWellID rejects the placeholder values some clients send before a
// record exists.
func ParseWellID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "undefined", "null":
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// WellService performs lifecycle commands. Every command returns the well as
// stored after the change.
type WellService struct {
	wells store.WellStore
	now   func() time.Time
	log   zerolog.Logger
}

func NewWellService(wells store.WellStore, log zerolog.Logger) *WellService {
	return &WellService{
		wells: wells,
		now:   time.Now,
		log:   log.With().Str("component", "well_workflow").Logger(),
	}
}

// WithClock replaces the clock used for lifecycle timestamps.
func (s *WellService) WithClock(now func() time.Time) *WellService {
	s.now = now
	return s
}

// Create stores a new well owned by actor. Wells start as drafts unless the
// client submits them straight away.
func (s *WellService) Create(ctx context.Context, w *models.Well, actor uuid.UUID) (*models.Well, error) {
	w.ID = uuid.Nil
	w.CreatedBy = actor
	switch w.Status {
	case "", models.WellDraft:
		w.Status = models.WellDraft
		w.SubmittedAt = nil
	case models.WellInProgress:
		now := s.now()
		w.SubmittedAt = &now
	default:
		return nil, fmt.Errorf("%w: a new well must be draft or in_progress", ErrInvalidInput)
	}
	if w.CurrentStep < 1 {
		w.CurrentStep = 1
	}
	if w.CurrentStep > models.MaxWellStep {
		return nil, fmt.Errorf("%w: current_step must be between 1 and %d", ErrInvalidInput, models.MaxWellStep)
	}
	w.ApprovedAt, w.RejectedAt, w.RejectionReason = nil, nil, nil

	if err := s.wells.CreateWell(ctx, w); err != nil {
		return nil, fmt.Errorf("create well: %w", err)
	}
	s.log.Info().Str("well", w.ID.String()).Str("well_id", w.WellID).Msg("well created")
	return w, nil
}

type step struct {
	action string
	guard  func(w *models.Well) error
	apply  func(w *models.Well, now time.Time)
	note   string
}

// run applies st under the store's row guard. Wells outside v are reported
// as missing and left untouched.
func (s *WellService) run(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility, st step) (*models.Well, error) {
	id, err := ParseWellID(rawID)
	if err != nil {
		return nil, err
	}

	well, err := s.wells.MutateWell(ctx, id, func(w *models.Well) (*models.WellTransition, error) {
		if !v.CanView(w.LocatedAt()) {
			return nil, store.ErrNotFound
		}
		if err := st.guard(w); err != nil {
			return nil, err
		}
		from := w.Status
		now := s.now()
		st.apply(w, now)
		w.UpdatedAt = now
		return &models.WellTransition{
			FromStatus:     from,
			ToStatus:       w.Status,
			Action:         st.action,
			ActorID:        actor,
			Comment:        st.note,
			TransitionedAt: now,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s well %s: %w", st.action, id, err)
	}

	s.log.Info().
		Str("well", well.ID.String()).
		Str("action", st.action).
		Str("status", string(well.Status)).
		Str("actor", actor.String()).
		Msg("well transition")
	return well, nil
}

func requireStatus(action string, allowed ...models.WellStatus) func(*models.Well) error {
	return func(w *models.Well) error {
		for _, s := range allowed {
			if w.Status == s {
				return nil
			}
		}
		return fmt.Errorf("%w: cannot %s a well in status %q", ErrInvalidTransition, action, w.Status)
	}
}

// Submit moves a draft well into the approval queue.
func (s *WellService) Submit(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility) (*models.Well, error) {
	return s.run(ctx, rawID, actor, v, step{
		action: ActionSubmit,
		guard:  requireStatus(ActionSubmit, models.WellDraft),
		apply: func(w *models.Well, now time.Time) {
			w.Status = models.WellInProgress
			w.SubmittedAt = &now
		},
	})
}

// Approve accepts an in-progress well that carries no pending rejection.
func (s *WellService) Approve(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility) (*models.Well, error) {
	return s.run(ctx, rawID, actor, v, step{
		action: ActionApprove,
		guard: func(w *models.Well) error {
			if err := requireStatus(ActionApprove, models.WellInProgress)(w); err != nil {
				return err
			}
			if w.RejectionReason != nil {
				return fmt.Errorf("%w: well was rejected and must be resubmitted first", ErrInvalidTransition)
			}
			return nil
		},
		apply: func(w *models.Well, now time.Time) {
			w.Status = models.WellApproved
			w.ApprovedAt = &now
			w.RejectionReason = nil
		},
	})
}

// Reject sends an in-progress well back to its author. The status does not
// change; the reason removes it from the approval queue.
func (s *WellService) Reject(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility, reason string) (*models.Well, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.run(ctx, rawID, actor, v, step{
		action: ActionReject,
		guard:  requireStatus(ActionReject, models.WellInProgress),
		apply: func(w *models.Well, now time.Time) {
			w.RejectedAt = &now
			w.RejectionReason = &reason
		},
		note: reason,
	})
}

// Resubmit clears a rejection and puts the well back in the approval queue.
func (s *WellService) Resubmit(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility) (*models.Well, error) {
	return s.run(ctx, rawID, actor, v, step{
		action: ActionResubmit,
		guard: func(w *models.Well) error {
			if err := requireStatus(ActionResubmit, models.WellInProgress)(w); err != nil {
				return err
			}
			if w.RejectionReason == nil {
				return fmt.Errorf("%w: well has not been rejected", ErrInvalidTransition)
			}
			return nil
		},
		apply: func(w *models.Well, now time.Time) {
			w.RejectionReason = nil
			w.SubmittedAt = &now
		},
	})
}

// Complete closes out an approved well.
func (s *WellService) Complete(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility) (*models.Well, error) {
	return s.run(ctx, rawID, actor, v, step{
		action: ActionComplete,
		guard:  requireStatus(ActionComplete, models.WellApproved),
		apply: func(w *models.Well, now time.Time) {
			w.Status = models.WellCompleted
		},
	})
}

// SetSpudDate records when drilling started.
func (s *WellService) SetSpudDate(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility, day models.Day) (*models.Well, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: spud_date is required", ErrInvalidInput)
	}
	return s.run(ctx, rawID, actor, v, step{
		action: ActionSpud,
		guard:  requireStatus(ActionSpud, models.WellInProgress, models.WellApproved),
		apply: func(w *models.Well, now time.Time) {
			w.SpudDate = &day
		},
		note: day.String(),
	})
}

// AddPhotos appends uploaded photo URLs to a well.
func (s *WellService) AddPhotos(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility, urls ...string) (*models.Well, error) {
	return s.run(ctx, rawID, actor, v, step{
		action: ActionPhotos,
		guard: func(w *models.Well) error {
			if w.Status == models.WellCompleted || w.Status == models.WellAbandoned {
				return fmt.Errorf("%w: well is %s", ErrInvalidTransition, w.Status)
			}
			return nil
		},
		apply: func(w *models.Well, now time.Time) {
			w.Photos = append(w.Photos, urls...)
		},
		note: strings.Join(urls, ","),
	})
}

// UpdateChecklist replaces the checklist and current step of a well that is
// still being worked on.
func (s *WellService) UpdateChecklist(ctx context.Context, rawID string, actor uuid.UUID, v access.Visibility, currentStep int, checklist *models.Checklist) (*models.Well, error) {
	if currentStep < 1 || currentStep > models.MaxWellStep {
		return nil, fmt.Errorf("%w: current_step must be between 1 and %d", ErrInvalidInput, models.MaxWellStep)
	}
	return s.run(ctx, rawID, actor, v, step{
		action: ActionEdit,
		guard:  requireStatus(ActionEdit, models.WellDraft, models.WellInProgress),
		apply: func(w *models.Well, now time.Time) {
			w.CurrentStep = currentStep
			w.ChecklistData = checklist
		},
	})
}

// Get loads one well. Wells outside v are reported as missing.
func (s *WellService) Get(ctx context.Context, rawID string, v access.Visibility) (*models.Well, error) {
	id, err := ParseWellID(rawID)
	if err != nil {
		return nil, err
	}
	w, err := s.wells.GetWell(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get well %s: %w", id, err)
	}
	if !v.CanView(w.LocatedAt()) {
		return nil, fmt.Errorf("get well %s: %w", id, store.ErrNotFound)
	}
	return w, nil
}

// History returns the audit trail of a well, oldest first.
func (s *WellService) History(ctx context.Context, rawID string, v access.Visibility) ([]models.WellTransition, error) {
	w, err := s.Get(ctx, rawID, v)
	if err != nil {
		return nil, err
	}
	return s.wells.ListWellTransitions(ctx, w.ID)
}

// PendingApproval is the approval queue.
func (s *WellService) PendingApproval(ctx context.Context) ([]models.Well, error) {
	return s.wells.ListPendingApproval(ctx)
}
