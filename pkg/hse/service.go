// Package hse handles hazard observations and the corrective tasks raised
// against them.
package hse

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/store"
)

var ErrInvalidInput = errors.New("invalid input")

var priorities = []string{"low", "medium", "high"}

// PhotoStage selects which hazard photo an upload replaces.
type PhotoStage string

const (
	PhotoBefore PhotoStage = "before"
	PhotoAfter  PhotoStage = "after"
)

type Service struct {
	store store.HSEStore
	now   func() time.Time
	log   zerolog.Logger
}

func NewService(st store.HSEStore, log zerolog.Logger) *Service {
	return &Service{store: st, now: time.Now, log: log.With().Str("component", "hse").Logger()}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Hazards returns the hazards visible under v, newest first.
func (s *Service) Hazards(ctx context.Context, v access.Visibility) ([]models.Hazard, error) {
	all, err := s.store.ListHazards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hazards: %w", err)
	}
	return access.Filter(v, all, func(h models.Hazard) models.Location { return h.LocatedAt() }), nil
}

// Hazard returns one hazard. Hazards outside v are reported as missing.
func (s *Service) Hazard(ctx context.Context, id uuid.UUID, v access.Visibility) (*models.Hazard, error) {
	h, err := s.store.GetHazard(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.CanView(h.LocatedAt()) {
		return nil, store.ErrNotFound
	}
	return h, nil
}

func (s *Service) ReportHazard(ctx context.Context, h *models.Hazard, reporter uuid.UUID) (*models.Hazard, error) {
	h.Subject = strings.TrimSpace(h.Subject)
	if h.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	h.Priority = strings.ToLower(strings.TrimSpace(h.Priority))
	if h.Priority == "" {
		h.Priority = "medium"
	}
	if !slices.Contains(priorities, h.Priority) {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", ErrInvalidInput)
	}
	h.ID = uuid.Nil
	h.Status = models.HazardOpen
	h.ReportedBy = reporter

	if err := s.store.CreateHazard(ctx, h); err != nil {
		return nil, fmt.Errorf("create hazard: %w", err)
	}
	s.log.Info().Str("hazard", h.ID.String()).Str("priority", h.Priority).Msg("hazard reported")
	return h, nil
}

func (s *Service) SetHazardStatus(ctx context.Context, id uuid.UUID, status models.HazardStatus, v access.Visibility) (*models.Hazard, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown hazard status %q", ErrInvalidInput, status)
	}
	h, err := s.Hazard(ctx, id, v)
	if err != nil {
		return nil, err
	}
	h.Status = status
	h.UpdatedAt = s.now()
	if err := s.store.UpdateHazard(ctx, h); err != nil {
		return nil, fmt.Errorf("update hazard: %w", err)
	}
	s.log.Info().Str("hazard", id.String()).Str("status", string(status)).Msg("hazard status changed")
	return h, nil
}

// SetHazardPhoto records an uploaded before or after photo.
func (s *Service) SetHazardPhoto(ctx context.Context, id uuid.UUID, stage PhotoStage, url string, v access.Visibility) (*models.Hazard, error) {
	h, err := s.Hazard(ctx, id, v)
	if err != nil {
		return nil, err
	}
	switch stage {
	case PhotoBefore:
		h.BeforePhotoURL = &url
	case PhotoAfter:
		h.AfterPhotoURL = &url
	default:
		return nil, fmt.Errorf("%w: stage must be before or after", ErrInvalidInput)
	}
	h.UpdatedAt = s.now()
	if err := s.store.UpdateHazard(ctx, h); err != nil {
		return nil, fmt.Errorf("update hazard: %w", err)
	}
	return h, nil
}

// Tasks lists tasks by due date, undated ones last.
func (s *Service) Tasks(ctx context.Context, filter store.TaskFilter) ([]models.HSETask, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, filter.Status)
	}
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Service) CreateTask(ctx context.Context, t *models.HSETask, creator uuid.UUID) (*models.HSETask, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if t.HazardID != nil {
		if _, err := s.store.GetHazard(ctx, *t.HazardID); err != nil {
			return nil, fmt.Errorf("hazard %s: %w", t.HazardID, err)
		}
	}
	t.ID = uuid.Nil
	t.Status = models.TaskPending
	t.StartedAt, t.CompletedAt = nil, nil
	t.CreatedBy = creator

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Info().Str("task", t.ID.String()).Msg("task created")
	return t, nil
}

func (s *Service) SetTaskStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.HSETask, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	from := t.Status
	t.SetStatus(status, s.now())
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.log.Info().Str("task", id.String()).Str("from", string(from)).Str("to", string(status)).Msg("task status changed")
	return t, nil
}
