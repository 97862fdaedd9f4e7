package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/store"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*WellService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	svc := NewWellService(s, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })
	return svc, s
}

func seedWell(t *testing.T, s *store.MemoryStore, status models.WellStatus, reason *string) *models.Well {
	t.Helper()
	w := &models.Well{WellID: "OM-" + uuid.NewString()[:4], Status: status, RejectionReason: reason, CreatedBy: uuid.New()}
	require.NoError(t, s.CreateWell(context.Background(), w))
	return w
}

func TestParseWellID(t *testing.T) {
	valid := uuid.New()
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"empty", "", true},
		{"undefined", "undefined", true},
		{"null", "null", true},
		{"garbage", "well-42", true},
		{"nil uuid", uuid.Nil.String(), true},
		{"valid", valid.String(), false},
		{"valid with spaces", "  " + valid.String() + " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseWellID(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, valid, id)
		})
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("in progress well is approved", func(t *testing.T) {
		svc, s := newService(t)
		w := seedWell(t, s, models.WellInProgress, nil)

		got, err := svc.Approve(ctx, w.ID.String(), actor, access.Unrestricted)
		require.NoError(t, err)
		assert.Equal(t, models.WellApproved, got.Status)
		require.NotNil(t, got.ApprovedAt)
		assert.Equal(t, fixedNow, *got.ApprovedAt)
		assert.Equal(t, fixedNow, got.UpdatedAt)
		assert.Nil(t, got.RejectionReason)

		history, err := svc.History(ctx, w.ID.String(), access.Unrestricted)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, ActionApprove, history[0].Action)
		assert.Equal(t, models.WellInProgress, history[0].FromStatus)
		assert.Equal(t, models.WellApproved, history[0].ToStatus)
		assert.Equal(t, actor, history[0].ActorID)
	})

	t.Run("disallowed from other states", func(t *testing.T) {
		for _, status := range []models.WellStatus{models.WellDraft, models.WellApproved, models.WellCompleted} {
			svc, s := newService(t)
			w := seedWell(t, s, status, nil)
			_, err := svc.Approve(ctx, w.ID.String(), actor, access.Unrestricted)
			assert.ErrorIs(t, err, ErrInvalidTransition, status)
		}
	})

	t.Run("rejected well must be resubmitted first", func(t *testing.T) {
		svc, s := newService(t)
		reason := "casing report missing"
		w := seedWell(t, s, models.WellInProgress, &reason)
		_, err := svc.Approve(ctx, w.ID.String(), actor, access.Unrestricted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown well", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Approve(ctx, uuid.NewString(), actor, access.Unrestricted)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("placeholder id", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Approve(ctx, "undefined", actor, access.Unrestricted)
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("blank reason does not mutate", func(t *testing.T) {
		svc, s := newService(t)
		w := seedWell(t, s, models.WellInProgress, nil)

		_, err := svc.Reject(ctx, w.ID.String(), actor, access.Unrestricted, "   ")
		assert.ErrorIs(t, err, ErrReasonRequired)

		stored, err := s.GetWell(ctx, w.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.RejectionReason)
		assert.Nil(t, stored.RejectedAt)
	})

	t.Run("reason is trimmed and well leaves the queue", func(t *testing.T) {
		svc, s := newService(t)
		w := seedWell(t, s, models.WellInProgress, nil)

		got, err := svc.Reject(ctx, w.ID.String(), actor, access.Unrestricted, "  mud log incomplete ")
		require.NoError(t, err)
		assert.Equal(t, models.WellInProgress, got.Status)
		require.NotNil(t, got.RejectionReason)
		assert.Equal(t, "mud log incomplete", *got.RejectionReason)
		assert.Equal(t, fixedNow, *got.RejectedAt)

		pending, err := svc.PendingApproval(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("not from draft", func(t *testing.T) {
		svc, s := newService(t)
		w := seedWell(t, s, models.WellDraft, nil)
		_, err := svc.Reject(ctx, w.ID.String(), actor, access.Unrestricted, "no")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestSubmitResubmitRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)
	actor := uuid.New()
	w := seedWell(t, s, models.WellDraft, nil)
	id := w.ID.String()

	got, err := svc.Submit(ctx, id, actor, access.Unrestricted)
	require.NoError(t, err)
	assert.Equal(t, models.WellInProgress, got.Status)
	assert.NotNil(t, got.SubmittedAt)

	_, err = svc.Submit(ctx, id, actor, access.Unrestricted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Resubmit(ctx, id, actor, access.Unrestricted)
	assert.ErrorIs(t, err, ErrInvalidTransition, "nothing to resubmit")

	_, err = svc.Reject(ctx, id, actor, access.Unrestricted, "wrong coordinates")
	require.NoError(t, err)

	got, err = svc.Resubmit(ctx, id, actor, access.Unrestricted)
	require.NoError(t, err)
	assert.Nil(t, got.RejectionReason)
	assert.True(t, got.AwaitingApproval())

	got, err = svc.Approve(ctx, id, actor, access.Unrestricted)
	require.NoError(t, err)
	assert.Equal(t, models.WellApproved, got.Status)

	got, err = svc.Complete(ctx, id, actor, access.Unrestricted)
	require.NoError(t, err)
	assert.Equal(t, models.WellCompleted, got.Status)

	history, err := svc.History(ctx, id, access.Unrestricted)
	require.NoError(t, err)
	actions := []string{}
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{ActionSubmit, ActionReject, ActionResubmit, ActionApprove, ActionComplete}, actions)
}

func TestSetSpudDate(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)
	w := seedWell(t, s, models.WellInProgress, nil)

	_, err := svc.SetSpudDate(ctx, w.ID.String(), uuid.New(), access.Unrestricted, models.Day{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	day := models.Day{Year: 2025, Month: time.February, Date: 1}
	got, err := svc.SetSpudDate(ctx, w.ID.String(), uuid.New(), access.Unrestricted, day)
	require.NoError(t, err)
	require.NotNil(t, got.SpudDate)
	assert.Equal(t, "2025-02-01", got.SpudDate.String())
}

func TestCreateAndEdit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	actor := uuid.New()

	_, err := svc.Create(ctx, &models.Well{WellID: "OM-6", Status: models.WellApproved}, actor)
	assert.ErrorIs(t, err, ErrInvalidInput)

	submitted, err := svc.Create(ctx, &models.Well{WellID: "OM-8", Status: models.WellInProgress}, actor)
	require.NoError(t, err)
	require.NotNil(t, submitted.SubmittedAt)
	assert.True(t, submitted.AwaitingApproval())

	w, err := svc.Create(ctx, &models.Well{WellID: "OM-7"}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.WellDraft, w.Status)
	assert.Equal(t, actor, w.CreatedBy)
	assert.Equal(t, 1, w.CurrentStep)

	checklist := &models.Checklist{Kind: models.ChecklistFlat, Items: []models.ChecklistItem{{Label: "BOP tested", Checked: true}}}
	got, err := svc.UpdateChecklist(ctx, w.ID.String(), actor, access.Unrestricted, 3, checklist)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentStep)
	require.NotNil(t, got.ChecklistData)
	assert.Equal(t, models.ChecklistFlat, got.ChecklistData.Kind)

	_, err = svc.UpdateChecklist(ctx, w.ID.String(), actor, access.Unrestricted, 10, checklist)
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err = svc.AddPhotos(ctx, w.ID.String(), actor, access.Unrestricted, "/uploads/a.jpg", "/uploads/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, []string(got.Photos))
}

func TestCommandsOutsideVisibility(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)
	actor := uuid.New()
	omanOnly := access.NewVisibility(models.RoleOps, access.ScopeWells, []models.LocationAssignment{{Country: "Oman"}})

	w := &models.Well{WellID: "KW-9", Country: "Kuwait", Status: models.WellInProgress, CreatedBy: uuid.New()}
	require.NoError(t, s.CreateWell(ctx, w))
	id := w.ID.String()
	day := models.Day{Year: 2025, Month: time.March, Date: 1}

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error { _, err := svc.Get(ctx, id, omanOnly); return err }},
		{"history", func() error { _, err := svc.History(ctx, id, omanOnly); return err }},
		{"submit", func() error { _, err := svc.Submit(ctx, id, actor, omanOnly); return err }},
		{"approve", func() error { _, err := svc.Approve(ctx, id, actor, omanOnly); return err }},
		{"reject", func() error { _, err := svc.Reject(ctx, id, actor, omanOnly, "bad casing"); return err }},
		{"resubmit", func() error { _, err := svc.Resubmit(ctx, id, actor, omanOnly); return err }},
		{"complete", func() error { _, err := svc.Complete(ctx, id, actor, omanOnly); return err }},
		{"spud", func() error { _, err := svc.SetSpudDate(ctx, id, actor, omanOnly, day); return err }},
		{"photos", func() error { _, err := svc.AddPhotos(ctx, id, actor, omanOnly, "/uploads/x.jpg"); return err }},
		{"checklist", func() error { _, err := svc.UpdateChecklist(ctx, id, actor, omanOnly, 2, nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), store.ErrNotFound)
		})
	}

	got, err := s.GetWell(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WellInProgress, got.Status)
	assert.Nil(t, got.ApprovedAt)
	assert.Nil(t, got.RejectionReason)
	assert.Empty(t, got.Photos)

	history, err := s.ListWellTransitions(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	approved, err := svc.Approve(ctx, id, actor, access.NewVisibility(models.RoleOps, access.ScopeWells, []models.LocationAssignment{{Country: "kuwait"}}))
	require.NoError(t, err)
	assert.Equal(t, models.WellApproved, approved.Status)
}
