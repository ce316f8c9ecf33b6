package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/memory"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
)

func newService(t *testing.T) (*Service, *memory.Store, *clock.Fixed) {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC))
	events := event.NewEventService(store.Outbox(), clk)
	return NewService(store.Persons(), store.Professionals(), events, clk, logger.Nop()), store, clk
}

func TestPersonResolution(t *testing.T) {
	svc, store, clk := newService(t)
	ctx := context.Background()

	deletedAt := clk.Now()
	removed := model.Person{Base: model.Base{ID: uuid.New(), DeletedAt: &deletedAt}, FirstName: "Luis"}
	store.AddPerson(removed)

	p, err := svc.Person(ctx, removed.ID)
	require.NoError(t, err, "soft-deleted persons still resolve")
	assert.True(t, p.IsDeleted())

	_, err = svc.ActivePerson(ctx, removed.ID)
	assert.ErrorIs(t, err, ErrPersonDeleted)
	assert.Equal(t, apperrors.ErrBusinessRule, apperrors.CodeOf(err))

	_, err = svc.Person(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestActiveProfessional(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	inactive := model.Professional{Base: model.Base{ID: uuid.New()}, Status: model.ProfessionalStatusInactive}
	store.AddProfessional(inactive)

	_, err := svc.ActiveProfessional(ctx, inactive.ID)
	assert.ErrorIs(t, err, ErrProfessionalInactive)
}

func TestLookupInfrastructureFailure(t *testing.T) {
	svc, store, _ := newService(t)
	store.FailNext("professionals.Get", errors.New("connection refused"))

	_, err := svc.Professional(context.Background(), uuid.New())
	assert.True(t, apperrors.IsRetryable(err))
}

func TestRemoveProfessionalCascadesSlots(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	prof := model.Professional{Base: model.Base{ID: uuid.New()}, Status: model.ProfessionalStatusActive}
	store.AddProfessional(prof)
	slot := &model.AvailabilitySlot{
		ID: uuid.New(), ProfessionalID: prof.ID, Weekday: 1,
		StartTime: model.NewTimeOfDay(8, 0), EndTime: model.NewTimeOfDay(12, 0),
	}
	require.NoError(t, store.Availability().Create(ctx, slot, nil))

	require.NoError(t, svc.RemoveProfessional(ctx, prof.ID))

	slots, err := store.Availability().ListByProfessional(ctx, prof.ID)
	require.NoError(t, err)
	assert.Empty(t, slots)

	got, err := svc.Professional(ctx, prof.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventProfessionalRemoved, events[0].EventType)

	err = svc.RemoveProfessional(ctx, prof.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err), "already removed")
}

func TestRemoveProfessionalWritesEventWithRemoval(t *testing.T) {
	svc, store, clk := newService(t)
	ctx := context.Background()

	prof := model.Professional{Base: model.Base{ID: uuid.New()}, Status: model.ProfessionalStatusActive}
	store.AddProfessional(prof)

	// a standalone outbox write would be lost here
	store.FailNext("outbox.Create", errors.New("connection reset"))
	require.NoError(t, svc.RemoveProfessional(ctx, prof.ID))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventProfessionalRemoved, events[0].EventType)
	assert.Equal(t, prof.ID, events[0].AggregateID)
	assert.Equal(t, clk.Now(), events[0].CreatedAt)
}

func TestRemoveProfessionalFailureLeavesNoEvent(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	prof := model.Professional{Base: model.Base{ID: uuid.New()}, Status: model.ProfessionalStatusActive}
	store.AddProfessional(prof)
	store.FailNext("professionals.SoftDelete", errors.New("connection reset"))

	err := svc.RemoveProfessional(ctx, prof.ID)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Empty(t, store.Events())

	got, err := svc.Professional(ctx, prof.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())
}
