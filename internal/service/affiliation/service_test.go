package affiliation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/memory"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/identity"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
)

type serviceFixture struct {
	*catalogFixture
	svc      *Service
	store    *memory.Store
	metrics  *metrics.Metrics
	personID uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := newCatalogFixture()
	store := memory.NewStore()
	for name, id := range f.claustros {
		store.AddClaustro(model.Claustro{ID: id, Name: name})
	}
	for _, area := range f.areas {
		store.AddDependencyArea(model.DependencyArea{DependencyID: f.dependency, AreaID: area})
	}
	personID := uuid.New()
	store.AddPerson(model.Person{Base: model.Base{ID: personID}, FirstName: "Marta"})

	clk := clock.NewFixed(testNow)
	events := event.NewEventService(store.Outbox(), clk)
	people := identity.NewService(store.Persons(), store.Professionals(), events, clk, logger.Nop())
	m := metrics.NewForTest()

	svc := NewService(
		newEngine(),
		store.Affiliations(),
		catalog.NewService(store.Catalog(), time.Minute),
		people,
		events,
		clk,
		m,
		logger.Nop(),
	)
	return &serviceFixture{catalogFixture: f, svc: svc, store: store, metrics: m, personID: personID}
}

func TestSubmitBatchStoresAllEntries(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stored, err := f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{
		f.entry("Docente", 0), f.entry("No Docente", 1),
	})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	listed, err := f.svc.List(ctx, f.personID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAffiliationsStored, events[0].EventType)
	assert.Equal(t, f.personID, events[0].AggregateID)
}

func TestSubmitBatchRejectedStoresNothing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{
		f.entry("Externo", 0), f.entry("Docente", 1),
	})
	assert.ErrorIs(t, err, ErrExternalClaustroCombined)

	listed, err := f.svc.List(ctx, f.personID)
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Empty(t, f.store.Events())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.EligibilityRejection.WithLabelValues("external_claustro_combined")))
}

func TestSubmitBatchDuplicateOfPersistedIsConflict(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{f.entry("Docente", 0)})
	require.NoError(t, err)

	_, err = f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{f.entry("Docente", 0), f.entry("Estudiante", 1)})
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	listed, err := f.svc.List(ctx, f.personID)
	require.NoError(t, err)
	assert.Len(t, listed, 1, "second batch left no partial rows")
}

func TestSubmitBatchIsBatchLocal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{f.entry("Externo", 0)})
	require.NoError(t, err)

	_, err = f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{f.entry("Docente", 1)})
	assert.NoError(t, err, "earlier batches do not constrain later ones")
}

func TestSubmitBatchUnknownPerson(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.SubmitBatch(context.Background(), uuid.New(), []model.AffiliationEntry{f.entry("Docente", 0)})
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestSetStatusAndRemove(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	e := f.entry("Docente", 0)
	_, err := f.svc.SubmitBatch(ctx, f.personID, []model.AffiliationEntry{e})
	require.NoError(t, err)

	req := &model.AffiliationStatusRequest{
		ClaustroID: e.ClaustroID, DependencyID: e.DependencyID, AreaID: e.AreaID,
		Status: model.AffiliationStatusInactive,
	}
	require.NoError(t, f.svc.SetStatus(ctx, f.personID, req))

	listed, err := f.svc.List(ctx, f.personID)
	require.NoError(t, err)
	assert.Equal(t, model.AffiliationStatusInactive, listed[0].Status)

	req.Status = "archived"
	err = f.svc.SetStatus(ctx, f.personID, req)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	key := listed[0].AffiliationKey
	require.NoError(t, f.svc.Remove(ctx, key))
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(f.svc.Remove(ctx, key)))
}
