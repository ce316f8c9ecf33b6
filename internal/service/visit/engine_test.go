package visit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
)

var arrival = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func newVisit(t *testing.T) (*Engine, *model.Visit) {
	t.Helper()
	e := NewEngine(logger.Nop())
	v, tr := e.New(&model.CreateVisitRequest{
		PersonID:       uuid.New(),
		ProfessionalID: uuid.New(),
		ServiceID:      uuid.New(),
		VisitTypeID:    uuid.New(),
	}, arrival, time.UTC)
	require.Nil(t, tr.FromStatus)
	return e, v
}

func TestNewVisitIsWaiting(t *testing.T) {
	_, v := newVisit(t)
	assert.Equal(t, model.VisitStatusWaiting, v.Status)
	assert.Nil(t, v.StartTime)
	assert.Nil(t, v.EndTime)
	assert.Equal(t, arrival, v.ArrivalTime)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), v.Date)
}

func TestEngineTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		setup   []Action
		action  Action
		wantErr error
		want    model.VisitStatus
	}{
		{"begin from waiting", nil, ActionBegin, nil, model.VisitStatusInProgress},
		{"cancel from waiting", nil, ActionCancel, nil, model.VisitStatusCancelled},
		{"complete from waiting", nil, ActionComplete, ErrInvalidTransition, model.VisitStatusWaiting},
		{"begin twice", []Action{ActionBegin}, ActionBegin, ErrInvalidTransition, model.VisitStatusInProgress},
		{"cancel from in progress", []Action{ActionBegin}, ActionCancel, nil, model.VisitStatusCancelled},
		{"complete twice", []Action{ActionBegin, ActionComplete}, ActionComplete, ErrTerminalState, model.VisitStatusCompleted},
		{"cancel completed", []Action{ActionBegin, ActionComplete}, ActionCancel, ErrTerminalState, model.VisitStatusCompleted},
		{"begin cancelled", []Action{ActionCancel}, ActionBegin, ErrTerminalState, model.VisitStatusCancelled},
		{"cancel cancelled", []Action{ActionCancel}, ActionCancel, ErrTerminalState, model.VisitStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, v := newVisit(t)
			now := arrival
			for _, a := range tc.setup {
				now = now.Add(5 * time.Minute)
				_, err := e.Apply(v, a, now)
				require.NoError(t, err)
			}
			now = now.Add(5 * time.Minute)
			_, err := e.Apply(v, tc.action, now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, v.Status)
		})
	}
}

func TestCompleteRequiresStrictOrder(t *testing.T) {
	e, v := newVisit(t)
	begin := arrival.Add(10 * time.Minute)

	_, err := e.Apply(v, ActionBegin, begin)
	require.NoError(t, err)
	require.NotNil(t, v.StartTime)
	assert.Equal(t, begin, *v.StartTime)

	_, err = e.Apply(v, ActionComplete, begin)
	assert.ErrorIs(t, err, ErrInvalidTimeOrder)
	assert.Equal(t, model.VisitStatusInProgress, v.Status)
	assert.Nil(t, v.EndTime, "failed transition leaves the visit untouched")

	tr, err := e.Apply(v, ActionComplete, begin.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusCompleted, v.Status)
	assert.True(t, v.StartTime.Before(*v.EndTime))
	assert.Equal(t, model.VisitStatusInProgress, *tr.FromStatus)
	assert.Equal(t, model.VisitStatusCompleted, tr.ToStatus)
}

func TestCancelClearsTimes(t *testing.T) {
	e, v := newVisit(t)
	_, err := e.Apply(v, ActionBegin, arrival.Add(time.Minute))
	require.NoError(t, err)

	_, err = e.Apply(v, ActionCancel, arrival.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, v.StartTime)
	assert.Nil(t, v.EndTime)
}

func TestBeginBeforeArrivalIsAdvisory(t *testing.T) {
	e, v := newVisit(t)
	_, err := e.Apply(v, ActionBegin, arrival.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusInProgress, v.Status)
}

func TestEditClinical(t *testing.T) {
	e, v := newVisit(t)
	diagnosis := "J06.9"
	require.NoError(t, e.EditClinical(v, &model.UpdateClinicalRequest{Diagnosis: &diagnosis}, arrival))
	assert.Equal(t, &diagnosis, v.Diagnosis)
	assert.Equal(t, model.VisitStatusWaiting, v.Status)

	_, err := e.Apply(v, ActionCancel, arrival.Add(time.Minute))
	require.NoError(t, err)
	notes := "late note"
	assert.ErrorIs(t, e.EditClinical(v, &model.UpdateClinicalRequest{Notes: &notes}, arrival), ErrTerminalState)
	assert.ErrorIs(t, e.CanRecordAttribute(v), ErrTerminalState)
}
