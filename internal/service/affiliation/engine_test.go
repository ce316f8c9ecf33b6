package affiliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
)

type catalogFixture struct {
	snap       *catalog.Snapshot
	claustros  map[string]uuid.UUID
	dependency uuid.UUID
	areas      []uuid.UUID
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		claustros:  map[string]uuid.UUID{},
		dependency: uuid.New(),
		areas:      []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
	}
	var claustros []*model.Claustro
	for _, name := range []string{"No Docente", "Externo", "Docente", "Estudiante"} {
		id := uuid.New()
		f.claustros[name] = id
		claustros = append(claustros, &model.Claustro{ID: id, Name: name})
	}
	var pairs []*model.DependencyArea
	for _, area := range f.areas {
		pairs = append(pairs, &model.DependencyArea{DependencyID: f.dependency, AreaID: area})
	}
	f.snap = catalog.NewSnapshot(claustros, pairs, nil)
	return f
}

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// entry builds a valid entry for claustro in the i-th area.
func (f *catalogFixture) entry(claustro string, area int) model.AffiliationEntry {
	return model.AffiliationEntry{
		ClaustroID:     f.claustros[claustro],
		DependencyID:   f.dependency,
		AreaID:         f.areas[area],
		EnrollmentDate: testNow.AddDate(-1, 0, 0),
		Status:         model.AffiliationStatusActive,
	}
}

func newEngine() *Engine {
	return NewEngine(Rules{StaffClaustro: "No Docente", ExternalClaustro: "Externo"}, time.UTC)
}

func TestEngineBatchRules(t *testing.T) {
	f := newCatalogFixture()
	engine := newEngine()

	tests := []struct {
		name    string
		entries []model.AffiliationEntry
		wantErr error
	}{
		{
			name:    "two staff claustros",
			entries: []model.AffiliationEntry{f.entry("No Docente", 0), f.entry("No Docente", 1)},
			wantErr: ErrMultipleStaffClaustro,
		},
		{
			name:    "external combined",
			entries: []model.AffiliationEntry{f.entry("Externo", 0), f.entry("Docente", 1)},
			wantErr: ErrExternalClaustroCombined,
		},
		{
			name:    "external alone",
			entries: []model.AffiliationEntry{f.entry("Externo", 0)},
		},
		{
			name:    "no staff no external",
			entries: []model.AffiliationEntry{f.entry("Docente", 0), f.entry("Estudiante", 1)},
		},
		{
			name:    "single staff with others",
			entries: []model.AffiliationEntry{f.entry("No Docente", 0), f.entry("Docente", 1)},
		},
		{
			name: "staff rule checked before external rule",
			entries: []model.AffiliationEntry{
				f.entry("No Docente", 0), f.entry("No Docente", 1), f.entry("Externo", 2),
			},
			wantErr: ErrMultipleStaffClaustro,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateBatch(tt.entries, f.snap, testNow)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperrors.ErrBusinessRule, apperrors.CodeOf(err))
			assert.False(t, apperrors.IsRetryable(err))
		})
	}
}

func TestEngineClaustroNamesAreCaseInsensitive(t *testing.T) {
	f := newCatalogFixture()
	engine := NewEngine(Rules{StaffClaustro: " no docente ", ExternalClaustro: "EXTERNO"}, time.UTC)

	err := engine.ValidateBatch([]model.AffiliationEntry{f.entry("Externo", 0), f.entry("Docente", 1)}, f.snap, testNow)
	assert.ErrorIs(t, err, ErrExternalClaustroCombined)
}

func TestEngineReportsAllFieldErrors(t *testing.T) {
	f := newCatalogFixture()
	engine := newEngine()

	unknownClaustro := f.entry("Docente", 0)
	unknownClaustro.ClaustroID = uuid.New()

	badPair := f.entry("Docente", 1)
	badPair.DependencyID = uuid.New()

	future := f.entry("Estudiante", 2)
	future.EnrollmentDate = testNow.AddDate(0, 0, 1)

	badStatus := f.entry("Docente", 2)
	badStatus.Status = "suspended"

	entries := []model.AffiliationEntry{
		unknownClaustro, badPair, future, badStatus,
		// these two would break rule A, but field errors win
		f.entry("No Docente", 0), f.entry("No Docente", 0),
	}

	err := engine.ValidateBatch(entries, f.snap, testNow)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = fe.Message
	}
	assert.Contains(t, fields, "entries[0].claustro_id")
	assert.Contains(t, fields, "entries[1].area_id")
	assert.Contains(t, fields, "entries[2].enrollment_date")
	assert.Contains(t, fields, "entries[3].status")
	assert.Equal(t, "duplicates entries[4]", fields["entries[5]"])
	assert.NotErrorIs(t, err, ErrMultipleStaffClaustro)
}

func TestEngineEmptyAndMissingFields(t *testing.T) {
	f := newCatalogFixture()
	engine := newEngine()

	err := engine.ValidateBatch(nil, f.snap, testNow)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "entries", verr.Fields[0].Field)

	err = engine.ValidateBatch([]model.AffiliationEntry{{}}, f.snap, testNow)
	require.ErrorAs(t, err, &verr)
	names := make([]string, 0, len(verr.Fields))
	for _, fe := range verr.Fields {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"entries[0].claustro_id",
		"entries[0].dependency_id",
		"entries[0].area_id",
		"entries[0].enrollment_date",
		"entries[0].status",
	}, names)
}

func TestEngineEnrollmentTodayIsAccepted(t *testing.T) {
	f := newCatalogFixture()
	engine := newEngine()

	e := f.entry("Docente", 0)
	e.EnrollmentDate = time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC)
	assert.NoError(t, engine.ValidateBatch([]model.AffiliationEntry{e}, f.snap, testNow))
}
