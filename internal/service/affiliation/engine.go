package affiliation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/validator"
)

var (
	// ErrMultipleStaffClaustro: a batch carries the staff claustro more than once.
	ErrMultipleStaffClaustro = errors.New("at most one staff claustro affiliation is allowed per batch")
	// ErrExternalClaustroCombined: the external claustro must be the only entry.
	ErrExternalClaustroCombined = errors.New("the external claustro cannot be combined with other affiliations")
)

// Rules names the claustros the batch-level rules apply to.
type Rules struct {
	StaffClaustro    string
	ExternalClaustro string
}

// Engine validates affiliation batches. It reads nothing but its arguments.
type Engine struct {
	rules     Rules
	validator validator.Validator
	location  *time.Location
}

func NewEngine(rules Rules, location *time.Location) *Engine {
	if location == nil {
		location = time.UTC
	}
	return &Engine{
		rules:     rules,
		validator: validator.New(),
		location:  location,
	}
}

// ValidateBatch checks every entry and reports all field problems together as
// a *errors.ValidationError. Only a batch that passes them is checked against
// the staff rule and then the external rule; each of those stops at the first
// violation.
func (e *Engine) ValidateBatch(entries []model.AffiliationEntry, snap *catalog.Snapshot, now time.Time) error {
	verr := &apperrors.ValidationError{}
	if len(entries) == 0 {
		verr.Add("entries", "must contain at least one affiliation")
		return verr
	}

	today := e.day(now)
	seen := make(map[model.AffiliationKey]int, len(entries))
	claustros := make([]string, len(entries))

	for i, entry := range entries {
		prefix := fmt.Sprintf("entries[%d]", i)
		verr.Merge(prefix, e.validator.ValidateStruct(entry))

		if entry.ClaustroID != uuid.Nil {
			if c, ok := snap.Claustro(entry.ClaustroID); ok {
				claustros[i] = c.Name
			} else {
				verr.Add(prefix+".claustro_id", "unknown claustro")
			}
		}
		if entry.DependencyID != uuid.Nil && entry.AreaID != uuid.Nil &&
			!snap.HasPair(entry.DependencyID, entry.AreaID) {
			verr.Add(prefix+".area_id", "area is not valid for the dependency")
		}
		if !entry.EnrollmentDate.IsZero() && e.day(entry.EnrollmentDate).After(today) {
			verr.Add(prefix+".enrollment_date", "must not be in the future")
		}

		key := model.AffiliationKey{ClaustroID: entry.ClaustroID, DependencyID: entry.DependencyID, AreaID: entry.AreaID}
		if first, dup := seen[key]; dup {
			verr.Add(prefix, fmt.Sprintf("duplicates entries[%d]", first))
		} else {
			seen[key] = i
		}
	}

	if verr.HasErrors() {
		return verr
	}

	staff := 0
	for _, name := range claustros {
		if e.is(name, e.rules.StaffClaustro) {
			staff++
		}
	}
	if staff > 1 {
		return apperrors.NewBusinessRule(ErrMultipleStaffClaustro)
	}

	for _, name := range claustros {
		if e.is(name, e.rules.ExternalClaustro) && len(entries) > 1 {
			return apperrors.NewBusinessRule(ErrExternalClaustroCombined)
		}
	}
	return nil
}

func (e *Engine) is(name, designated string) bool {
	return designated != "" && strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(designated))
}

func (e *Engine) day(t time.Time) time.Time {
	y, m, d := t.In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}
