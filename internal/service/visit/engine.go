package visit

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
)

var (
	ErrTerminalState       = errors.New("visit is in a terminal state")
	ErrOutsideAvailability = errors.New("scheduled time is outside the professional's declared availability")
	ErrInvalidTimeOrder    = errors.New("visit start time must be before its end time")
	// ErrInvalidTransition is an event that does not apply to the current
	// non-terminal state, e.g. completing a visit that never began.
	ErrInvalidTransition = errors.New("transition not allowed from the current state")
)

type Action string

const (
	ActionBegin    Action = "begin"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Engine applies lifecycle events to a visit. It never touches storage; the
// caller persists the returned transition together with the visit.
type Engine struct {
	logger *logger.Logger
}

func NewEngine(logger *logger.Logger) *Engine {
	return &Engine{logger: logger}
}

// New returns a visit in Waiting that arrived at now.
func (e *Engine) New(req *model.CreateVisitRequest, now time.Time, location *time.Location) (*model.Visit, *model.VisitTransition) {
	local := now.In(location)
	v := &model.Visit{
		ID:             uuid.New(),
		PersonID:       req.PersonID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		VisitTypeID:    req.VisitTypeID,
		Status:         model.VisitStatusWaiting,
		Date:           time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location),
		ScheduledFor:   req.ScheduledFor,
		ArrivalTime:    now,
		Reason:         req.Reason,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return v, newTransition(v.ID, nil, model.VisitStatusWaiting, now)
}

// Apply runs action against v at now. On failure v is left untouched.
func (e *Engine) Apply(v *model.Visit, action Action, now time.Time) (*model.VisitTransition, error) {
	if v.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	from := v.Status
	next := *v
	switch action {
	case ActionBegin:
		if from != model.VisitStatusWaiting {
			return nil, ErrInvalidTransition
		}
		start := now
		next.StartTime = &start
		next.Status = model.VisitStatusInProgress
		if start.Before(v.ArrivalTime) {
			e.logger.Warn("Visit started before its recorded arrival",
				"visit_id", v.ID.String(),
				"arrival_time", v.ArrivalTime.Format(time.RFC3339),
				"start_time", start.Format(time.RFC3339))
		}
	case ActionComplete:
		if from != model.VisitStatusInProgress || v.StartTime == nil {
			return nil, ErrInvalidTransition
		}
		if !v.StartTime.Before(now) {
			return nil, ErrInvalidTimeOrder
		}
		end := now
		next.EndTime = &end
		next.Status = model.VisitStatusCompleted
	case ActionCancel:
		next.StartTime = nil
		next.EndTime = nil
		next.Status = model.VisitStatusCancelled
	default:
		return nil, ErrInvalidTransition
	}

	next.UpdatedAt = now
	*v = next
	return newTransition(v.ID, &from, v.Status, now), nil
}

// EditClinical applies the non-nil fields of req. Terminal visits are
// read-only.
func (e *Engine) EditClinical(v *model.Visit, req *model.UpdateClinicalRequest, now time.Time) error {
	if v.Status.IsTerminal() {
		return ErrTerminalState
	}
	if req.Reason != nil {
		v.Reason = req.Reason
	}
	if req.Diagnosis != nil {
		v.Diagnosis = req.Diagnosis
	}
	if req.Notes != nil {
		v.Notes = req.Notes
	}
	v.UpdatedAt = now
	return nil
}

// CanRecordAttribute allows measurements up to and after completion, but not
// on a cancelled visit.
func (e *Engine) CanRecordAttribute(v *model.Visit) error {
	if v.Status == model.VisitStatusCancelled {
		return ErrTerminalState
	}
	return nil
}

func newTransition(visitID uuid.UUID, from *model.VisitStatus, to model.VisitStatus, at time.Time) *model.VisitTransition {
	return &model.VisitTransition{
		ID:         uuid.New(),
		VisitID:    visitID,
		FromStatus: from,
		ToStatus:   to,
		OccurredAt: at,
	}
}
