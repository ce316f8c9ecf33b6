package model

import (
	"time"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusWaiting    VisitStatus = "waiting"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s VisitStatus) IsTerminal() bool {
	return s == VisitStatusCompleted || s == VisitStatusCancelled
}

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusWaiting, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled:
		return true
	}
	return false
}

// Visit is one clinical encounter. It is never deleted; Version guards
// concurrent transitions.
type Visit struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PersonID       uuid.UUID   `db:"person_id" json:"person_id"`
	ProfessionalID uuid.UUID   `db:"professional_id" json:"professional_id"`
	ServiceID      uuid.UUID   `db:"service_id" json:"service_id"`
	VisitTypeID    uuid.UUID   `db:"visit_type_id" json:"visit_type_id"`
	Status         VisitStatus `db:"status" json:"status"`
	Date           time.Time   `db:"visit_date" json:"date"`
	ScheduledFor   *time.Time  `db:"scheduled_for" json:"scheduled_for,omitempty"`
	ArrivalTime    time.Time   `db:"arrival_time" json:"arrival_time"`
	StartTime      *time.Time  `db:"start_time" json:"start_time,omitempty"`
	EndTime        *time.Time  `db:"end_time" json:"end_time,omitempty"`
	Reason         *string     `db:"reason" json:"reason,omitempty"`
	Diagnosis      *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes          *string     `db:"notes" json:"notes,omitempty"`
	Version        int         `db:"version" json:"version"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

type CreateVisitRequest struct {
	PersonID       uuid.UUID  `json:"person_id" validate:"required"`
	ProfessionalID uuid.UUID  `json:"professional_id" validate:"required"`
	ServiceID      uuid.UUID  `json:"service_id" validate:"required"`
	VisitTypeID    uuid.UUID  `json:"visit_type_id" validate:"required"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	Reason         *string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// UpdateClinicalRequest carries the clinical fields editable while the visit
// is not terminal. Nil fields are left unchanged.
type UpdateClinicalRequest struct {
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
	Diagnosis *string `json:"diagnosis" validate:"omitempty,max=2000"`
	Notes     *string `json:"notes" validate:"omitempty,max=4000"`
}

type VisitFilters struct {
	PersonID       uuid.UUID
	ProfessionalID uuid.UUID
	Status         VisitStatus
	From           time.Time
	To             time.Time
	Pagination
}

// VisitAttribute is the value recorded for one vocabulary attribute on one
// visit. (VisitID, AttributeID) is its identity.
type VisitAttribute struct {
	VisitID     uuid.UUID `db:"visit_id" json:"visit_id"`
	AttributeID uuid.UUID `db:"attribute_id" json:"attribute_id"`
	Value       string    `db:"value" json:"value"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}

// VisitTransition is one entry of a visit's status history.
type VisitTransition struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	VisitID    uuid.UUID    `db:"visit_id" json:"visit_id"`
	FromStatus *VisitStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus   VisitStatus  `db:"to_status" json:"to_status"`
	OccurredAt time.Time    `db:"occurred_at" json:"occurred_at"`
}

type RecordAttributeRequest struct {
	Value string `json:"value" validate:"required,max=255"`
}
