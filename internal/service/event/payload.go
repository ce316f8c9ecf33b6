package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
)

type VisitPayload struct {
	VisitID        uuid.UUID          `json:"visit_id"`
	PersonID       uuid.UUID          `json:"person_id"`
	ProfessionalID uuid.UUID          `json:"professional_id"`
	From           *model.VisitStatus `json:"from,omitempty"`
	To             model.VisitStatus  `json:"to"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

type SlotPayload struct {
	SlotID         uuid.UUID       `json:"slot_id"`
	ProfessionalID uuid.UUID       `json:"professional_id"`
	Weekday        model.Weekday   `json:"weekday"`
	StartTime      model.TimeOfDay `json:"start_time"`
	EndTime        model.TimeOfDay `json:"end_time"`
}

type AffiliationsPayload struct {
	PersonID  uuid.UUID   `json:"person_id"`
	Claustros []uuid.UUID `json:"claustros"`
}

type ProfessionalPayload struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	RemovedAt      time.Time `json:"removed_at"`
}

// VisitEventType maps the status a visit moved into to its event type.
func VisitEventType(to model.VisitStatus) string {
	switch to {
	case model.VisitStatusInProgress:
		return model.EventVisitStarted
	case model.VisitStatusCompleted:
		return model.EventVisitCompleted
	case model.VisitStatusCancelled:
		return model.EventVisitCancelled
	default:
		return model.EventVisitCreated
	}
}

func NewSlotPayload(slot *model.AvailabilitySlot) SlotPayload {
	return SlotPayload{
		SlotID:         slot.ID,
		ProfessionalID: slot.ProfessionalID,
		Weekday:        slot.Weekday,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
	}
}
