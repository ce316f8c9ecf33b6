package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a recurring weekly window [StartTime, EndTime) in which
// a professional accepts visits.
type AvailabilitySlot struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Weekday        Weekday   `db:"weekday" json:"weekday"`
	StartTime      TimeOfDay `db:"start_minute" json:"start_time"`
	EndTime        TimeOfDay `db:"end_minute" json:"end_time"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Overlaps uses half-open intersection, so touching windows do not overlap.
func (s *AvailabilitySlot) Overlaps(start, end TimeOfDay) bool {
	return s.StartTime < end && start < s.EndTime
}

func (s *AvailabilitySlot) Contains(t TimeOfDay) bool {
	return s.StartTime <= t && t < s.EndTime
}

type CreateSlotRequest struct {
	Weekday   Weekday   `json:"weekday" validate:"required,min=1,max=7"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}
