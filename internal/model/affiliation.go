package model

import (
	"time"

	"github.com/google/uuid"
)

type AffiliationStatus string

const (
	AffiliationStatusActive   AffiliationStatus = "active"
	AffiliationStatusInactive AffiliationStatus = "inactive"
)

// AffiliationKey is the composite identity of an Affiliation.
type AffiliationKey struct {
	PersonID     uuid.UUID `db:"person_id" json:"person_id"`
	ClaustroID   uuid.UUID `db:"claustro_id" json:"claustro_id"`
	DependencyID uuid.UUID `db:"dependency_id" json:"dependency_id"`
	AreaID       uuid.UUID `db:"area_id" json:"area_id"`
}

// Affiliation records that a person belongs to a claustro within a valid
// dependency/area pair.
type Affiliation struct {
	AffiliationKey
	EnrollmentDate   time.Time         `db:"enrollment_date" json:"enrollment_date"`
	ResolutionNumber *string           `db:"resolution_number" json:"resolution_number,omitempty"`
	FileNumber       *string           `db:"file_number" json:"file_number,omitempty"`
	Status           AffiliationStatus `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// AffiliationEntry is one proposed affiliation inside a submitted batch.
type AffiliationEntry struct {
	ClaustroID       uuid.UUID         `json:"claustro_id" validate:"required"`
	DependencyID     uuid.UUID         `json:"dependency_id" validate:"required"`
	AreaID           uuid.UUID         `json:"area_id" validate:"required"`
	EnrollmentDate   time.Time         `json:"enrollment_date" validate:"required"`
	ResolutionNumber *string           `json:"resolution_number,omitempty" validate:"omitempty,max=64"`
	FileNumber       *string           `json:"file_number,omitempty" validate:"omitempty,max=64"`
	Status           AffiliationStatus `json:"status" validate:"required,oneof=active inactive"`
}

// ToAffiliation binds the entry to a person.
func (e AffiliationEntry) ToAffiliation(personID uuid.UUID) *Affiliation {
	return &Affiliation{
		AffiliationKey: AffiliationKey{
			PersonID:     personID,
			ClaustroID:   e.ClaustroID,
			DependencyID: e.DependencyID,
			AreaID:       e.AreaID,
		},
		EnrollmentDate:   e.EnrollmentDate,
		ResolutionNumber: e.ResolutionNumber,
		FileNumber:       e.FileNumber,
		Status:           e.Status,
	}
}

type SubmitAffiliationsRequest struct {
	Entries []AffiliationEntry `json:"entries"`
}

type AffiliationStatusRequest struct {
	ClaustroID   uuid.UUID         `json:"claustro_id" validate:"required"`
	DependencyID uuid.UUID         `json:"dependency_id" validate:"required"`
	AreaID       uuid.UUID         `json:"area_id" validate:"required"`
	Status       AffiliationStatus `json:"status" validate:"required,oneof=active inactive"`
}
