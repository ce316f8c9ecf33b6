package model

import (
	"time"

	"github.com/google/uuid"
)

// Person is a unique human identity. Rows are soft-deleted only so visits
// keep resolving their patient.
type Person struct {
	Base
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
}

type ProfessionalStatus string

const (
	ProfessionalStatusActive   ProfessionalStatus = "active"
	ProfessionalStatusInactive ProfessionalStatus = "inactive"
)

// Professional is the clinical role held by a Person.
type Professional struct {
	Base
	PersonID    uuid.UUID          `db:"person_id" json:"person_id"`
	SpecialtyID uuid.UUID          `db:"specialty_id" json:"specialty_id"`
	LicenseCode string             `db:"license_code" json:"license_code"`
	Status      ProfessionalStatus `db:"status" json:"status"`
}

func (p *Professional) IsActive() bool {
	return p.Status == ProfessionalStatusActive && !p.IsDeleted()
}
