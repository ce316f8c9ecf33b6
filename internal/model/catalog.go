package model

import "github.com/google/uuid"

// Claustro is a membership class (faculty, staff, student, external...).
type Claustro struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// DependencyArea is one entry of the catalog of legal (dependency, area)
// combinations.
type DependencyArea struct {
	DependencyID   uuid.UUID `db:"dependency_id" json:"dependency_id" validate:"required"`
	AreaID         uuid.UUID `db:"area_id" json:"area_id" validate:"required"`
	DependencyName string    `db:"dependency_name" json:"dependency_name,omitempty"`
	AreaName       string    `db:"area_name" json:"area_name,omitempty"`
}

// PairKey identifies a DependencyArea.
type PairKey struct {
	DependencyID uuid.UUID
	AreaID       uuid.UUID
}

func (d DependencyArea) Key() PairKey {
	return PairKey{DependencyID: d.DependencyID, AreaID: d.AreaID}
}

// Attribute is a term of the controlled vocabulary of visit measurements.
type Attribute struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Unit *string   `db:"unit" json:"unit,omitempty"`
}
