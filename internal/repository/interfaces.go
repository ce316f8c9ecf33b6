package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
)

// Storage-level sentinels. Implementations wrap driver errors into these so
// services never look at driver codes.
var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is a composite or unique key collision.
	ErrDuplicate = errors.New("record already exists")
	// ErrRangeConflict is raised by the storage guard against overlapping
	// availability windows.
	ErrRangeConflict = errors.New("time range conflicts with an existing record")
	// ErrInvalidReference is a foreign key pointing at a missing row.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// All repository interfaces in one file
type (
	// PersonRepository resolves patient identities, including soft-deleted rows.
	PersonRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Person, error)
	}

	ProfessionalRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Professional, error)
		// SoftDelete marks the professional removed and drops its slots in the
		// same transaction as event.
		SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, event *model.OutboxEvent) error
	}

	AvailabilityRepository interface {
		// Create returns ErrNotFound when the professional is missing or
		// soft-deleted at insert time.
		Create(ctx context.Context, slot *model.AvailabilitySlot, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error)
		// ListByProfessional returns slots ordered by weekday then start time.
		ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*model.AvailabilitySlot, error)
		ListByWeekday(ctx context.Context, professionalID uuid.UUID, weekday model.Weekday) ([]*model.AvailabilitySlot, error)
		Delete(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) error
	}

	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error)
		// Update persists visit only if its stored version still equals
		// visit.Version, then bumps the version. transition and event are
		// optional and written in the same transaction.
		Update(ctx context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error
		UpsertAttribute(ctx context.Context, attr *model.VisitAttribute) error
		ListAttributes(ctx context.Context, visitID uuid.UUID) ([]*model.VisitAttribute, error)
		ListHistory(ctx context.Context, visitID uuid.UUID) ([]*model.VisitTransition, error)
	}

	AffiliationRepository interface {
		// CreateBatch inserts every affiliation or none.
		CreateBatch(ctx context.Context, affiliations []*model.Affiliation, event *model.OutboxEvent) error
		ListByPerson(ctx context.Context, personID uuid.UUID) ([]*model.Affiliation, error)
		UpdateStatus(ctx context.Context, key model.AffiliationKey, status model.AffiliationStatus, at time.Time) error
		Delete(ctx context.Context, key model.AffiliationKey) error
	}

	CatalogRepository interface {
		ListClaustros(ctx context.Context) ([]*model.Claustro, error)
		ListDependencyAreas(ctx context.Context) ([]*model.DependencyArea, error)
		CreateDependencyArea(ctx context.Context, pair *model.DependencyArea) error
		ListAttributes(ctx context.Context) ([]*model.Attribute, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns pending events plus failed ones whose retry
		// time has passed, oldest first.
		GetPendingEvents(ctx context.Context, limit int, now time.Time) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
