package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

type personRepository struct {
	BaseRepository
}

func NewPersonRepository(db *sqlx.DB) repository.PersonRepository {
	return &personRepository{NewBaseRepository(db)}
}

// Get returns soft-deleted persons too; callers decide what deleted means.
func (r *personRepository) Get(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	query := `
		SELECT id, first_name, last_name, document_number, birth_date, email, phone,
			created_at, updated_at, deleted_at
		FROM persons
		WHERE id = $1
	`
	var person model.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, mapError(err)
	}
	return &person, nil
}

type professionalRepository struct {
	BaseRepository
}

func NewProfessionalRepository(db *sqlx.DB) repository.ProfessionalRepository {
	return &professionalRepository{NewBaseRepository(db)}
}

func (r *professionalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	query := `
		SELECT id, person_id, specialty_id, license_code, status,
			created_at, updated_at, deleted_at
		FROM professionals
		WHERE id = $1
	`
	var professional model.Professional
	if err := r.db.GetContext(ctx, &professional, query, id); err != nil {
		return nil, mapError(err)
	}
	return &professional, nil
}

func (r *professionalRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE professionals
			SET deleted_at = $1, status = $2, updated_at = $1
			WHERE id = $3 AND deleted_at IS NULL
		`, at, model.ProfessionalStatusInactive, id)
		if err != nil {
			return fmt.Errorf("failed to delete professional: %w", mapError(err))
		}
		if err := expectOne(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE professional_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete professional slots: %w", mapError(err))
		}
		return insertOutbox(ctx, tx, event)
	})
}
