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

type affiliationRepository struct {
	BaseRepository
}

func NewAffiliationRepository(db *sqlx.DB) repository.AffiliationRepository {
	return &affiliationRepository{NewBaseRepository(db)}
}

func (r *affiliationRepository) CreateBatch(ctx context.Context, affiliations []*model.Affiliation, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO affiliations (
				person_id, claustro_id, dependency_id, area_id, enrollment_date,
				resolution_number, file_number, status, created_at, updated_at
			) VALUES (
				:person_id, :claustro_id, :dependency_id, :area_id, :enrollment_date,
				:resolution_number, :file_number, :status, :created_at, :updated_at
			)
		`
		for _, a := range affiliations {
			if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
				return fmt.Errorf("failed to create affiliation: %w", mapError(err))
			}
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *affiliationRepository) ListByPerson(ctx context.Context, personID uuid.UUID) ([]*model.Affiliation, error) {
	affiliations := []*model.Affiliation{}
	query := `
		SELECT person_id, claustro_id, dependency_id, area_id, enrollment_date,
			resolution_number, file_number, status, created_at, updated_at
		FROM affiliations
		WHERE person_id = $1
		ORDER BY enrollment_date, created_at
	`
	if err := r.db.SelectContext(ctx, &affiliations, query, personID); err != nil {
		return nil, fmt.Errorf("failed to list affiliations: %w", err)
	}
	return affiliations, nil
}

func (r *affiliationRepository) UpdateStatus(ctx context.Context, key model.AffiliationKey, status model.AffiliationStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE affiliations
		SET status = $1, updated_at = $2
		WHERE person_id = $3 AND claustro_id = $4 AND dependency_id = $5 AND area_id = $6
	`, status, at, key.PersonID, key.ClaustroID, key.DependencyID, key.AreaID)
	if err != nil {
		return fmt.Errorf("failed to update affiliation status: %w", mapError(err))
	}
	return expectOne(res)
}

func (r *affiliationRepository) Delete(ctx context.Context, key model.AffiliationKey) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM affiliations
		WHERE person_id = $1 AND claustro_id = $2 AND dependency_id = $3 AND area_id = $4
	`, key.PersonID, key.ClaustroID, key.DependencyID, key.AreaID)
	if err != nil {
		return fmt.Errorf("failed to delete affiliation: %w", err)
	}
	return expectOne(res)
}
