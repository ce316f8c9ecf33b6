package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

var visitColumns = []interface{}{
	"id", "person_id", "professional_id", "service_id", "visit_type_id",
	"status", "visit_date", "scheduled_for", "arrival_time", "start_time",
	"end_time", "reason", "diagnosis", "notes", "version", "created_at", "updated_at",
}

type visitRepository struct {
	BaseRepository
	dialect goqu.DialectWrapper
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{
		BaseRepository: NewBaseRepository(db),
		dialect:        goqu.Dialect("postgres"),
	}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO visits (
				id, person_id, professional_id, service_id, visit_type_id,
				status, visit_date, scheduled_for, arrival_time, start_time,
				end_time, reason, diagnosis, notes, version, created_at, updated_at
			) VALUES (
				:id, :person_id, :professional_id, :service_id, :visit_type_id,
				:status, :visit_date, :scheduled_for, :arrival_time, :start_time,
				:end_time, :reason, :diagnosis, :notes, :version, :created_at, :updated_at
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, visit); err != nil {
			return fmt.Errorf("failed to create visit: %w", mapError(err))
		}
		if err := insertTransition(ctx, tx, transition); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query, args, err := r.dialect.From("visits").
		Prepared(true).
		Select(visitColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build visit query: %w", err)
	}

	var visit model.Visit
	if err := r.db.GetContext(ctx, &visit, query, args...); err != nil {
		return nil, mapError(err)
	}
	return &visit, nil
}

func (r *visitRepository) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	ds := r.dialect.From("visits").
		Prepared(true).
		Select(visitColumns...)

	if filters.PersonID != uuid.Nil {
		ds = ds.Where(goqu.Ex{"person_id": filters.PersonID})
	}
	if filters.ProfessionalID != uuid.Nil {
		ds = ds.Where(goqu.Ex{"professional_id": filters.ProfessionalID})
	}
	if filters.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filters.Status)})
	}
	if !filters.From.IsZero() {
		ds = ds.Where(goqu.C("visit_date").Gte(filters.From))
	}
	if !filters.To.IsZero() {
		ds = ds.Where(goqu.C("visit_date").Lte(filters.To))
	}

	ds = ds.Order(goqu.I("visit_date").Asc(), goqu.I("arrival_time").Asc()).
		Limit(uint(filters.Limit())).
		Offset(uint(filters.Offset()))

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build visit list query: %w", err)
	}

	visits := []*model.Visit{}
	if err := r.db.SelectContext(ctx, &visits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit, transition *model.VisitTransition, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE visits
			SET status = $1, start_time = $2, end_time = $3,
				reason = $4, diagnosis = $5, notes = $6,
				version = version + 1, updated_at = $7
			WHERE id = $8 AND version = $9
		`,
			visit.Status, visit.StartTime, visit.EndTime,
			visit.Reason, visit.Diagnosis, visit.Notes,
			visit.UpdatedAt, visit.ID, visit.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update visit: %w", mapError(err))
		}
		if err := expectOne(res); err != nil {
			return repository.ErrVersionConflict
		}
		visit.Version++

		if err := insertTransition(ctx, tx, transition); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *visitRepository) UpsertAttribute(ctx context.Context, attr *model.VisitAttribute) error {
	query := `
		INSERT INTO visit_attributes (visit_id, attribute_id, value, recorded_at)
		VALUES (:visit_id, :attribute_id, :value, :recorded_at)
		ON CONFLICT (visit_id, attribute_id)
		DO UPDATE SET value = EXCLUDED.value, recorded_at = EXCLUDED.recorded_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, attr); err != nil {
		return fmt.Errorf("failed to record visit attribute: %w", mapError(err))
	}
	return nil
}

func (r *visitRepository) ListAttributes(ctx context.Context, visitID uuid.UUID) ([]*model.VisitAttribute, error) {
	attrs := []*model.VisitAttribute{}
	query := `
		SELECT visit_id, attribute_id, value, recorded_at
		FROM visit_attributes
		WHERE visit_id = $1
		ORDER BY recorded_at
	`
	if err := r.db.SelectContext(ctx, &attrs, query, visitID); err != nil {
		return nil, fmt.Errorf("failed to list visit attributes: %w", err)
	}
	return attrs, nil
}

func (r *visitRepository) ListHistory(ctx context.Context, visitID uuid.UUID) ([]*model.VisitTransition, error) {
	history := []*model.VisitTransition{}
	query := `
		SELECT id, visit_id, from_status, to_status, occurred_at
		FROM visit_transitions
		WHERE visit_id = $1
		ORDER BY occurred_at, id
	`
	if err := r.db.SelectContext(ctx, &history, query, visitID); err != nil {
		return nil, fmt.Errorf("failed to list visit history: %w", err)
	}
	return history, nil
}

func insertTransition(ctx context.Context, tx *sqlx.Tx, transition *model.VisitTransition) error {
	if transition == nil {
		return nil
	}
	query := `
		INSERT INTO visit_transitions (id, visit_id, from_status, to_status, occurred_at)
		VALUES (:id, :visit_id, :from_status, :to_status, :occurred_at)
	`
	if _, err := tx.NamedExecContext(ctx, query, transition); err != nil {
		return fmt.Errorf("failed to record visit transition: %w", mapError(err))
	}
	return nil
}
