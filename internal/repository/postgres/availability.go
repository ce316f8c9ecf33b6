package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{NewBaseRepository(db)}
}

const slotColumns = `id, professional_id, weekday, start_minute, end_minute, created_at`

// Create relies on the slots_no_overlap exclusion constraint as the last
// line against overlapping windows. The owning professional row is share
// locked so a concurrent removal either sees this slot or blocks the insert.
func (r *availabilityRepository) Create(ctx context.Context, slot *model.AvailabilitySlot, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var owner uuid.UUID
		if err := tx.GetContext(ctx, &owner, `
			SELECT id FROM professionals
			WHERE id = $1 AND deleted_at IS NULL
			FOR SHARE
		`, slot.ProfessionalID); err != nil {
			return fmt.Errorf("failed to lock professional: %w", mapError(err))
		}

		query := `
			INSERT INTO availability_slots (
				id, professional_id, weekday, start_minute, end_minute, created_at
			) VALUES (
				:id, :professional_id, :weekday, :start_minute, :end_minute, :created_at
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, slot); err != nil {
			return fmt.Errorf("failed to create slot: %w", mapError(err))
		}
		return insertOutbox(ctx, tx, event)
	})
}

func (r *availabilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, mapError(err)
	}
	return &slot, nil
}

func (r *availabilityRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	slots := []*model.AvailabilitySlot{}
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE professional_id = $1
		ORDER BY weekday, start_minute
	`
	if err := r.db.SelectContext(ctx, &slots, query, professionalID); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *availabilityRepository) ListByWeekday(ctx context.Context, professionalID uuid.UUID, weekday model.Weekday) ([]*model.AvailabilitySlot, error) {
	slots := []*model.AvailabilitySlot{}
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE professional_id = $1 AND weekday = $2
		ORDER BY start_minute
	`
	if err := r.db.SelectContext(ctx, &slots, query, professionalID, weekday); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *availabilityRepository) Delete(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete slot: %w", err)
		}
		if err := expectOne(res); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, event)
	})
}
