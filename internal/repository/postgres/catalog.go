package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
)

type catalogRepository struct {
	BaseRepository
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{NewBaseRepository(db)}
}

func (r *catalogRepository) ListClaustros(ctx context.Context) ([]*model.Claustro, error) {
	claustros := []*model.Claustro{}
	if err := r.db.SelectContext(ctx, &claustros, `SELECT id, name FROM claustros ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list claustros: %w", err)
	}
	return claustros, nil
}

func (r *catalogRepository) ListDependencyAreas(ctx context.Context) ([]*model.DependencyArea, error) {
	pairs := []*model.DependencyArea{}
	query := `
		SELECT da.dependency_id, da.area_id, d.name AS dependency_name, a.name AS area_name
		FROM dependency_areas da
		JOIN dependencies d ON d.id = da.dependency_id
		JOIN areas a ON a.id = da.area_id
		ORDER BY d.name, a.name
	`
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("failed to list dependency areas: %w", err)
	}
	return pairs, nil
}

func (r *catalogRepository) CreateDependencyArea(ctx context.Context, pair *model.DependencyArea) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dependency_areas (dependency_id, area_id) VALUES ($1, $2)`,
		pair.DependencyID, pair.AreaID,
	)
	if err != nil {
		return fmt.Errorf("failed to create dependency area: %w", mapError(err))
	}
	return nil
}

func (r *catalogRepository) ListAttributes(ctx context.Context) ([]*model.Attribute, error) {
	attrs := []*model.Attribute{}
	if err := r.db.SelectContext(ctx, &attrs, `SELECT id, name, unit FROM attributes ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	return attrs, nil
}
