package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/validator"
)

const snapshotKey = "catalog:snapshot"

// Snapshot is an immutable view of the reference catalogs.
type Snapshot struct {
	claustros  map[uuid.UUID]*model.Claustro
	pairs      map[model.PairKey]*model.DependencyArea
	attributes map[uuid.UUID]*model.Attribute
}

func NewSnapshot(claustros []*model.Claustro, pairs []*model.DependencyArea, attributes []*model.Attribute) *Snapshot {
	s := &Snapshot{
		claustros:  make(map[uuid.UUID]*model.Claustro, len(claustros)),
		pairs:      make(map[model.PairKey]*model.DependencyArea, len(pairs)),
		attributes: make(map[uuid.UUID]*model.Attribute, len(attributes)),
	}
	for _, c := range claustros {
		s.claustros[c.ID] = c
	}
	for _, p := range pairs {
		s.pairs[p.Key()] = p
	}
	for _, a := range attributes {
		s.attributes[a.ID] = a
	}
	return s
}

func (s *Snapshot) Claustro(id uuid.UUID) (*model.Claustro, bool) {
	c, ok := s.claustros[id]
	return c, ok
}

func (s *Snapshot) HasPair(dependencyID, areaID uuid.UUID) bool {
	_, ok := s.pairs[model.PairKey{DependencyID: dependencyID, AreaID: areaID}]
	return ok
}

func (s *Snapshot) Attribute(id uuid.UUID) (*model.Attribute, bool) {
	a, ok := s.attributes[id]
	return a, ok
}

// Service serves the reference catalogs through a read-through cache.
type Service struct {
	repo      repository.CatalogRepository
	cache     *cache.Cache
	validator validator.Validator
	mu        sync.Mutex
}

func NewService(repo repository.CatalogRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		repo:      repo,
		cache:     cache.New(ttl, 2*ttl),
		validator: validator.New(),
	}
}

// Snapshot returns the cached catalog, loading it on a miss.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if cached, found := s.cache.Get(snapshotKey); found {
		return cached.(*Snapshot), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, found := s.cache.Get(snapshotKey); found {
		return cached.(*Snapshot), nil
	}

	claustros, err := s.repo.ListClaustros(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load claustros", err)
	}
	pairs, err := s.repo.ListDependencyAreas(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load dependency areas", err)
	}
	attributes, err := s.repo.ListAttributes(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load visit attributes", err)
	}

	snap := NewSnapshot(claustros, pairs, attributes)
	s.cache.Set(snapshotKey, snap, cache.DefaultExpiration)
	return snap, nil
}

func (s *Service) ListClaustros(ctx context.Context) ([]*model.Claustro, error) {
	claustros, err := s.repo.ListClaustros(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list claustros", err)
	}
	return claustros, nil
}

func (s *Service) ListDependencyAreas(ctx context.Context) ([]*model.DependencyArea, error) {
	pairs, err := s.repo.ListDependencyAreas(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list dependency areas", err)
	}
	return pairs, nil
}

func (s *Service) ListAttributes(ctx context.Context) ([]*model.Attribute, error) {
	attrs, err := s.repo.ListAttributes(ctx)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list visit attributes", err)
	}
	return attrs, nil
}

// AddDependencyArea registers a new legal (dependency, area) combination.
func (s *Service) AddDependencyArea(ctx context.Context, pair *model.DependencyArea) error {
	if err := s.validator.Validate(pair); err != nil {
		return err
	}
	if err := s.repo.CreateDependencyArea(ctx, pair); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("dependency area already registered", err)
		}
		return apperrors.Infrastructure("failed to create dependency area", err)
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate() {
	s.cache.Delete(snapshotKey)
}
