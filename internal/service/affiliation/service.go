package affiliation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/validator"
)

// PersonResolver reports whether a person may receive new affiliations.
type PersonResolver interface {
	ActivePerson(ctx context.Context, id uuid.UUID) (*model.Person, error)
}

// CatalogReader supplies the reference data the engine checks against.
type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type Service struct {
	engine    *Engine
	repo      repository.AffiliationRepository
	catalog   CatalogReader
	persons   PersonResolver
	events    *event.EventService
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *logger.Logger
	validator validator.Validator
}

func NewService(
	engine *Engine,
	repo repository.AffiliationRepository,
	catalog CatalogReader,
	persons PersonResolver,
	events *event.EventService,
	clk clock.Clock,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		engine:    engine,
		repo:      repo,
		catalog:   catalog,
		persons:   persons,
		events:    events,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
		validator: validator.New(),
	}
}

// ValidateBatch runs the engine without persisting anything.
func (s *Service) ValidateBatch(ctx context.Context, entries []model.AffiliationEntry) error {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.engine.ValidateBatch(entries, snap, s.clock.Now()); err != nil {
		s.recordRejection(err)
		return err
	}
	return nil
}

// SubmitBatch validates entries for personID and stores all of them in one
// transaction, or none.
func (s *Service) SubmitBatch(ctx context.Context, personID uuid.UUID, entries []model.AffiliationEntry) ([]*model.Affiliation, error) {
	if _, err := s.persons.ActivePerson(ctx, personID); err != nil {
		return nil, err
	}
	if err := s.ValidateBatch(ctx, entries); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	affiliations := make([]*model.Affiliation, 0, len(entries))
	claustros := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		a := entry.ToAffiliation(personID)
		a.CreatedAt = now
		a.UpdatedAt = now
		affiliations = append(affiliations, a)
		claustros = append(claustros, entry.ClaustroID)
	}

	evt, err := s.events.Build(model.EventAffiliationsStored, personID, event.AffiliationsPayload{
		PersonID:  personID,
		Claustros: claustros,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.CreateBatch(ctx, affiliations, evt); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.NewConflict("affiliation already registered for this person", err)
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, apperrors.NewBadRequest("affiliation references unknown catalog entries", err)
		default:
			return nil, apperrors.Infrastructure("failed to store affiliations", err)
		}
	}

	s.logger.Info("Affiliations stored",
		"person_id", personID.String(),
		"count", len(affiliations))
	return affiliations, nil
}

func (s *Service) List(ctx context.Context, personID uuid.UUID) ([]*model.Affiliation, error) {
	affiliations, err := s.repo.ListByPerson(ctx, personID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list affiliations", err)
	}
	return affiliations, nil
}

func (s *Service) SetStatus(ctx context.Context, personID uuid.UUID, req *model.AffiliationStatusRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	key := model.AffiliationKey{
		PersonID:     personID,
		ClaustroID:   req.ClaustroID,
		DependencyID: req.DependencyID,
		AreaID:       req.AreaID,
	}
	if err := s.repo.UpdateStatus(ctx, key, req.Status, s.clock.Now()); err != nil {
		return writeError(err, "failed to update affiliation status")
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, key model.AffiliationKey) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return writeError(err, "failed to remove affiliation")
	}
	return nil
}

func (s *Service) recordRejection(err error) {
	switch {
	case errors.Is(err, ErrMultipleStaffClaustro):
		s.metrics.EligibilityRejection.WithLabelValues("multiple_staff_claustro").Inc()
	case errors.Is(err, ErrExternalClaustroCombined):
		s.metrics.EligibilityRejection.WithLabelValues("external_claustro_combined").Inc()
	case apperrors.CodeOf(err) == apperrors.ErrValidation:
		s.metrics.EligibilityRejection.WithLabelValues("validation").Inc()
	}
}

func writeError(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("affiliation", err)
	}
	return apperrors.Infrastructure(op, err)
}
