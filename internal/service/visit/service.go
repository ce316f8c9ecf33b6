package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type IdentityResolver interface {
	ActivePerson(ctx context.Context, id uuid.UUID) (*model.Person, error)
	ActiveProfessional(ctx context.Context, id uuid.UUID) (*model.Professional, error)
}

// AvailabilityChecker answers whether a professional declared hours covering
// an instant.
type AvailabilityChecker interface {
	IsAvailableAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (bool, error)
}

type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type Service struct {
	engine       *Engine
	repo         repository.VisitRepository
	identity     IdentityResolver
	availability AvailabilityChecker
	catalog      CatalogReader
	events       *event.EventService
	clock        clock.Clock
	location     *time.Location
	metrics      *metrics.Metrics
	logger       *logger.Logger
	validator    validator.Validator
}

func NewService(
	repo repository.VisitRepository,
	identity IdentityResolver,
	availability AvailabilityChecker,
	catalog CatalogReader,
	events *event.EventService,
	clk clock.Clock,
	location *time.Location,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		engine:       NewEngine(logger),
		repo:         repo,
		identity:     identity,
		availability: availability,
		catalog:      catalog,
		events:       events,
		clock:        clk,
		location:     location,
		metrics:      metrics,
		logger:       logger,
		validator:    validator.New(),
	}
}

// Create checks the visit in. A visit scheduled for a later day must fall in
// the professional's declared hours; same-day walk-ins skip that check.
func (s *Service) Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.ScheduledFor != nil {
		switch compareDay(*req.ScheduledFor, now, s.location) {
		case -1:
			verr := &apperrors.ValidationError{}
			verr.Add("scheduled_for", "must not be before today")
			return nil, verr
		case 1:
			ok, err := s.availability.IsAvailableAt(ctx, req.ProfessionalID, *req.ScheduledFor)
			if err != nil {
				return nil, err
			}
			if !ok {
				s.reject(ErrOutsideAvailability)
				return nil, apperrors.NewBusinessRule(ErrOutsideAvailability)
			}
		}
	}

	if _, err := s.identity.ActivePerson(ctx, req.PersonID); err != nil {
		return nil, err
	}
	if _, err := s.identity.ActiveProfessional(ctx, req.ProfessionalID); err != nil {
		return nil, err
	}

	v, transition := s.engine.New(req, now, s.location)
	evt, err := s.events.Build(model.EventVisitCreated, v.ID, visitPayload(v, nil, now))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.Create(ctx, v, transition, evt); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, apperrors.NewBadRequest("visit references an unknown service or visit type", err)
		}
		return nil, apperrors.Infrastructure("failed to store visit", err)
	}

	s.metrics.VisitTransitions.WithLabelValues("none", string(v.Status)).Inc()
	s.logger.Info("Visit created",
		"visit_id", v.ID.String(),
		"person_id", v.PersonID.String(),
		"professional_id", v.ProfessionalID.String())
	return v, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, readError(err)
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		verr := &apperrors.ValidationError{}
		verr.Add("status", "must be one of waiting in_progress completed cancelled")
		return nil, verr
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		verr := &apperrors.ValidationError{}
		verr.Add("to", "must not be before from")
		return nil, verr
	}
	visits, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list visits", err)
	}
	return visits, nil
}

// History returns the status transitions of a visit, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*model.VisitTransition, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load visit history", err)
	}
	return history, nil
}

func (s *Service) Begin(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.transition(ctx, id, ActionBegin)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.transition(ctx, id, ActionComplete)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.transition(ctx, id, ActionCancel)
}

// transition applies action and persists it guarded by the visit version, so
// two callers racing on the same visit cannot both win.
func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action) (*model.Visit, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	from := v.Status
	transition, err := s.engine.Apply(v, action, now)
	if err != nil {
		s.reject(err)
		return nil, apperrors.NewBusinessRule(fmt.Errorf("%s visit: %w", action, err))
	}

	evt, err := s.events.Build(event.VisitEventType(v.Status), v.ID, visitPayload(v, &from, now))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.Update(ctx, v, transition, evt); err != nil {
		return nil, writeError(err)
	}

	s.metrics.VisitTransitions.WithLabelValues(string(from), string(v.Status)).Inc()
	s.logger.Info("Visit transitioned",
		"visit_id", v.ID.String(),
		"from", string(from),
		"to", string(v.Status))
	return v, nil
}

func (s *Service) UpdateClinical(ctx context.Context, id uuid.UUID, req *model.UpdateClinicalRequest) (*model.Visit, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.EditClinical(v, req, s.clock.Now()); err != nil {
		s.reject(err)
		return nil, apperrors.NewBusinessRule(err)
	}
	if err := s.repo.Update(ctx, v, nil, nil); err != nil {
		return nil, writeError(err)
	}
	return v, nil
}

// RecordAttribute sets the value of one vocabulary attribute on a visit,
// replacing any earlier value.
func (s *Service) RecordAttribute(ctx context.Context, visitID, attributeID uuid.UUID, req *model.RecordAttributeRequest) (*model.VisitAttribute, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	v, err := s.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanRecordAttribute(v); err != nil {
		s.reject(err)
		return nil, apperrors.NewBusinessRule(err)
	}

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Attribute(attributeID); !ok {
		return nil, apperrors.NewNotFound("attribute", repository.ErrNotFound)
	}

	attr := &model.VisitAttribute{
		VisitID:     visitID,
		AttributeID: attributeID,
		Value:       req.Value,
		RecordedAt:  s.clock.Now(),
	}
	if err := s.repo.UpsertAttribute(ctx, attr); err != nil {
		return nil, writeError(err)
	}
	return attr, nil
}

func (s *Service) Attributes(ctx context.Context, visitID uuid.UUID) ([]*model.VisitAttribute, error) {
	if _, err := s.Get(ctx, visitID); err != nil {
		return nil, err
	}
	attrs, err := s.repo.ListAttributes(ctx, visitID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load visit attributes", err)
	}
	return attrs, nil
}

func (s *Service) reject(err error) {
	reason := "other"
	switch {
	case errors.Is(err, ErrTerminalState):
		reason = "terminal_state"
	case errors.Is(err, ErrInvalidTimeOrder):
		reason = "invalid_time_order"
	case errors.Is(err, ErrOutsideAvailability):
		reason = "outside_availability"
	case errors.Is(err, ErrInvalidTransition):
		reason = "invalid_transition"
	}
	s.metrics.LifecycleRejections.WithLabelValues(reason).Inc()
}

func visitPayload(v *model.Visit, from *model.VisitStatus, at time.Time) event.VisitPayload {
	return event.VisitPayload{
		VisitID:        v.ID,
		PersonID:       v.PersonID,
		ProfessionalID: v.ProfessionalID,
		From:           from,
		To:             v.Status,
		OccurredAt:     at,
	}
}

// compareDay compares the calendar days of a and b in loc.
func compareDay(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	switch {
	case da.Before(db):
		return -1
	case da.After(db):
		return 1
	default:
		return 0
	}
}

func readError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("visit", err)
	}
	return apperrors.Infrastructure("failed to load visit", err)
}

func writeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("visit was modified concurrently, reload and retry", err)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidReference):
		return apperrors.NewNotFound("visit", err)
	default:
		return apperrors.Infrastructure("failed to store visit", err)
	}
}
