package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
)

var (
	ErrPersonDeleted        = errors.New("person has been removed")
	ErrProfessionalInactive = errors.New("professional is not active")
)

// Service resolves the person and professional identities other services
// reference.
type Service struct {
	persons       repository.PersonRepository
	professionals repository.ProfessionalRepository
	events        *event.EventService
	clock         clock.Clock
	logger        *logger.Logger
}

func NewService(
	persons repository.PersonRepository,
	professionals repository.ProfessionalRepository,
	events *event.EventService,
	clk clock.Clock,
	logger *logger.Logger,
) *Service {
	return &Service{
		persons:       persons,
		professionals: professionals,
		events:        events,
		clock:         clk,
		logger:        logger,
	}
}

// Person returns the person even when soft-deleted, so historical visits keep
// resolving.
func (s *Service) Person(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	person, err := s.persons.Get(ctx, id)
	if err != nil {
		return nil, lookupError("person", err)
	}
	return person, nil
}

// ActivePerson rejects soft-deleted persons.
func (s *Service) ActivePerson(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	person, err := s.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	if person.IsDeleted() {
		return nil, apperrors.NewBusinessRule(ErrPersonDeleted)
	}
	return person, nil
}

func (s *Service) Professional(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	professional, err := s.professionals.Get(ctx, id)
	if err != nil {
		return nil, lookupError("professional", err)
	}
	return professional, nil
}

// ActiveProfessional rejects inactive or soft-deleted professionals.
func (s *Service) ActiveProfessional(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	professional, err := s.Professional(ctx, id)
	if err != nil {
		return nil, err
	}
	if !professional.IsActive() {
		return nil, apperrors.NewBusinessRule(ErrProfessionalInactive)
	}
	return professional, nil
}

// RemoveProfessional soft-deletes the professional; its availability slots
// go with it.
func (s *Service) RemoveProfessional(ctx context.Context, id uuid.UUID) error {
	now := s.clock.Now()
	payload := event.ProfessionalPayload{ProfessionalID: id, RemovedAt: now}
	evt, err := s.events.Build(model.EventProfessionalRemoved, id, payload)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.professionals.SoftDelete(ctx, id, now, evt); err != nil {
		return lookupError("professional", err)
	}

	s.logger.Info("Professional removed", "professional_id", id.String())
	return nil
}

func lookupError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.Infrastructure("failed to load "+resource, err)
}
