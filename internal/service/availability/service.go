package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/validator"
)

var (
	ErrInvalidRange = errors.New("slot start time must be before its end time")
	ErrOverlap      = errors.New("slot overlaps an existing slot on the same weekday")
)

type ProfessionalResolver interface {
	ActiveProfessional(ctx context.Context, id uuid.UUID) (*model.Professional, error)
}

type Service struct {
	repo          repository.AvailabilityRepository
	professionals ProfessionalResolver
	locker        lock.Locker
	events        *event.EventService
	clock         clock.Clock
	location      *time.Location
	metrics       *metrics.Metrics
	logger        *logger.Logger
	validator     validator.Validator
}

func NewService(
	repo repository.AvailabilityRepository,
	professionals ProfessionalResolver,
	locker lock.Locker,
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
		repo:          repo,
		professionals: professionals,
		locker:        locker,
		events:        events,
		clock:         clk,
		location:      location,
		metrics:       metrics,
		logger:        logger,
		validator:     validator.New(),
	}
}

func slotLockKey(professionalID uuid.UUID, weekday model.Weekday) string {
	return fmt.Sprintf("slots:%s:%d", professionalID, weekday)
}

// AddSlot stores a new weekly window. The overlap check and the insert run
// under a lock keyed by (professional, weekday).
func (s *Service) AddSlot(ctx context.Context, professionalID uuid.UUID, req *model.CreateSlotRequest) (*model.AvailabilitySlot, error) {
	verr := s.validator.ValidateStruct(req)
	if verr == nil {
		verr = &apperrors.ValidationError{}
	}
	if !req.StartTime.Valid() {
		verr.Add("start_time", "must be between 00:00 and 24:00")
	}
	if !req.EndTime.Valid() {
		verr.Add("end_time", "must be between 00:00 and 24:00")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if req.StartTime >= req.EndTime {
		s.metrics.SlotRejections.WithLabelValues("invalid_range").Inc()
		return nil, apperrors.NewBusinessRule(ErrInvalidRange)
	}

	if _, err := s.professionals.ActiveProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	slot := &model.AvailabilitySlot{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Weekday:        req.Weekday,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		CreatedAt:      s.clock.Now(),
	}

	waitStart := s.clock.Now()
	err := s.locker.WithLock(ctx, slotLockKey(professionalID, req.Weekday), func(ctx context.Context) error {
		s.metrics.LockWait.Observe(s.clock.Now().Sub(waitStart).Seconds())

		existing, err := s.repo.ListByWeekday(ctx, professionalID, req.Weekday)
		if err != nil {
			return apperrors.Infrastructure("failed to load slots", err)
		}
		for _, other := range existing {
			if other.Overlaps(slot.StartTime, slot.EndTime) {
				return apperrors.NewBusinessRule(ErrOverlap)
			}
		}

		evt, err := s.events.Build(model.EventSlotAdded, slot.ID, event.NewSlotPayload(slot))
		if err != nil {
			return apperrors.Internal(err)
		}
		if err := s.repo.Create(ctx, slot, evt); err != nil {
			switch {
			case errors.Is(err, repository.ErrRangeConflict):
				return apperrors.NewBusinessRule(ErrOverlap)
			case errors.Is(err, repository.ErrNotFound):
				return apperrors.NewNotFound("professional", err)
			}
			return apperrors.Infrastructure("failed to store slot", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		switch {
		case errors.Is(err, ErrOverlap):
			s.metrics.SlotRejections.WithLabelValues("overlap").Inc()
		case errors.Is(err, lock.ErrNotAcquired):
			return nil, apperrors.Infrastructure("slot calendar is busy", err)
		case !errors.As(err, &appErr):
			// lock backend failure
			return nil, apperrors.Infrastructure("slot calendar lock failed", err)
		}
		return nil, err
	}

	s.logger.Info("Slot added",
		"slot_id", slot.ID.String(),
		"professional_id", professionalID.String(),
		"weekday", int(slot.Weekday),
		"start", slot.StartTime.String(),
		"end", slot.EndTime.String())
	return slot, nil
}

// ListSlots returns the professional's slots ordered by weekday then start.
func (s *Service) ListSlots(ctx context.Context, professionalID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	slots, err := s.repo.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list slots", err)
	}
	return slots, nil
}

func (s *Service) RemoveSlot(ctx context.Context, slotID uuid.UUID) error {
	slot, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return slotError(err)
	}

	evt, err := s.events.Build(model.EventSlotRemoved, slot.ID, event.NewSlotPayload(slot))
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.repo.Delete(ctx, slotID, evt); err != nil {
		return slotError(err)
	}

	s.logger.Info("Slot removed", "slot_id", slotID.String())
	return nil
}

// IsWithinAvailability reports whether t falls in [start, end) of a slot of
// the professional on weekday.
func (s *Service) IsWithinAvailability(ctx context.Context, professionalID uuid.UUID, weekday model.Weekday, t model.TimeOfDay) (bool, error) {
	slots, err := s.repo.ListByWeekday(ctx, professionalID, weekday)
	if err != nil {
		return false, apperrors.Infrastructure("failed to load slots", err)
	}
	for _, slot := range slots {
		if slot.Contains(t) {
			return true, nil
		}
	}
	return false, nil
}

// IsAvailableAt evaluates an instant in the scheduling time zone.
func (s *Service) IsAvailableAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (bool, error) {
	local := at.In(s.location)
	return s.IsWithinAvailability(ctx, professionalID, model.WeekdayOf(local), model.TimeOfDayOf(local))
}

func slotError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("slot", err)
	}
	return apperrors.Infrastructure("failed to access slot", err)
}
