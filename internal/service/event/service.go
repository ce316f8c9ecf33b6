package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
)

// EventService builds outbox events. Services that write state pass the
// built event to their repository so both land in one transaction; Emit is
// for events with no accompanying write.
type EventService struct {
	outboxRepo repository.OutboxRepository
	clock      clock.Clock
}

func NewEventService(outboxRepo repository.OutboxRepository, clk clock.Clock) *EventService {
	if clk == nil {
		clk = clock.System()
	}
	return &EventService{
		outboxRepo: outboxRepo,
		clock:      clk,
	}
}

// Build returns a pending event for aggregateID carrying payload.
func (s *EventService) Build(eventType string, aggregateID uuid.UUID, payload interface{}) (*model.OutboxEvent, error) {
	event, err := model.NewOutboxEvent(eventType, aggregateID, payload, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return event, nil
}

func (s *EventService) Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	event, err := s.Build(eventType, aggregateID, payload)
	if err != nil {
		return err
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
