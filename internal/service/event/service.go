package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

// EventService writes events to the outbox table. Delivery is done by the
// outbox worker.
type EventService struct {
	outboxRepo repository.OutboxRepository
	now        func() time.Time
}

func NewEventService(outboxRepo repository.OutboxRepository) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		now:        time.Now,
	}
}

func (s *EventService) Emit(ctx context.Context, orgID uuid.UUID, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now().UTC()
	event := &model.OutboxEvent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EventType:      eventType,
		Payload:        payloadJSON,
		Status:         string(model.OutboxStatusPending),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
