package event

import (
	"context"

	"github.com/google/uuid"
)

// Emitter records a domain event for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, orgID uuid.UUID, eventType string, payload interface{}) error
}
