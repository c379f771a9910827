package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// ConflictChecker decides whether a booking may overlap other bookings of the
// same staff. Implementations return errors.NewConflict to reject.
type ConflictChecker interface {
	Check(ctx context.Context, orgID uuid.UUID, draft model.AppointmentDraft, exclude *uuid.UUID) error
}

// AllowOverlaps accepts every booking. Overlapping appointments are a normal
// part of manual scheduling, so double-booking is not rejected.
type AllowOverlaps struct{}

func (AllowOverlaps) Check(context.Context, uuid.UUID, model.AppointmentDraft, *uuid.UUID) error {
	return nil
}
