// Package availability reads staff unavailability owned by the external
// availability system.
package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type Service struct {
	repo repository.BlockedSlotRepository
}

func NewService(repo repository.BlockedSlotRepository) *Service {
	return &Service{repo: repo}
}

// ListBlockedSlots returns slots intersecting r, optionally limited to staff.
func (s *Service) ListBlockedSlots(ctx context.Context, orgID uuid.UUID, r model.TimeRange, staffIDs []uuid.UUID) ([]*model.BlockedSlot, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.NewValidation(errors.FieldError{Field: "range", Message: err.Error()})
	}

	slots, err := s.repo.List(ctx, model.BlockedSlotQuery{
		OrganizationID: orgID,
		Range:          r.UTC(),
		StaffIDs:       staffIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	return slots, nil
}
