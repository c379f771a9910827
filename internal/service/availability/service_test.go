package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type memSlots []*model.BlockedSlot

func (m memSlots) List(_ context.Context, q model.BlockedSlotQuery) ([]*model.BlockedSlot, error) {
	var out []*model.BlockedSlot
	for _, b := range m {
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestListBlockedSlots(t *testing.T) {
	org, x, y := uuid.New(), uuid.New(), uuid.New()
	nine := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	slots := memSlots{
		{ID: uuid.New(), OrganizationID: org, StaffID: x, Start: nine, End: nine.Add(time.Hour)},
		{ID: uuid.New(), OrganizationID: org, StaffID: y, Start: nine, End: nine.Add(time.Hour)},
		{ID: uuid.New(), OrganizationID: uuid.New(), StaffID: x, Start: nine, End: nine.Add(time.Hour)},
	}
	svc := NewService(slots)
	r := model.TimeRange{From: nine.Add(-time.Hour), To: nine.Add(2 * time.Hour)}

	all, err := svc.ListBlockedSlots(context.Background(), org, r, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyX, err := svc.ListBlockedSlots(context.Background(), org, r, []uuid.UUID{x})
	require.NoError(t, err)
	require.Len(t, onlyX, 1)
	assert.Equal(t, x, onlyX[0].StaffID)

	_, err = svc.ListBlockedSlots(context.Background(), org, model.TimeRange{From: nine}, nil)
	assert.True(t, errors.IsValidation(err))
}
