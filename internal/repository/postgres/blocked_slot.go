package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

type blockedSlotRepository struct {
	BaseRepository
}

// NewBlockedSlotRepository reads staff unavailability written by the
// availability system into blocked_slots.
func NewBlockedSlotRepository(base BaseRepository) repository.BlockedSlotRepository {
	return &blockedSlotRepository{base}
}

func (r *blockedSlotRepository) List(ctx context.Context, q model.BlockedSlotQuery) ([]*model.BlockedSlot, error) {
	ds := r.dialect.From("blocked_slots").Prepared(true).
		Select("id", "organization_id", "staff_id", "start_time", "end_time", "reason").
		Where(
			goqu.C("organization_id").Eq(q.OrganizationID.String()),
			overlapExpr(q.Range),
		)
	if len(q.StaffIDs) > 0 {
		ds = ds.Where(goqu.C("staff_id").In(uuidStrings(q.StaffIDs)...))
	}

	query, args, err := ds.Order(goqu.C("start_time").Asc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build blocked slot query: %w", err)
	}

	var slots []*model.BlockedSlot
	err = r.db.SelectContext(ctx, &slots, query, args...)
	r.observe("blocked_slot_list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	for _, s := range slots {
		s.Start = s.Start.UTC()
		s.End = s.End.UTC()
	}
	return slots, nil
}
