package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

func TestCatalogListStaffAppliesSearch(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewCatalogRepository(base)
	org := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "name", "email", "role", "active"}).
		AddRow(uuid.New().String(), org.String(), "Dr. Ada", "ada@clinic.test", "provider", true)
	mock.ExpectQuery(`SELECT (.+) FROM "staff" WHERE (.+)"name" ILIKE (.+)"active" IS TRUE(.+)ORDER BY "name" ASC LIMIT`).
		WillReturnRows(rows)

	staff, err := repo.ListStaff(context.Background(), org, model.CatalogFilter{Search: "ada"})
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Dr. Ada", staff[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogGetServicesByIDs(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewCatalogRepository(base)
	org, svc, staff := uuid.New(), uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "name", "duration_minutes", "staff_ids"}).
		AddRow(svc.String(), org.String(), "Consultation", 30, "{"+staff.String()+"}")
	mock.ExpectQuery(`SELECT (.+) FROM "services" WHERE (.+)"id" IN \(\$2\)`).WillReturnRows(rows)

	services, err := repo.GetServicesByIDs(context.Background(), org, []uuid.UUID{svc})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.True(t, services[0].AssignableTo(staff))
	assert.False(t, services[0].AssignableTo(uuid.New()))
}

func TestBlockedSlotListFiltersStaff(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewBlockedSlotRepository(base)
	org, staff := uuid.New(), uuid.New()
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "organization_id", "staff_id", "start_time", "end_time", "reason"}).
		AddRow(uuid.New().String(), org.String(), staff.String(), start, start.Add(time.Hour), "lunch")
	mock.ExpectQuery(`SELECT (.+) FROM "blocked_slots" WHERE (.+)"staff_id" IN`).WillReturnRows(rows)

	slots, err := repo.List(context.Background(), model.BlockedSlotQuery{
		OrganizationID: org,
		Range:          model.TimeRange{From: start, To: start.Add(24 * time.Hour)},
		StaffIDs:       []uuid.UUID{staff},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, staff, slots[0].StaffID)
	assert.Equal(t, "lunch", slots[0].Reason)
}
