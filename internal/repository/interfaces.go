package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// ErrNotFound is returned by repositories when a row does not exist in the
// caller's organization.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, orgID, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, orgID, id uuid.UUID) error
		List(ctx context.Context, query model.AppointmentQuery) ([]*model.Appointment, error)
	}

	// BlockedSlotRepository is read-only; slots are owned by the availability system.
	BlockedSlotRepository interface {
		List(ctx context.Context, query model.BlockedSlotQuery) ([]*model.BlockedSlot, error)
	}

	CatalogRepository interface {
		ListStaff(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Staff, error)
		ListPatients(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Patient, error)
		ListServices(ctx context.Context, orgID uuid.UUID) ([]*model.Service, error)
		ListLocations(ctx context.Context, orgID uuid.UUID) ([]*model.Location, error)

		GetStaffByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error)
		GetPatientsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Patient, error)
		GetServicesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Service, error)
		GetLocationsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Location, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPendingEvents leases up to limit due events so concurrent workers skip them.
		ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
