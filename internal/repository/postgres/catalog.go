package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

const defaultCatalogLimit = 500

type catalogRepository struct {
	BaseRepository
}

// NewCatalogRepository exposes the staff, patient, service and location
// tables owned by the practice-management side.
func NewCatalogRepository(base BaseRepository) repository.CatalogRepository {
	return &catalogRepository{base}
}

func (r *catalogRepository) selectInto(ctx context.Context, op string, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	err = r.db.SelectContext(ctx, dest, query, args...)
	r.observe(op, err)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func (r *catalogRepository) filtered(table string, orgID uuid.UUID, filter model.CatalogFilter, cols ...interface{}) *goqu.SelectDataset {
	ds := r.dialect.From(table).Prepared(true).Select(cols...).
		Where(goqu.C("organization_id").Eq(orgID.String()))
	if filter.Search != "" {
		ds = ds.Where(goqu.C("name").ILike("%" + filter.Search + "%"))
	}
	if len(filter.IDs) > 0 {
		ds = ds.Where(goqu.C("id").In(uuidStrings(filter.IDs)...))
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultCatalogLimit {
		limit = defaultCatalogLimit
	}
	return ds.Order(goqu.C("name").Asc()).Limit(uint(limit))
}

func (r *catalogRepository) byIDs(table string, orgID uuid.UUID, ids []uuid.UUID, cols ...interface{}) *goqu.SelectDataset {
	return r.dialect.From(table).Prepared(true).Select(cols...).
		Where(
			goqu.C("organization_id").Eq(orgID.String()),
			goqu.C("id").In(uuidStrings(ids)...),
		)
}

var (
	staffColumns    = []interface{}{"id", "organization_id", "name", "email", "role", "active"}
	patientColumns  = []interface{}{"id", "organization_id", "name", "email", "phone"}
	serviceColumns  = []interface{}{"id", "organization_id", "name", "duration_minutes", "staff_ids"}
	locationColumns = []interface{}{"id", "organization_id", "name", "address", "timezone"}
)

func (r *catalogRepository) ListStaff(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Staff, error) {
	var staff []*model.Staff
	ds := r.filtered("staff", orgID, filter, staffColumns...).Where(goqu.C("active").IsTrue())
	if err := r.selectInto(ctx, "list staff", &staff, ds); err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *catalogRepository) ListPatients(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Patient, error) {
	var patients []*model.Patient
	if err := r.selectInto(ctx, "list patients", &patients, r.filtered("patients", orgID, filter, patientColumns...)); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *catalogRepository) ListServices(ctx context.Context, orgID uuid.UUID) ([]*model.Service, error) {
	var services []*model.Service
	if err := r.selectInto(ctx, "list services", &services, r.filtered("services", orgID, model.CatalogFilter{}, serviceColumns...)); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *catalogRepository) ListLocations(ctx context.Context, orgID uuid.UUID) ([]*model.Location, error) {
	var locations []*model.Location
	if err := r.selectInto(ctx, "list locations", &locations, r.filtered("locations", orgID, model.CatalogFilter{}, locationColumns...)); err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *catalogRepository) GetStaffByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error) {
	var staff []*model.Staff
	if err := r.selectInto(ctx, "get staff", &staff, r.byIDs("staff", orgID, ids, staffColumns...)); err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *catalogRepository) GetPatientsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Patient, error) {
	var patients []*model.Patient
	if err := r.selectInto(ctx, "get patients", &patients, r.byIDs("patients", orgID, ids, patientColumns...)); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *catalogRepository) GetServicesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Service, error) {
	var services []*model.Service
	if err := r.selectInto(ctx, "get services", &services, r.byIDs("services", orgID, ids, serviceColumns...)); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *catalogRepository) GetLocationsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Location, error) {
	var locations []*model.Location
	if err := r.selectInto(ctx, "get locations", &locations, r.byIDs("locations", orgID, ids, locationColumns...)); err != nil {
		return nil, err
	}
	return locations, nil
}
