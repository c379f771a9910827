package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type fakeCatalog struct {
	mu         sync.Mutex
	staff      []*model.Staff
	patients   []*model.Patient
	services   []*model.Service
	locations  []*model.Location
	staffCalls int
	err        error
}

func pick[T any](rows []T, orgOf func(T) uuid.UUID, idOf func(T) uuid.UUID, orgID uuid.UUID, ids []uuid.UUID) []T {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []T
	for _, r := range rows {
		if orgOf(r) == orgID && want[idOf(r)] {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeCatalog) ListStaff(_ context.Context, orgID uuid.UUID, _ model.CatalogFilter) ([]*model.Staff, error) {
	return f.staff, f.err
}

func (f *fakeCatalog) ListPatients(_ context.Context, orgID uuid.UUID, _ model.CatalogFilter) ([]*model.Patient, error) {
	return f.patients, f.err
}

func (f *fakeCatalog) ListServices(context.Context, uuid.UUID) ([]*model.Service, error) {
	return f.services, f.err
}

func (f *fakeCatalog) ListLocations(context.Context, uuid.UUID) ([]*model.Location, error) {
	return f.locations, f.err
}

func (f *fakeCatalog) GetStaffByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error) {
	f.mu.Lock()
	f.staffCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return pick(f.staff, func(s *model.Staff) uuid.UUID { return s.OrganizationID },
		func(s *model.Staff) uuid.UUID { return s.ID }, orgID, ids), nil
}

func (f *fakeCatalog) GetPatientsByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return pick(f.patients, func(p *model.Patient) uuid.UUID { return p.OrganizationID },
		func(p *model.Patient) uuid.UUID { return p.ID }, orgID, ids), nil
}

func (f *fakeCatalog) GetServicesByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	return pick(f.services, func(s *model.Service) uuid.UUID { return s.OrganizationID },
		func(s *model.Service) uuid.UUID { return s.ID }, orgID, ids), nil
}

func (f *fakeCatalog) GetLocationsByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	return pick(f.locations, func(l *model.Location) uuid.UUID { return l.OrganizationID },
		func(l *model.Location) uuid.UUID { return l.ID }, orgID, ids), nil
}

func TestGetStaffBatchesLookups(t *testing.T) {
	org := uuid.New()
	a := &model.Staff{ID: uuid.New(), OrganizationID: org, Name: "A"}
	b := &model.Staff{ID: uuid.New(), OrganizationID: org, Name: "B"}
	repo := &fakeCatalog{staff: []*model.Staff{a, b}}
	svc := NewService(repo)

	staff, err := svc.GetStaff(context.Background(), org, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "A", staff[0].Name)
	assert.Equal(t, "B", staff[1].Name)
	assert.Equal(t, 1, repo.staffCalls)
}

func TestGetStaffMissingIsNotFound(t *testing.T) {
	org := uuid.New()
	a := &model.Staff{ID: uuid.New(), OrganizationID: org}
	svc := NewService(&fakeCatalog{staff: []*model.Staff{a}})

	_, err := svc.GetStaff(context.Background(), org, []uuid.UUID{a.ID, uuid.New()})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLookupsAreTenantScoped(t *testing.T) {
	org := uuid.New()
	p := &model.Patient{ID: uuid.New(), OrganizationID: org, Name: "Pat"}
	svc := NewService(&fakeCatalog{patients: []*model.Patient{p}})

	got, err := svc.GetPatient(context.Background(), org, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", got.Name)

	_, err = svc.GetPatient(context.Background(), uuid.New(), p.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRequestLoadersAreReused(t *testing.T) {
	org := uuid.New()
	a := &model.Staff{ID: uuid.New(), OrganizationID: org}
	repo := &fakeCatalog{staff: []*model.Staff{a}}
	svc := NewService(repo)
	ctx := WithLoaders(context.Background(), NewLoaders(repo))

	for i := 0; i < 3; i++ {
		_, err := svc.GetStaff(ctx, org, []uuid.UUID{a.ID})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.staffCalls)
}

func TestStoreErrorIsNotNotFound(t *testing.T) {
	svc := NewService(&fakeCatalog{err: errors.New("db down")})

	_, err := svc.GetService(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
	assert.ErrorContains(t, err, "db down")
}

func TestNamesSkipsMissing(t *testing.T) {
	org := uuid.New()
	p := &model.Patient{ID: uuid.New(), OrganizationID: org, Name: "Pat"}
	s := &model.Service{ID: uuid.New(), OrganizationID: org, Name: "Checkup"}
	svc := NewService(&fakeCatalog{patients: []*model.Patient{p}, services: []*model.Service{s}})

	names, err := svc.Names(context.Background(), org, []uuid.UUID{p.ID, uuid.New()}, []uuid.UUID{s.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{p.ID: "Pat", s.ID: "Checkup"}, names)
}
