// Package catalog exposes the read-only staff, patient, service and location
// lookups the scheduler depends on.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type Service struct {
	repo repository.CatalogRepository
}

func NewService(repo repository.CatalogRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListStaff(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Staff, error) {
	staff, err := s.repo.ListStaff(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

func (s *Service) ListPatients(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Patient, error) {
	patients, err := s.repo.ListPatients(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) ListServices(ctx context.Context, orgID uuid.UUID) ([]*model.Service, error) {
	services, err := s.repo.ListServices(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (s *Service) ListLocations(ctx context.Context, orgID uuid.UUID) ([]*model.Location, error) {
	locations, err := s.repo.ListLocations(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// Loaders returns the request's loaders, creating unshared ones when the
// request did not attach any.
func (s *Service) Loaders(ctx context.Context) *Loaders {
	if l := For(ctx); l != nil {
		return l
	}
	return NewLoaders(s.repo)
}

func (s *Service) GetPatient(ctx context.Context, orgID, id uuid.UUID) (*model.Patient, error) {
	return s.Loaders(ctx).PatientLoader.Load(ctx, Key{OrgID: orgID, ID: id})()
}

func (s *Service) GetService(ctx context.Context, orgID, id uuid.UUID) (*model.Service, error) {
	return s.Loaders(ctx).ServiceLoader.Load(ctx, Key{OrgID: orgID, ID: id})()
}

func (s *Service) GetLocation(ctx context.Context, orgID, id uuid.UUID) (*model.Location, error) {
	return s.Loaders(ctx).LocationLoader.Load(ctx, Key{OrgID: orgID, ID: id})()
}

// GetStaff resolves every id in one batch and fails on the first missing one.
func (s *Service) GetStaff(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error) {
	keys := make([]Key, len(ids))
	for i, id := range ids {
		keys[i] = Key{OrgID: orgID, ID: id}
	}
	staff, errs := s.Loaders(ctx).StaffLoader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return staff, nil
}

// Names resolves display names for patients and services, skipping ids that
// cannot be found.
func (s *Service) Names(ctx context.Context, orgID uuid.UUID, patientIDs, serviceIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	l := s.Loaders(ctx)
	names := make(map[uuid.UUID]string, len(patientIDs)+len(serviceIDs))

	patients := make([]dataloader.Thunk[*model.Patient], len(patientIDs))
	for i, id := range patientIDs {
		patients[i] = l.PatientLoader.Load(ctx, Key{OrgID: orgID, ID: id})
	}
	services := make([]dataloader.Thunk[*model.Service], len(serviceIDs))
	for i, id := range serviceIDs {
		services[i] = l.ServiceLoader.Load(ctx, Key{OrgID: orgID, ID: id})
	}

	for _, thunk := range patients {
		p, err := thunk()
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		names[p.ID] = p.Name
	}
	for _, thunk := range services {
		svc, err := thunk()
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		names[svc.ID] = svc.Name
	}
	return names, nil
}
