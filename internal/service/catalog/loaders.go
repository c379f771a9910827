package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "catalog.loaders"

// Key identifies a catalog row inside an organization.
type Key struct {
	OrgID uuid.UUID
	ID    uuid.UUID
}

// Loaders batch catalog lookups made while serving one request.
type Loaders struct {
	StaffLoader    *dataloader.Loader[Key, *model.Staff]
	PatientLoader  *dataloader.Loader[Key, *model.Patient]
	ServiceLoader  *dataloader.Loader[Key, *model.Service]
	LocationLoader *dataloader.Loader[Key, *model.Location]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(repo repository.CatalogRepository) *Loaders {
	return &Loaders{
		StaffLoader: newLoader(batch("staff", repo.GetStaffByIDs,
			func(s *model.Staff) uuid.UUID { return s.ID })),
		PatientLoader: newLoader(batch("patient", repo.GetPatientsByIDs,
			func(p *model.Patient) uuid.UUID { return p.ID })),
		ServiceLoader: newLoader(batch("service", repo.GetServicesByIDs,
			func(s *model.Service) uuid.UUID { return s.ID })),
		LocationLoader: newLoader(batch("location", repo.GetLocationsByIDs,
			func(l *model.Location) uuid.UUID { return l.ID })),
	}
}

const loaderWait = 2 * time.Millisecond

func newLoader[V any](fn dataloader.BatchFunc[Key, V]) *dataloader.Loader[Key, V] {
	return dataloader.NewBatchedLoader(fn, dataloader.WithWait[Key, V](loaderWait))
}

// batch groups keys by organization so a tenant never sees another tenant's
// rows. Missing rows resolve to a not found error for that key only.
func batch[V any](
	resource string,
	fetch func(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]V, error),
	idOf func(V) uuid.UUID,
) dataloader.BatchFunc[Key, V] {
	return func(ctx context.Context, keys []Key) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))

		byOrg := make(map[uuid.UUID][]uuid.UUID)
		for _, k := range keys {
			byOrg[k.OrgID] = append(byOrg[k.OrgID], k.ID)
		}

		found := make(map[Key]V, len(keys))
		failed := make(map[uuid.UUID]error)
		for orgID, ids := range byOrg {
			rows, err := fetch(ctx, orgID, ids)
			if err != nil {
				failed[orgID] = fmt.Errorf("failed to load %s: %w", resource, err)
				continue
			}
			for _, row := range rows {
				found[Key{OrgID: orgID, ID: idOf(row)}] = row
			}
		}

		for i, key := range keys {
			if err, ok := failed[key.OrgID]; ok {
				results[i] = &dataloader.Result[V]{Error: err}
			} else if v, ok := found[key]; ok {
				results[i] = &dataloader.Result[V]{Data: v}
			} else {
				results[i] = &dataloader.Result[V]{Error: errors.NewNotFound(fmt.Sprintf("%s %s", resource, key.ID), nil)}
			}
		}
		return results
	}
}

// For returns the loaders attached to ctx, or nil.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
