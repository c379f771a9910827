package appointment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type memRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *memRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *memRepo) Get(_ context.Context, orgID, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *memRepo) Update(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[a.ID]
	if !ok || cur.OrganizationID != a.OrganizationID {
		return repository.ErrNotFound
	}
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *memRepo) Delete(_ context.Context, orgID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.OrganizationID != orgID {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memRepo) List(_ context.Context, q model.AppointmentQuery) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.items {
		if q.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// memRefs knows every id it was seeded with, in any organization.
type memRefs struct {
	patients  map[uuid.UUID]bool
	staff     map[uuid.UUID]bool
	services  map[uuid.UUID]*model.Service
	locations map[uuid.UUID]bool
}

func newMemRefs() *memRefs {
	return &memRefs{
		patients:  map[uuid.UUID]bool{},
		staff:     map[uuid.UUID]bool{},
		services:  map[uuid.UUID]*model.Service{},
		locations: map[uuid.UUID]bool{},
	}
}

func (m *memRefs) GetPatient(_ context.Context, _ uuid.UUID, id uuid.UUID) (*model.Patient, error) {
	if !m.patients[id] {
		return nil, errors.NewNotFound("patient "+id.String(), nil)
	}
	return &model.Patient{ID: id}, nil
}

func (m *memRefs) GetStaff(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error) {
	out := make([]*model.Staff, 0, len(ids))
	for _, id := range ids {
		if !m.staff[id] {
			return nil, errors.NewNotFound("staff "+id.String(), nil)
		}
		out = append(out, &model.Staff{ID: id})
	}
	return out, nil
}

func (m *memRefs) GetService(_ context.Context, _ uuid.UUID, id uuid.UUID) (*model.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, errors.NewNotFound("service "+id.String(), nil)
	}
	return svc, nil
}

func (m *memRefs) GetLocation(_ context.Context, _ uuid.UUID, id uuid.UUID) (*model.Location, error) {
	if !m.locations[id] {
		return nil, errors.NewNotFound("location "+id.String(), nil)
	}
	return &model.Location{ID: id}, nil
}

type recordedEvent struct {
	orgID     uuid.UUID
	eventType string
	payload   model.AppointmentEvent
}

type memEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (e *memEmitter) Emit(_ context.Context, orgID uuid.UUID, eventType string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, recordedEvent{orgID: orgID, eventType: eventType, payload: payload.(model.AppointmentEvent)})
	return nil
}

func (e *memEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.eventType
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	count map[uuid.UUID]int
}

func (c *countingInvalidator) Invalidate(_ context.Context, orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == nil {
		c.count = map[uuid.UUID]int{}
	}
	c.count[orgID]++
}

func (c *countingInvalidator) times(orgID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count[orgID]
}
