// Package calendar merges appointments and blocked slots into one renderable
// timeline.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

var tracer = otel.Tracer("scheduler/calendar")

// NameResolver looks up display names for patients and services.
type NameResolver interface {
	Names(ctx context.Context, orgID uuid.UUID, patientIDs, serviceIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type Service struct {
	appointments repository.AppointmentRepository
	blocked      repository.BlockedSlotRepository
	names        NameResolver
	cache        *Cache
	broker       messaging.MessageBroker
	instanceID   string
	metrics      *metrics.Metrics
	log          *logger.Logger
}

// NewService creates the projection service. broker may be nil, in which case
// invalidations stay local to this process.
func NewService(
	appointments repository.AppointmentRepository,
	blocked repository.BlockedSlotRepository,
	names NameResolver,
	cache *Cache,
	broker messaging.MessageBroker,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		appointments: appointments,
		blocked:      blocked,
		names:        names,
		cache:        cache,
		broker:       broker,
		instanceID:   uuid.NewString(),
		metrics:      m,
		log:          log,
	}
}

// Project returns every appointment matching the filter and every blocked
// slot of the filtered staff that intersect the range, ordered by start. A
// query whose context ends before it completes returns the context error and
// leaves the cache untouched.
func (s *Service) Project(ctx context.Context, p model.Principal, r model.TimeRange, f model.ProjectionFilter) ([]model.CalendarEvent, error) {
	ctx, span := tracer.Start(ctx, "calendar.project", trace.WithAttributes(
		attribute.String("org.id", p.OrganizationID.String()),
	))
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, errors.NewValidation(errors.FieldError{Field: "range", Message: err.Error()})
	}

	start := time.Now()
	q := model.AppointmentQuery{OrganizationID: p.OrganizationID, Range: r.UTC(), Filter: f}
	key := cacheKey(q)

	snap, ok := s.cache.get(key)
	if ok {
		s.metrics.ProjectionCache.WithLabelValues("hit").Inc()
	} else {
		s.metrics.ProjectionCache.WithLabelValues("miss").Inc()
		gen := s.cache.Generation(p.OrganizationID)

		var err error
		snap, err = s.fetch(ctx, q)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.cache.put(p.OrganizationID, gen, key, snap)
	}

	events := s.build(p, snap)
	s.metrics.ProjectionLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("calendar.events", len(events)))
	return events, nil
}

// ProjectAppointment renders a single appointment, for merging into a view
// after a command.
func (s *Service) ProjectAppointment(ctx context.Context, p model.Principal, a *model.Appointment) (model.CalendarEvent, error) {
	names, err := s.names.Names(ctx, a.OrganizationID, []uuid.UUID{a.PatientID}, []uuid.UUID{a.ServiceID})
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("failed to resolve names: %w", err)
	}
	return toEvent(p, a, names), nil
}

func (s *Service) fetch(ctx context.Context, q model.AppointmentQuery) (*snapshot, error) {
	appointments, err := s.appointments.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	blocked, err := s.blocked.List(ctx, model.BlockedSlotQuery{
		OrganizationID: q.OrganizationID,
		Range:          q.Range,
		StaffIDs:       q.Filter.StaffIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}

	patients := make([]uuid.UUID, 0, len(appointments))
	services := make([]uuid.UUID, 0, len(appointments))
	for _, a := range appointments {
		patients = append(patients, a.PatientID)
		services = append(services, a.ServiceID)
	}
	names, err := s.names.Names(ctx, q.OrganizationID, patients, services)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve names: %w", err)
	}

	return &snapshot{appointments: appointments, blocked: blocked, names: names}, nil
}

func (s *Service) build(p model.Principal, snap *snapshot) []model.CalendarEvent {
	sources := make([]model.EventSource, 0, len(snap.appointments)+len(snap.blocked))
	for _, a := range snap.appointments {
		sources = append(sources, a)
	}
	for _, b := range snap.blocked {
		sources = append(sources, b)
	}

	events := make([]model.CalendarEvent, 0, len(sources))
	for _, src := range sources {
		ev := toEvent(p, src, snap.names)
		s.metrics.ProjectedEvents.WithLabelValues(string(ev.Kind)).Inc()
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.Kind != b.Kind {
			return a.Kind == model.EventKindAppointment
		}
		return a.ID.String() < b.ID.String()
	})
	return events
}

func toEvent(p model.Principal, src model.EventSource, names map[uuid.UUID]string) model.CalendarEvent {
	switch v := src.(type) {
	case *model.Appointment:
		return appointmentEvent(p, v, names)
	case *model.BlockedSlot:
		return blockedEvent(v)
	default:
		panic(fmt.Sprintf("calendar: unhandled event source %T", src))
	}
}

func appointmentEvent(p model.Principal, a *model.Appointment, names map[uuid.UUID]string) model.CalendarEvent {
	editable := p.CanEdit(a)
	status := a.Status
	serviceID := a.ServiceID
	ev := model.CalendarEvent{
		ID:        a.ID,
		Title:     title(names[a.ServiceID], names[a.PatientID]),
		Start:     a.Start,
		End:       a.End,
		Kind:      model.EventKindAppointment,
		Editable:  editable,
		StaffIDs:  append([]uuid.UUID(nil), a.StaffIDs...),
		ServiceID: &serviceID,
		Status:    &status,
		Location:  a.Location.Normalized(),
		Color:     a.Status.Color(),
		Metadata: map[string]interface{}{
			"created_by": a.CreatedBy,
		},
	}
	if a.Description != "" {
		ev.Metadata["description"] = a.Description
	}

	// patients never see who else is booked
	if p.Role == model.RolePatient && !editable {
		ev.Title = title(names[a.ServiceID], "")
		delete(ev.Metadata, "description")
		return ev
	}
	patientID := a.PatientID
	ev.PatientID = &patientID
	return ev
}

func blockedEvent(b *model.BlockedSlot) model.CalendarEvent {
	return model.CalendarEvent{
		ID:       b.ID,
		Title:    model.BlockedTitle,
		Start:    b.Start,
		End:      b.End,
		Kind:     model.EventKindBlocked,
		Editable: false,
		StaffIDs: []uuid.UUID{b.StaffID},
		Location: model.UnspecifiedLocation(),
	}
}

func title(service, patient string) string {
	switch {
	case service != "" && patient != "":
		return service + " - " + patient
	case service != "":
		return service
	case patient != "":
		return patient
	default:
		return "Appointment"
	}
}

type invalidation struct {
	OrganizationID uuid.UUID `json:"org_id"`
	Origin         string    `json:"origin"`
}

// Invalidate drops cached projections of the organization here and asks
// other instances to do the same.
func (s *Service) Invalidate(ctx context.Context, orgID uuid.UUID) {
	s.cache.Flush(orgID)
	if s.broker == nil {
		return
	}

	payload, err := json.Marshal(invalidation{OrganizationID: orgID, Origin: s.instanceID})
	if err == nil {
		err = s.broker.Publish(ctx, messaging.ChannelCalendarInvalidate, payload)
	}
	if err != nil {
		s.log.WithContext(ctx).Warn("failed to broadcast calendar invalidation",
			"org_id", orgID.String(),
			"error", err.Error(),
		)
	}
}

// Listen applies invalidations published by other instances until ctx is
// done.
func (s *Service) Listen(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}
	return s.broker.Subscribe(ctx, messaging.ChannelCalendarInvalidate, func(raw []byte) error {
		var msg invalidation
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("failed to decode invalidation: %w", err)
		}
		if msg.Origin != s.instanceID {
			s.cache.Flush(msg.OrganizationID)
		}
		return nil
	})
}
