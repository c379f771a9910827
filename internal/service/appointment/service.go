package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/clinic-scheduler/internal/lock"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/event"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

var tracer = otel.Tracer("scheduler/appointment")

// References resolves the catalog rows a booking points at. Unknown ids fail
// with a not found error.
type References interface {
	GetPatient(ctx context.Context, orgID, id uuid.UUID) (*model.Patient, error)
	GetStaff(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error)
	GetService(ctx context.Context, orgID, id uuid.UUID) (*model.Service, error)
	GetLocation(ctx context.Context, orgID, id uuid.UUID) (*model.Location, error)
}

// Invalidator drops cached calendar projections for an organization.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID uuid.UUID)
}

type Service struct {
	repo      repository.AppointmentRepository
	refs      References
	policy    *Policy
	conflicts ConflictChecker
	locker    lock.Locker
	events    event.Emitter
	cache     Invalidator
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	refs References,
	policy *Policy,
	locker lock.Locker,
	events event.Emitter,
	cache Invalidator,
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
		repo:      repo,
		refs:      refs,
		policy:    policy,
		conflicts: AllowOverlaps{},
		locker:    locker,
		events:    events,
		cache:     cache,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// WithConflictChecker replaces the overlap policy.
func (s *Service) WithConflictChecker(c ConflictChecker) *Service {
	s.conflicts = c
	return s
}

// CreateAppointment validates and stores a new booking. A missing status
// defaults to PENDING and a missing created_by to the caller's actor type.
func (s *Service) CreateAppointment(ctx context.Context, p model.Principal, draft model.AppointmentDraft) (apt *model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.create")
	defer s.finish("create", span, time.Now(), &err)

	if draft.CreatedBy == "" {
		draft.CreatedBy = p.Actor()
	}
	validated, err := s.policy.Validate(draft, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	apt = &model.Appointment{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	assign(apt, validated)

	if !p.CanEdit(apt) {
		return nil, errors.NewForbidden("not allowed to book this appointment")
	}
	if err := s.checkReferences(ctx, p.OrganizationID, validated); err != nil {
		return nil, err
	}
	if err := s.conflicts.Check(ctx, p.OrganizationID, validated, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	span.SetAttributes(attribute.String("appointment.id", apt.ID.String()))

	s.afterCommit(ctx, p, model.EventAppointmentCreated, apt, nil)
	return apt, nil
}

// GetAppointment returns one appointment. Patients only see their own.
func (s *Service) GetAppointment(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.load(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if p.Role == model.RolePatient && !p.CanEdit(apt) {
		return nil, errors.NewNotFound("appointment", repository.ErrNotFound)
	}
	return apt, nil
}

// UpdateAppointment applies a partial update under the appointment's write
// lock: load, clamp, validate, persist. Concurrent updates to the same id are
// applied one after another and the last one wins.
func (s *Service) UpdateAppointment(ctx context.Context, p model.Principal, id uuid.UUID, upd model.AppointmentUpdate) (apt *model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.update", trace.WithAttributes(
		attribute.String("appointment.id", id.String()),
	))
	defer s.finish("update", span, time.Now(), &err)

	var previous *model.Appointment
	err = s.locker.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := s.load(ctx, p.OrganizationID, id)
		if err != nil {
			return err
		}
		if !p.CanEdit(current) {
			return errors.NewForbidden("not allowed to modify this appointment")
		}
		if upd.Empty() {
			apt = current
			return nil
		}

		validated, err := s.policy.Validate(ApplyUpdate(current, upd), current)
		if err != nil {
			return err
		}

		next := current.Clone()
		assign(next, validated)
		next.UpdatedAt = s.now().UTC()
		if !p.CanEdit(next) {
			return errors.NewForbidden("not allowed to reassign this appointment")
		}
		if err := s.checkReferences(ctx, p.OrganizationID, validated); err != nil {
			return err
		}
		if err := s.conflicts.Check(ctx, p.OrganizationID, validated, &id); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, next); err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return errors.NewNotFound("appointment", err)
			}
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		previous, apt = current, next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != nil {
		s.afterCommit(ctx, p, model.EventAppointmentUpdated, apt, previous)
	}
	return apt, nil
}

// DeleteAppointment hard deletes a booking. Deleting an id that no longer
// exists is a not found error.
func (s *Service) DeleteAppointment(ctx context.Context, p model.Principal, id uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "appointment.delete", trace.WithAttributes(
		attribute.String("appointment.id", id.String()),
	))
	defer s.finish("delete", span, time.Now(), &err)

	var removed *model.Appointment
	err = s.locker.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := s.load(ctx, p.OrganizationID, id)
		if err != nil {
			return err
		}
		if !p.CanEdit(current) {
			return errors.NewForbidden("not allowed to delete this appointment")
		}
		if err := s.repo.Delete(ctx, p.OrganizationID, id); err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return errors.NewNotFound("appointment", err)
			}
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		removed = current
		return nil
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, p, model.EventAppointmentDeleted, removed, nil)
	return nil
}

func (s *Service) load(ctx context.Context, orgID, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	apt.Color = apt.Status.Color()
	return apt, nil
}

// checkReferences resolves every referenced catalog row and checks that the
// selected staff may deliver the service.
func (s *Service) checkReferences(ctx context.Context, orgID uuid.UUID, draft model.AppointmentDraft) error {
	if _, err := s.refs.GetPatient(ctx, orgID, draft.PatientID); err != nil {
		return err
	}
	if _, err := s.refs.GetStaff(ctx, orgID, draft.StaffIDs); err != nil {
		return err
	}
	svc, err := s.refs.GetService(ctx, orgID, draft.ServiceID)
	if err != nil {
		return err
	}
	if draft.Location.Kind == model.LocationPhysical {
		if _, err := s.refs.GetLocation(ctx, orgID, *draft.Location.LocationID); err != nil {
			return err
		}
	}
	return CheckAssignment(draft, svc)
}

// afterCommit runs the best-effort steps that follow a successful write.
// Failures are logged and never fail the command.
func (s *Service) afterCommit(ctx context.Context, p model.Principal, eventType string, apt, previous *model.Appointment) {
	s.cache.Invalidate(ctx, apt.OrganizationID)

	payload := model.AppointmentEvent{
		Type:        eventType,
		Appointment: apt,
		Previous:    previous,
		ActorID:     p.UserID,
		Timestamp:   s.now().UTC(),
	}
	if err := s.events.Emit(ctx, apt.OrganizationID, eventType, payload); err != nil {
		s.log.WithContext(ctx).Warn("failed to enqueue appointment event",
			"event_type", eventType,
			"appointment_id", apt.ID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) finish(command string, span trace.Span, start time.Time, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		outcome = outcomeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.Commands.WithLabelValues(command, outcome).Inc()
	s.metrics.CommandLatency.WithLabelValues(command).Observe(time.Since(start).Seconds())
	span.End()
}

func outcomeOf(err error) string {
	switch {
	case errors.IsValidation(err):
		return "validation"
	case errors.IsIllegalTransition(err):
		return "illegal_transition"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.IsForbidden(err):
		return "forbidden"
	case errors.IsConflict(err):
		return "conflict"
	case stderrors.Is(err, lock.ErrLockNotAcquired):
		return "lock_timeout"
	default:
		return "error"
	}
}

func assign(apt *model.Appointment, d model.AppointmentDraft) {
	apt.PatientID = d.PatientID
	apt.StaffIDs = append([]uuid.UUID(nil), d.StaffIDs...)
	apt.ServiceID = d.ServiceID
	apt.Location = d.Location
	apt.Start = d.Start
	apt.End = d.End
	apt.Status = d.Status
	apt.Description = d.Description
	apt.CreatedBy = d.CreatedBy
	apt.Color = d.Status.Color()
}
