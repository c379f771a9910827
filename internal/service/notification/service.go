// Package notification tells the other party of a booking when it changes.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/email"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// Directory resolves recipients and display names.
type Directory interface {
	GetPatient(ctx context.Context, orgID, id uuid.UUID) (*model.Patient, error)
	GetStaff(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error)
	GetService(ctx context.Context, orgID, id uuid.UUID) (*model.Service, error)
}

type Recipient struct {
	Name  string
	Email string
}

type Service struct {
	directory Directory
	emailSvc  email.Service
	logger    *logger.Logger
}

func NewService(directory Directory, emailSvc email.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{directory: directory, emailSvc: emailSvc, logger: log}
}

// HandleOutboxEvent decodes an appointment event and notifies its recipients.
// Unknown event types are ignored.
func (s *Service) HandleOutboxEvent(ctx context.Context, evt *model.OutboxEvent) error {
	switch evt.EventType {
	case model.EventAppointmentCreated, model.EventAppointmentUpdated, model.EventAppointmentDeleted:
	default:
		return nil
	}

	var payload model.AppointmentEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode appointment event: %w", err)
	}
	if payload.Appointment == nil {
		return fmt.Errorf("appointment event %s has no appointment", evt.ID)
	}
	return s.Notify(ctx, payload)
}

// Notify emails the counterpart of whoever booked the appointment: patients
// hear about bookings made by staff and assigned staff hear about bookings
// made by patients.
func (s *Service) Notify(ctx context.Context, evt model.AppointmentEvent) error {
	apt := evt.Appointment

	recipients, err := s.Recipients(ctx, apt)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	serviceName := "appointment"
	if svc, err := s.directory.GetService(ctx, apt.OrganizationID, apt.ServiceID); err == nil {
		serviceName = svc.Name
	} else if !errors.IsNotFound(err) {
		return err
	}

	subject, body := compose(evt, serviceName)
	for _, r := range recipients {
		if err := s.emailSvc.SendCustom(ctx, r.Email, subject, greet(r.Name)+body); err != nil {
			return fmt.Errorf("failed to notify %s: %w", r.Email, err)
		}
	}

	s.logger.WithContext(ctx).Info("appointment notification sent",
		"event_type", evt.Type,
		"appointment_id", apt.ID.String(),
		"recipients", len(recipients),
	)
	return nil
}

// Recipients applies the recipient policy. Rows that no longer exist or have
// no e-mail address are skipped.
func (s *Service) Recipients(ctx context.Context, apt *model.Appointment) ([]Recipient, error) {
	var out []Recipient

	switch apt.CreatedBy {
	case model.ActorPatient:
		for _, id := range apt.StaffIDs {
			staff, err := s.directory.GetStaff(ctx, apt.OrganizationID, []uuid.UUID{id})
			if err != nil {
				if errors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			if staff[0].Email != "" {
				out = append(out, Recipient{Name: staff[0].Name, Email: staff[0].Email})
			}
		}
	default:
		patient, err := s.directory.GetPatient(ctx, apt.OrganizationID, apt.PatientID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if patient.Email != "" {
			out = append(out, Recipient{Name: patient.Name, Email: patient.Email})
		}
	}
	return out, nil
}

func compose(evt model.AppointmentEvent, serviceName string) (string, string) {
	apt := evt.Appointment
	when := apt.Start.UTC().Format(time.RFC1123)

	var subject string
	var b strings.Builder
	switch evt.Type {
	case model.EventAppointmentCreated:
		subject = "New appointment: " + serviceName
		fmt.Fprintf(&b, "A %s appointment has been booked for %s.\n", serviceName, when)
	case model.EventAppointmentDeleted:
		subject = "Appointment removed: " + serviceName
		fmt.Fprintf(&b, "The %s appointment on %s has been removed.\n", serviceName, when)
	default:
		subject = "Appointment updated: " + serviceName
		fmt.Fprintf(&b, "Your %s appointment is now on %s.\n", serviceName, when)
		if prev := evt.Previous; prev != nil && !prev.Start.Equal(apt.Start) {
			fmt.Fprintf(&b, "It was previously on %s.\n", prev.Start.UTC().Format(time.RFC1123))
		}
	}
	fmt.Fprintf(&b, "Status: %s\n", apt.Status)
	return subject, b.String()
}

func greet(name string) string {
	if name == "" {
		return "Hello,\n\n"
	}
	return "Hello " + name + ",\n\n"
}
