package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type directory struct {
	patients map[uuid.UUID]*model.Patient
	staff    map[uuid.UUID]*model.Staff
	services map[uuid.UUID]*model.Service
}

func (d *directory) GetPatient(_ context.Context, _ uuid.UUID, id uuid.UUID) (*model.Patient, error) {
	if p, ok := d.patients[id]; ok {
		return p, nil
	}
	return nil, errors.NewNotFound("patient", nil)
}

func (d *directory) GetStaff(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*model.Staff, error) {
	var out []*model.Staff
	for _, id := range ids {
		s, ok := d.staff[id]
		if !ok {
			return nil, errors.NewNotFound("staff", nil)
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *directory) GetService(_ context.Context, _ uuid.UUID, id uuid.UUID) (*model.Service, error) {
	if s, ok := d.services[id]; ok {
		return s, nil
	}
	return nil, errors.NewNotFound("service", nil)
}

type sentMail struct{ to, subject, body string }

type outbox struct{ sent []sentMail }

func (o *outbox) SendCustom(_ context.Context, to, subject, content string) error {
	o.sent = append(o.sent, sentMail{to, subject, content})
	return nil
}

type setup struct {
	svc   *Service
	mail  *outbox
	apt   *model.Appointment
	staff []*model.Staff
}

func newSetup() *setup {
	patient := &model.Patient{ID: uuid.New(), Name: "Jane", Email: "jane@example.test"}
	s1 := &model.Staff{ID: uuid.New(), Name: "Dr. Ada", Email: "ada@example.test"}
	s2 := &model.Staff{ID: uuid.New(), Name: "Nurse Bo"}
	svc := &model.Service{ID: uuid.New(), Name: "Consultation"}

	dir := &directory{
		patients: map[uuid.UUID]*model.Patient{patient.ID: patient},
		staff:    map[uuid.UUID]*model.Staff{s1.ID: s1, s2.ID: s2},
		services: map[uuid.UUID]*model.Service{svc.ID: svc},
	}
	mail := &outbox{}
	return &setup{
		svc:   NewService(dir, mail, nil),
		mail:  mail,
		staff: []*model.Staff{s1, s2},
		apt: &model.Appointment{
			ID:        uuid.New(),
			PatientID: patient.ID,
			StaffIDs:  []uuid.UUID{s1.ID, s2.ID},
			ServiceID: svc.ID,
			Start:     time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
			End:       time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
			Status:    model.AppointmentStatusPending,
		},
	}
}

func TestStaffBookingNotifiesPatient(t *testing.T) {
	s := newSetup()
	s.apt.CreatedBy = model.ActorStaff

	require.NoError(t, s.svc.Notify(context.Background(), model.AppointmentEvent{
		Type: model.EventAppointmentCreated, Appointment: s.apt,
	}))
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, "jane@example.test", s.mail.sent[0].to)
	assert.Equal(t, "New appointment: Consultation", s.mail.sent[0].subject)
	assert.Contains(t, s.mail.sent[0].body, "Hello Jane")
}

func TestPatientBookingNotifiesStaffWithEmail(t *testing.T) {
	s := newSetup()
	s.apt.CreatedBy = model.ActorPatient

	require.NoError(t, s.svc.Notify(context.Background(), model.AppointmentEvent{
		Type: model.EventAppointmentCreated, Appointment: s.apt,
	}))
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, "ada@example.test", s.mail.sent[0].to)
}

func TestUpdateMentionsPreviousTime(t *testing.T) {
	s := newSetup()
	s.apt.CreatedBy = model.ActorStaff
	prev := s.apt.Clone()
	s.apt.Start = s.apt.Start.Add(time.Hour)

	require.NoError(t, s.svc.Notify(context.Background(), model.AppointmentEvent{
		Type: model.EventAppointmentUpdated, Appointment: s.apt, Previous: prev,
	}))
	require.Len(t, s.mail.sent, 1)
	assert.Contains(t, s.mail.sent[0].body, "previously on")
}

func TestHandleOutboxEvent(t *testing.T) {
	s := newSetup()
	s.apt.CreatedBy = model.ActorStaff
	payload, err := json.Marshal(model.AppointmentEvent{Type: model.EventAppointmentDeleted, Appointment: s.apt})
	require.NoError(t, err)

	require.NoError(t, s.svc.HandleOutboxEvent(context.Background(), &model.OutboxEvent{
		EventType: model.EventAppointmentDeleted, Payload: payload,
	}))
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, "Appointment removed: Consultation", s.mail.sent[0].subject)

	assert.NoError(t, s.svc.HandleOutboxEvent(context.Background(), &model.OutboxEvent{EventType: "other"}))
	assert.Error(t, s.svc.HandleOutboxEvent(context.Background(), &model.OutboxEvent{
		EventType: model.EventAppointmentCreated, Payload: json.RawMessage(`{}`),
	}))
}

func TestMissingPatientIsSkipped(t *testing.T) {
	s := newSetup()
	s.apt.CreatedBy = model.ActorStaff
	s.apt.PatientID = uuid.New()

	require.NoError(t, s.svc.Notify(context.Background(), model.AppointmentEvent{
		Type: model.EventAppointmentCreated, Appointment: s.apt,
	}))
	assert.Empty(t, s.mail.sent)
}
