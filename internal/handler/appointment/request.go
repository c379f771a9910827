package appointment

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// createRequest is the booking body. Instants may be RFC 3339 strings or
// epoch milliseconds.
type createRequest struct {
	PatientID    uuid.UUID               `json:"patient_id"`
	StaffIDs     []uuid.UUID             `json:"staff_ids"`
	ServiceID    uuid.UUID               `json:"service_id"`
	LocationID   *uuid.UUID              `json:"location_id"`
	Telemedicine bool                    `json:"telemedicine"`
	Start        handler.Instant         `json:"start"`
	End          handler.Instant         `json:"end"`
	Status       model.AppointmentStatus `json:"status"`
	Description  string                  `json:"description"`
}

func (r createRequest) draft() model.AppointmentDraft {
	return model.AppointmentDraft{
		PatientID:   r.PatientID,
		StaffIDs:    r.StaffIDs,
		ServiceID:   r.ServiceID,
		Location:    model.LocationModeFrom(r.LocationID, r.Telemedicine),
		Start:       r.Start.Time,
		End:         r.End.Time,
		Status:      r.Status,
		Description: r.Description,
	}
}

// updateRequest carries only the fields being changed.
type updateRequest struct {
	PatientID    *uuid.UUID               `json:"patient_id"`
	StaffIDs     []uuid.UUID              `json:"staff_ids"`
	ServiceID    *uuid.UUID               `json:"service_id"`
	LocationID   *uuid.UUID               `json:"location_id"`
	Telemedicine *bool                    `json:"telemedicine"`
	Start        *handler.Instant         `json:"start"`
	End          *handler.Instant         `json:"end"`
	Status       *model.AppointmentStatus `json:"status"`
	Description  *string                  `json:"description"`
}

func (r updateRequest) update() model.AppointmentUpdate {
	return model.AppointmentUpdate{
		PatientID:    r.PatientID,
		StaffIDs:     r.StaffIDs,
		ServiceID:    r.ServiceID,
		Start:        r.Start.Ptr(),
		End:          r.End.Ptr(),
		Status:       r.Status,
		Description:  r.Description,
		LocationID:   r.LocationID,
		Telemedicine: r.Telemedicine,
	}
}

// appointmentResponse pairs the stored record with its calendar rendering.
type appointmentResponse struct {
	Appointment *model.Appointment   `json:"appointment"`
	Event       *model.CalendarEvent `json:"event,omitempty"`
}
