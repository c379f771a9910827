package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCanceled  AppointmentStatus = "CANCELED"
)

// Valid reports enum membership.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCanceled:
		return true
	}
	return false
}

// Color is the display hint for a status. It is derived, never stored.
func (s AppointmentStatus) Color() string {
	switch s {
	case AppointmentStatusPending:
		return "#f5a623"
	case AppointmentStatusConfirmed:
		return "#2e7d32"
	case AppointmentStatusCompleted:
		return "#9e9e9e"
	case AppointmentStatusCanceled:
		return "#c62828"
	}
	return ""
}

// Actor records who initiated a booking.
type Actor string

const (
	ActorPatient Actor = "patient"
	ActorStaff   Actor = "staff"
)

func (a Actor) Valid() bool {
	return a == ActorPatient || a == ActorStaff
}

type Appointment struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	PatientID      uuid.UUID         `json:"patient_id"`
	StaffIDs       []uuid.UUID       `json:"staff_ids"`
	ServiceID      uuid.UUID         `json:"service_id"`
	Location       LocationMode      `json:"location"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Status         AppointmentStatus `json:"status"`
	Description    string            `json:"description,omitempty"`
	CreatedBy      Actor             `json:"created_by"`
	Color          string            `json:"color,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// HasStaff reports whether id is one of the assigned staff.
func (a *Appointment) HasStaff(id uuid.UUID) bool {
	for _, s := range a.StaffIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (a *Appointment) Clone() *Appointment {
	c := *a
	c.StaffIDs = append([]uuid.UUID(nil), a.StaffIDs...)
	if a.Location.LocationID != nil {
		id := *a.Location.LocationID
		c.Location.LocationID = &id
	}
	return &c
}

// AppointmentDraft is a proposed booking before validation.
type AppointmentDraft struct {
	PatientID   uuid.UUID         `json:"patient_id" validate:"required"`
	StaffIDs    []uuid.UUID       `json:"staff_ids" validate:"min=1,unique,dive,required"`
	ServiceID   uuid.UUID         `json:"service_id" validate:"required"`
	Location    LocationMode      `json:"location"`
	Start       time.Time         `json:"start" validate:"required"`
	End         time.Time         `json:"end" validate:"required"`
	Status      AppointmentStatus `json:"status,omitempty"`
	Description string            `json:"description,omitempty" validate:"max=2000"`
	CreatedBy   Actor             `json:"created_by,omitempty"`
}

// DraftFrom copies the mutable fields of an appointment into a draft.
func DraftFrom(a *Appointment) AppointmentDraft {
	c := a.Clone()
	return AppointmentDraft{
		PatientID:   c.PatientID,
		StaffIDs:    c.StaffIDs,
		ServiceID:   c.ServiceID,
		Location:    c.Location,
		Start:       c.Start,
		End:         c.End,
		Status:      c.Status,
		Description: c.Description,
		CreatedBy:   c.CreatedBy,
	}
}

// AppointmentUpdate is a partial update; nil fields are left unchanged.
type AppointmentUpdate struct {
	PatientID   *uuid.UUID         `json:"patient_id,omitempty"`
	StaffIDs    []uuid.UUID        `json:"staff_ids,omitempty"`
	ServiceID   *uuid.UUID         `json:"service_id,omitempty"`
	Start       *time.Time         `json:"start,omitempty"`
	End         *time.Time         `json:"end,omitempty"`
	Status      *AppointmentStatus `json:"status,omitempty"`
	Description *string            `json:"description,omitempty"`

	// LocationID and Telemedicine are resolved against the current location
	// by LocationMode.Apply.
	LocationID   *uuid.UUID `json:"location_id,omitempty"`
	Telemedicine *bool      `json:"telemedicine,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u AppointmentUpdate) Empty() bool {
	return u.PatientID == nil && u.StaffIDs == nil && u.ServiceID == nil &&
		u.LocationID == nil && u.Telemedicine == nil && u.Start == nil && u.End == nil &&
		u.Status == nil && u.Description == nil
}
