package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleProvider Role = "provider"
	RolePatient  Role = "patient"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Role           Role       `json:"role"`
	StaffID        *uuid.UUID `json:"staff_id,omitempty"`
	PatientID      *uuid.UUID `json:"patient_id,omitempty"`
}

// Actor is the booking actor type this principal creates appointments as.
func (p Principal) Actor() Actor {
	if p.Role == RolePatient {
		return ActorPatient
	}
	return ActorStaff
}

// CanEdit reports whether the principal may mutate the appointment.
func (p Principal) CanEdit(a *Appointment) bool {
	if a.OrganizationID != p.OrganizationID {
		return false
	}
	switch p.Role {
	case RoleAdmin, RoleStaff:
		return true
	case RoleProvider:
		return p.StaffID != nil && a.HasStaff(*p.StaffID)
	case RolePatient:
		return p.PatientID != nil && a.PatientID == *p.PatientID
	}
	return false
}
