package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Staff struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email,omitempty" db:"email"`
	Role           string    `json:"role,omitempty" db:"role"`
	Active         bool      `json:"active" db:"active"`
}

type Patient struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email,omitempty" db:"email"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
}

type Service struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OrganizationID uuid.UUID      `json:"organization_id" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	DurationMin    int            `json:"duration_minutes" db:"duration_minutes"`
	StaffIDs       pq.StringArray `json:"staff_ids" db:"staff_ids"`
}

// AssignableTo reports whether staff may deliver the service. An empty
// assignment list means anyone can.
func (s *Service) AssignableTo(staff uuid.UUID) bool {
	if len(s.StaffIDs) == 0 {
		return true
	}
	for _, raw := range s.StaffIDs {
		if id, err := uuid.Parse(raw); err == nil && id == staff {
			return true
		}
	}
	return false
}

type Location struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Address        string    `json:"address,omitempty" db:"address"`
	Timezone       string    `json:"timezone,omitempty" db:"timezone"`
}

// CatalogFilter narrows staff and patient listings.
type CatalogFilter struct {
	Search string `form:"search"`
	IDs    []uuid.UUID
	Limit  int `form:"limit"`
}
