package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeRange is the half-open window [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("range requires both from and to")
	}
	if !r.To.After(r.From) {
		return fmt.Errorf("range end must be after range start")
	}
	return nil
}

// UTC normalizes both bounds.
func (r TimeRange) UTC() TimeRange {
	return TimeRange{From: r.From.UTC(), To: r.To.UTC()}
}

// Overlaps reports whether [start, end) intersects the range. A zero-length
// interval counts as the instant start.
func (r TimeRange) Overlaps(start, end time.Time) bool {
	if !start.Before(r.To) {
		return false
	}
	if end.Equal(start) {
		return !start.Before(r.From)
	}
	return end.After(r.From)
}

type BlockedSlot struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	StaffID        uuid.UUID `json:"staff_id" db:"staff_id"`
	Start          time.Time `json:"start" db:"start_time"`
	End            time.Time `json:"end" db:"end_time"`
	Reason         string    `json:"reason,omitempty" db:"reason"`
}

// EventSource is the closed set of records a calendar event can come from.
type EventSource interface {
	eventSource()
}

func (*Appointment) eventSource() {}
func (*BlockedSlot) eventSource() {}

type EventKind string

const (
	EventKindAppointment EventKind = "appointment"
	EventKindBlocked     EventKind = "blocked"
)

// BlockedTitle is shown for every blocked slot.
const BlockedTitle = "Busy"

// CalendarEvent is the renderable projection of an EventSource.
type CalendarEvent struct {
	ID        uuid.UUID              `json:"id"`
	Title     string                 `json:"title"`
	Start     time.Time              `json:"start"`
	End       time.Time              `json:"end"`
	Kind      EventKind              `json:"kind"`
	Editable  bool                   `json:"editable"`
	StaffIDs  []uuid.UUID            `json:"staff_ids"`
	PatientID *uuid.UUID             `json:"patient_id,omitempty"`
	ServiceID *uuid.UUID             `json:"service_id,omitempty"`
	Status    *AppointmentStatus     `json:"status,omitempty"`
	Location  LocationMode           `json:"location"`
	Color     string                 `json:"color,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ProjectionFilter narrows a calendar query. Empty slices mean no restriction.
type ProjectionFilter struct {
	StaffIDs   []uuid.UUID
	ServiceIDs []uuid.UUID
	Locations  []LocationFilter
}

// LocationRestricted reports whether any location filter other than All is set.
func (f ProjectionFilter) LocationRestricted() bool {
	for _, l := range f.Locations {
		if l.Kind == LocationFilterAll {
			return false
		}
	}
	return len(f.Locations) > 0
}

// AppointmentQuery is what the store is asked for when projecting.
type AppointmentQuery struct {
	OrganizationID uuid.UUID
	Range          TimeRange
	Filter         ProjectionFilter
}

// Matches applies the query to a single appointment.
func (q AppointmentQuery) Matches(a *Appointment) bool {
	if a.OrganizationID != q.OrganizationID || !q.Range.Overlaps(a.Start, a.End) {
		return false
	}
	if len(q.Filter.StaffIDs) > 0 && !anyStaff(a, q.Filter.StaffIDs) {
		return false
	}
	if len(q.Filter.ServiceIDs) > 0 && !containsID(q.Filter.ServiceIDs, a.ServiceID) {
		return false
	}
	if q.Filter.LocationRestricted() {
		for _, l := range q.Filter.Locations {
			if l.Matches(a.Location.Normalized()) {
				return true
			}
		}
		return false
	}
	return true
}

type BlockedSlotQuery struct {
	OrganizationID uuid.UUID
	Range          TimeRange
	StaffIDs       []uuid.UUID
}

func (q BlockedSlotQuery) Matches(b *BlockedSlot) bool {
	if b.OrganizationID != q.OrganizationID || !q.Range.Overlaps(b.Start, b.End) {
		return false
	}
	return len(q.StaffIDs) == 0 || containsID(q.StaffIDs, b.StaffID)
}

func anyStaff(a *Appointment, ids []uuid.UUID) bool {
	for _, id := range ids {
		if a.HasStaff(id) {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
