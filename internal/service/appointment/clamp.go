package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// Clamp keeps end >= start after a single-bound edit. Moving start past the
// current end drags end along; moving end before the current start drags start
// back. When both bounds are supplied nothing is clamped and an inverted pair
// is left for validation to reject.
func Clamp(current *model.Appointment, newStart, newEnd *time.Time) (time.Time, time.Time) {
	start, end := current.Start, current.End

	switch {
	case newStart != nil && newEnd != nil:
		return newStart.UTC(), newEnd.UTC()
	case newStart != nil:
		start = newStart.UTC()
		if start.After(end) {
			end = start
		}
	case newEnd != nil:
		end = newEnd.UTC()
		if end.Before(start) {
			start = end
		}
	}
	return start, end
}

// ApplyUpdate merges a partial update onto the current state, clamping time
// bounds first.
func ApplyUpdate(current *model.Appointment, upd model.AppointmentUpdate) model.AppointmentDraft {
	draft := model.DraftFrom(current)
	draft.Start, draft.End = Clamp(current, upd.Start, upd.End)

	if upd.PatientID != nil {
		draft.PatientID = *upd.PatientID
	}
	if upd.StaffIDs != nil {
		draft.StaffIDs = append([]uuid.UUID(nil), upd.StaffIDs...)
	}
	if upd.ServiceID != nil {
		draft.ServiceID = *upd.ServiceID
	}
	draft.Location = draft.Location.Apply(upd.LocationID, upd.Telemedicine)
	if upd.Status != nil {
		draft.Status = *upd.Status
	}
	if upd.Description != nil {
		draft.Description = *upd.Description
	}
	return draft
}
