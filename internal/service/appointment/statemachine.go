package appointment

import (
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// transitions lists the permitted status changes. CANCELED and COMPLETED are
// terminal.
var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusPending:   {model.AppointmentStatusConfirmed, model.AppointmentStatusCanceled},
	model.AppointmentStatusConfirmed: {model.AppointmentStatusCompleted, model.AppointmentStatusCanceled},
}

// CanTransition reports whether an update may move an appointment from one
// status to another. Keeping the current status is always allowed.
func CanTransition(from, to model.AppointmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an illegal transition error when the change is not
// in the table.
func CheckTransition(from, to model.AppointmentStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return errors.NewIllegalTransition(string(from), string(to))
}
