package calendar

import (
	"time"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// LoadZone resolves an IANA zone name for display. Empty means UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.NewValidation(errors.FieldError{Field: "tz", Message: "unknown time zone " + name})
	}
	return loc, nil
}

// InZone returns copies of events with instants expressed in loc. The
// instants themselves are unchanged.
func InZone(events []model.CalendarEvent, loc *time.Location) []model.CalendarEvent {
	out := make([]model.CalendarEvent, len(events))
	for i, ev := range events {
		ev.Start = ev.Start.In(loc)
		ev.End = ev.End.In(loc)
		out[i] = ev
	}
	return out
}
