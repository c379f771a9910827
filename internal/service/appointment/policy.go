package appointment

import (
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/validator"
)

// Policy validates a proposed booking before it is committed.
type Policy struct {
	validator validator.Validator
}

func NewPolicy(v validator.Validator) *Policy {
	if v == nil {
		v = validator.New()
	}
	return &Policy{validator: v}
}

// Validate checks a draft and returns it normalized (UTC instants, explicit
// location kind, default status). existing is nil on create. Field problems
// come back together as one validation error; a bad status change on an
// otherwise valid draft is an illegal transition.
func (p *Policy) Validate(draft model.AppointmentDraft, existing *model.Appointment) (model.AppointmentDraft, error) {
	draft.Start = draft.Start.UTC()
	draft.End = draft.End.UTC()
	draft.Location = draft.Location.Normalized()
	if draft.Status == "" {
		if existing != nil {
			draft.Status = existing.Status
		} else {
			draft.Status = model.AppointmentStatusPending
		}
	}

	details := p.validator.Validate(draft)

	if !draft.Start.IsZero() && !draft.End.IsZero() && draft.End.Before(draft.Start) {
		details = append(details, errors.FieldError{Field: "end", Message: "must not be before start"})
	}
	if problem := draft.Location.Check(); problem != "" {
		details = append(details, errors.FieldError{Field: "location", Message: problem})
	}
	if !draft.Status.Valid() {
		details = append(details, errors.FieldError{Field: "status", Message: "must be one of PENDING CONFIRMED COMPLETED CANCELED"})
	}
	if draft.CreatedBy != "" && !draft.CreatedBy.Valid() {
		details = append(details, errors.FieldError{Field: "created_by", Message: "must be patient or staff"})
	}
	if len(details) > 0 {
		return draft, errors.NewValidation(details...)
	}

	if existing != nil {
		if err := CheckTransition(existing.Status, draft.Status); err != nil {
			return draft, err
		}
	}
	return draft, nil
}

// CheckAssignment rejects staff that the service does not allow.
func CheckAssignment(draft model.AppointmentDraft, svc *model.Service) error {
	var details []errors.FieldError
	for _, id := range draft.StaffIDs {
		if !svc.AssignableTo(id) {
			details = append(details, errors.FieldError{
				Field:   "staff_ids",
				Message: "staff " + id.String() + " cannot deliver service " + svc.Name,
			})
		}
	}
	if len(details) > 0 {
		return errors.NewValidation(details...)
	}
	return nil
}
