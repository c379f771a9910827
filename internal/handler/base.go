package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/tenancy"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// Principal returns the authenticated caller. Routes behind Authenticate
// always have one.
func Principal(c *gin.Context) (model.Principal, error) {
	p, ok := tenancy.PrincipalFromContext(c.Request.Context())
	if !ok {
		return model.Principal{}, errors.Unauthorized(nil)
	}
	return p, nil
}

// UUIDParam parses a path parameter.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.NewValidation(errors.FieldError{Field: name, Message: "must be a UUID"})
	}
	return id, nil
}

// UUIDQuery parses a repeatable query parameter. Comma separated values are
// accepted too.
func UUIDQuery(c *gin.Context, name string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range splitQuery(c.QueryArray(name)) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.NewValidation(errors.FieldError{Field: name, Message: "must be a list of UUIDs"})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SplitQuery is splitQuery for callers outside this package.
func SplitQuery(c *gin.Context, name string) []string {
	return splitQuery(c.QueryArray(name))
}

// ParseInstant accepts RFC 3339 or epoch milliseconds.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Instant is a JSON instant in either RFC 3339 or epoch milliseconds.
type Instant struct {
	time.Time
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		i.Time = time.Time{}
		return nil
	}
	t, err := ParseInstant(s)
	if err != nil {
		return err
	}
	i.Time = t
	return nil
}

// Ptr returns nil for an absent instant.
func (i *Instant) Ptr() *time.Time {
	if i == nil || i.Time.IsZero() {
		return nil
	}
	t := i.Time
	return &t
}

// TimeRangeQuery reads the from and to query parameters.
func TimeRangeQuery(c *gin.Context) (model.TimeRange, error) {
	var details []errors.FieldError
	instant := func(name string) time.Time {
		raw := c.Query(name)
		if raw == "" {
			details = append(details, errors.FieldError{Field: name, Message: "is required"})
			return time.Time{}
		}
		t, err := ParseInstant(raw)
		if err != nil {
			details = append(details, errors.FieldError{Field: name, Message: "must be RFC 3339 or epoch milliseconds"})
		}
		return t
	}

	r := model.TimeRange{From: instant("from"), To: instant("to")}
	if len(details) > 0 {
		return model.TimeRange{}, errors.NewValidation(details...)
	}
	return r, nil
}
