package calendar

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/service/calendar"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type Projector interface {
	Project(ctx context.Context, p model.Principal, r model.TimeRange, f model.ProjectionFilter) ([]model.CalendarEvent, error)
}

type Handler struct {
	projector Projector
}

func NewHandler(projector Projector) *Handler {
	return &Handler{projector: projector}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/calendar", h.GetCalendar)
}

type calendarResponse struct {
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Events   []model.CalendarEvent `json:"events"`
}

// GetCalendar serves the calendar view for [from, to). Filters:
// staff_id and service_id (repeatable or comma separated), location
// ("all", "telemedicine" or a location id, repeatable) and tz for display.
func (h *Handler) GetCalendar(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}

	r, err := handler.TimeRangeQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		c.Error(err)
		return
	}
	loc, err := calendar.LoadZone(c.Query("tz"))
	if err != nil {
		c.Error(err)
		return
	}

	events, err := h.projector.Project(c.Request.Context(), p, r, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(calendarResponse{
		From:     r.From.In(loc).Format(time.RFC3339),
		To:       r.To.In(loc).Format(time.RFC3339),
		Timezone: loc.String(),
		Events:   calendar.InZone(events, loc),
	}))
}

func parseFilter(c *gin.Context) (model.ProjectionFilter, error) {
	staff, err := handler.UUIDQuery(c, "staff_id")
	if err != nil {
		return model.ProjectionFilter{}, err
	}
	services, err := handler.UUIDQuery(c, "service_id")
	if err != nil {
		return model.ProjectionFilter{}, err
	}

	var locations []model.LocationFilter
	for _, raw := range handler.SplitQuery(c, "location") {
		lf, err := model.ParseLocationFilter(raw)
		if err != nil {
			return model.ProjectionFilter{}, errors.NewValidation(errors.FieldError{Field: "location", Message: err.Error()})
		}
		locations = append(locations, lf)
	}

	return model.ProjectionFilter{
		StaffIDs:   staff,
		ServiceIDs: services,
		Locations:  locations,
	}, nil
}
