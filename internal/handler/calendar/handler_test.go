package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/middleware"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/tenancy"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type recordingProjector struct {
	r      model.TimeRange
	filter model.ProjectionFilter
	events []model.CalendarEvent
}

func (p *recordingProjector) Project(_ context.Context, _ model.Principal, r model.TimeRange, f model.ProjectionFilter) ([]model.CalendarEvent, error) {
	p.r, p.filter = r, f
	return p.events, nil
}

func serve(t *testing.T, proj Projector, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Nop()))
	r.Use(func(c *gin.Context) {
		p := model.Principal{UserID: uuid.New(), OrganizationID: uuid.New(), Role: model.RoleAdmin}
		c.Request = c.Request.WithContext(tenancy.WithPrincipal(c.Request.Context(), p))
		c.Next()
	})
	NewHandler(proj).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestGetCalendarParsesFilters(t *testing.T) {
	staffA, staffB, loc := uuid.New(), uuid.New(), uuid.New()
	proj := &recordingProjector{}

	target := "/calendar?from=2024-06-03T00:00:00Z&to=1717459200000" +
		"&staff_id=" + staffA.String() + "," + staffB.String() +
		"&location=telemedicine&location=" + loc.String()
	w := serve(t, proj, target)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), proj.r.From)
	assert.Equal(t, time.UnixMilli(1717459200000).UTC(), proj.r.To)
	assert.Equal(t, []uuid.UUID{staffA, staffB}, proj.filter.StaffIDs)
	assert.Equal(t, []model.LocationFilter{model.TelemedicineOnly(), model.SpecificLocation(loc)}, proj.filter.Locations)
}

func TestGetCalendarRendersInRequestedZone(t *testing.T) {
	start := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	proj := &recordingProjector{events: []model.CalendarEvent{{
		ID: uuid.New(), Title: "Busy", Start: start, End: start.Add(time.Hour), Kind: model.EventKindBlocked,
	}}}

	w := serve(t, proj, "/calendar?from=2024-06-03T00:00:00Z&to=2024-06-04T00:00:00Z&tz=America/New_York")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Timezone string `json:"timezone"`
			Events   []struct {
				Start string `json:"start"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "America/New_York", body.Data.Timezone)
	require.Len(t, body.Data.Events, 1)
	assert.Equal(t, "2024-06-03T10:00:00-04:00", body.Data.Events[0].Start)
}

func TestGetCalendarRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"missing range": "/calendar",
		"bad instant":   "/calendar?from=yesterday&to=2024-06-04T00:00:00Z",
		"bad staff id":  "/calendar?from=2024-06-03T00:00:00Z&to=2024-06-04T00:00:00Z&staff_id=nope",
		"bad location":  "/calendar?from=2024-06-03T00:00:00Z&to=2024-06-04T00:00:00Z&location=mars",
		"unknown tz":    "/calendar?from=2024-06-03T00:00:00Z&to=2024-06-04T00:00:00Z&tz=Mars/Olympus",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			w := serve(t, &recordingProjector{}, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
