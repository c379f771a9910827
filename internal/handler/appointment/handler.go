package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type Service interface {
	CreateAppointment(ctx context.Context, p model.Principal, draft model.AppointmentDraft) (*model.Appointment, error)
	GetAppointment(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, p model.Principal, id uuid.UUID, upd model.AppointmentUpdate) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, p model.Principal, id uuid.UUID) error
}

// Projector renders a single appointment the way the calendar shows it.
type Projector interface {
	ProjectAppointment(ctx context.Context, p model.Principal, a *model.Appointment) (model.CalendarEvent, error)
}

type Handler struct {
	service   Service
	projector Projector
	log       *logger.Logger
}

func NewHandler(service Service, projector Projector, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, projector: projector, log: log}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequest("invalid request body", err))
		return
	}

	apt, err := h.service.CreateAppointment(c.Request.Context(), p, req.draft())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(h.render(c, p, apt)))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), p, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.render(c, p, apt)))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequest("invalid request body", err))
		return
	}

	apt, err := h.service.UpdateAppointment(c.Request.Context(), p, id, req.update())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.render(c, p, apt)))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteAppointment(c.Request.Context(), p, id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.Response{
		Status:  "success",
		Message: "appointment deleted",
		Data:    gin.H{"id": id},
	})
}

// render attaches the calendar event. The write already happened, so a
// projection failure only drops the event from the response.
func (h *Handler) render(c *gin.Context, p model.Principal, apt *model.Appointment) appointmentResponse {
	resp := appointmentResponse{Appointment: apt}
	if h.projector == nil {
		return resp
	}
	ctx := c.Request.Context()
	evt, err := h.projector.ProjectAppointment(ctx, p, apt)
	if err != nil {
		h.log.WithContext(ctx).Warn("failed to project appointment",
			"appointment_id", apt.ID.String(),
			"error", err.Error(),
		)
		return resp
	}
	resp.Event = &evt
	return resp
}
