package availability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

type Service interface {
	ListBlockedSlots(ctx context.Context, orgID uuid.UUID, r model.TimeRange, staffIDs []uuid.UUID) ([]*model.BlockedSlot, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/blocked-slots", h.ListBlockedSlots)
}

func (h *Handler) ListBlockedSlots(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}
	rng, err := handler.TimeRangeQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	staff, err := handler.UUIDQuery(c, "staff_id")
	if err != nil {
		c.Error(err)
		return
	}

	slots, err := h.service.ListBlockedSlots(c.Request.Context(), p.OrganizationID, rng, staff)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}
