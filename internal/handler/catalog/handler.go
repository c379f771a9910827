package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// Service lists the reference data a booking form is built from.
type Service interface {
	ListStaff(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Staff, error)
	ListPatients(ctx context.Context, orgID uuid.UUID, filter model.CatalogFilter) ([]*model.Patient, error)
	ListServices(ctx context.Context, orgID uuid.UUID) ([]*model.Service, error)
	ListLocations(ctx context.Context, orgID uuid.UUID) ([]*model.Location, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/staff", h.ListStaff)
	r.GET("/patients", h.ListPatients)
	r.GET("/services", h.ListServices)
	r.GET("/locations", h.ListLocations)
}

func (h *Handler) ListStaff(c *gin.Context) {
	p, filter, ok := h.prepare(c)
	if !ok {
		return
	}

	staff, err := h.service.ListStaff(c.Request.Context(), p.OrganizationID, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(staff))
}

// ListPatients is closed to patients. They book for themselves only.
func (h *Handler) ListPatients(c *gin.Context) {
	p, filter, ok := h.prepare(c)
	if !ok {
		return
	}
	if p.Role == model.RolePatient {
		c.Error(errors.NewForbidden("patients cannot list patients"))
		return
	}

	patients, err := h.service.ListPatients(c.Request.Context(), p.OrganizationID, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) ListServices(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}

	services, err := h.service.ListServices(c.Request.Context(), p.OrganizationID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(services))
}

func (h *Handler) ListLocations(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return
	}

	locations, err := h.service.ListLocations(c.Request.Context(), p.OrganizationID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(locations))
}

func (h *Handler) prepare(c *gin.Context) (model.Principal, model.CatalogFilter, bool) {
	p, err := handler.Principal(c)
	if err != nil {
		c.Error(err)
		return p, model.CatalogFilter{}, false
	}

	filter := model.CatalogFilter{Search: c.Query("search")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.Error(errors.NewValidation(errors.FieldError{Field: "limit", Message: "must be a non-negative integer"}))
			return p, filter, false
		}
		filter.Limit = limit
	}
	ids, err := handler.UUIDQuery(c, "id")
	if err != nil {
		c.Error(err)
		return p, filter, false
	}
	filter.IDs = ids
	return p, filter, true
}
