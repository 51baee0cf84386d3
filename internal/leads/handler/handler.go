// Package handler exposes the lead workflows over HTTP. The web surface
// wraps payloads in {data}; the mobile surface wraps them in {success, data}.
package handler

import (
	"net/http"

	"workshop_portal_backend/internal/leads/service"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/httpkit"
	"workshop_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the tenant-scoped web surface.
type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

// New creates a web lead handler.
func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

// RegisterRoutes mounts the web lead routes on the company group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/sales/leads")
	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.GET("/:id", h.GetByID)
	leads.PUT("/:id", h.Update)
	leads.DELETE("/:id", h.Delete)
	leads.GET("/:id/events", h.ListEvents)
}

func companyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}

	leads, err := h.svc.List(c.Request.Context(), company, c.Query("status"), c.Query("q"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.FromLeads(leads)})
}

func (h *Handler) Create(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Intake(c.Request.Context(), company, id.UserID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Created(c, gin.H{"data": transport.FromLead(result.Lead), "meta": result.Meta})
}

func (h *Handler) GetByID(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := leadID(c)
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), company, lead)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.FromLead(found)})
}

func (h *Handler) Update(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := leadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	updated, err := h.svc.ApplyAssignment(c.Request.Context(), company, lead, id.UserID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.FromLead(updated)})
}

// Delete removes a lead, or archives it when ?archive=true is passed.
func (h *Handler) Delete(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := leadID(c)
	if !ok {
		return
	}

	if c.Query("archive") == "true" {
		archived, err := h.svc.Archive(c.Request.Context(), company, lead)
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.OK(c, gin.H{"data": transport.FromLead(archived)})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), company, lead); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

func (h *Handler) ListEvents(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := leadID(c)
	if !ok {
		return
	}

	events, err := h.svc.ListEvents(c.Request.Context(), company, lead)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.FromLeadEvents(events)})
}
