package handler

import (
	"net/http"

	"workshop_portal_backend/internal/leads/service"
	"workshop_portal_backend/internal/leads/transport"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/httpkit"
	"workshop_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MobileHandler serves the technician-facing mobile surface. Same workflows
// as the web handler, wrapped in the mobile {success, data} envelope.
type MobileHandler struct {
	svc      *service.Service
	validate *validator.Validator
}

// NewMobile creates a mobile lead handler.
func NewMobile(svc *service.Service, validate *validator.Validator) *MobileHandler {
	return &MobileHandler{svc: svc, validate: validate}
}

// RegisterRoutes mounts the mobile lead routes on the mobile company group.
func (h *MobileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:leadId", h.GetByID)
	rg.PUT("/leads/:leadId", h.Update)
	rg.POST("/rsa/leads/:leadId/transition", h.Transition)
}

func mobileSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func mobileError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperr.Error); ok {
		c.JSON(appErr.HTTPStatus(), gin.H{"success": false, "error": appErr.Message})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func mobileLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInvalidRequest})
		return uuid.Nil, false
	}
	return id, true
}

func (h *MobileHandler) GetByID(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := mobileLeadID(c)
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), company, lead)
	if err != nil {
		mobileError(c, err)
		return
	}

	mobileSuccess(c, http.StatusOK, gin.H{"lead": transport.FromLead(found)})
}

func (h *MobileHandler) Update(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := mobileLeadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInvalidRequest})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgValidationFailed})
		return
	}

	updated, err := h.svc.ApplyAssignment(c.Request.Context(), company, lead, id.UserID(), req)
	if err != nil {
		mobileError(c, err)
		return
	}

	mobileSuccess(c, http.StatusOK, gin.H{"lead": transport.FromLead(updated)})
}

func (h *MobileHandler) Transition(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	lead, ok := mobileLeadID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInvalidRequest})
		return
	}

	updated, err := h.svc.TransitionRSA(c.Request.Context(), company, lead, id.UserID(), req)
	if err != nil {
		mobileError(c, err)
		return
	}

	mobileSuccess(c, http.StatusOK, gin.H{"lead": transport.FromLead(updated)})
}
