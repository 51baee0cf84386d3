// Package handler exposes the quote state machine over HTTP on both the web
// and mobile surfaces.
package handler

import (
	"net/http"

	"workshop_portal_backend/internal/workshop/service"
	"workshop_portal_backend/internal/workshop/transport"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler serves the tenant-scoped web quote routes.
type Handler struct {
	svc *service.Service
}

// New creates a web quote handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the web quote routes on the company group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/workshop/quotes")
	quotes.GET("/:quoteId", h.Get)
	quotes.PATCH("/:quoteId", h.Update)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Get(c *gin.Context) {
	company, ok := pathUUID(c, "companyId")
	if !ok {
		return
	}
	quote, ok := pathUUID(c, "quoteId")
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), company, quote, nil)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.Envelope(found)})
}

func (h *Handler) Update(c *gin.Context) {
	company, ok := pathUUID(c, "companyId")
	if !ok {
		return
	}
	quote, ok := pathUUID(c, "quoteId")
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.QuoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	updated, err := h.svc.ApplyUpdate(c.Request.Context(), company, quote, nil, id.UserID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"data": transport.Envelope(updated)})
}

// MobileHandler serves the branch-scoped mobile quote routes.
type MobileHandler struct {
	svc *service.Service
}

// NewMobile creates a mobile quote handler.
func NewMobile(svc *service.Service) *MobileHandler {
	return &MobileHandler{svc: svc}
}

// RegisterRoutes mounts the mobile quote routes on the mobile company group.
func (h *MobileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/branches/:branchId/workshop/quotes")
	quotes.GET("/:quoteId", h.Get)
	quotes.PATCH("/:quoteId", h.Update)
}

func mobileError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperr.Error); ok {
		c.JSON(appErr.HTTPStatus(), gin.H{"success": false, "error": appErr.Message})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func mobilePathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInvalidRequest})
		return uuid.Nil, false
	}
	return id, true
}

func (h *MobileHandler) Get(c *gin.Context) {
	company, ok := mobilePathUUID(c, "companyId")
	if !ok {
		return
	}
	branch, ok := mobilePathUUID(c, "branchId")
	if !ok {
		return
	}
	quote, ok := mobilePathUUID(c, "quoteId")
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), company, quote, &branch)
	if err != nil {
		mobileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": transport.Envelope(found)})
}

func (h *MobileHandler) Update(c *gin.Context) {
	company, ok := mobilePathUUID(c, "companyId")
	if !ok {
		return
	}
	branch, ok := mobilePathUUID(c, "branchId")
	if !ok {
		return
	}
	quote, ok := mobilePathUUID(c, "quoteId")
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.QuoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInvalidRequest})
		return
	}

	updated, err := h.svc.ApplyUpdate(c.Request.Context(), company, quote, &branch, id.UserID(), req)
	if err != nil {
		mobileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": transport.Envelope(updated)})
}
