// Package workshop provides the workshop quote bounded context module.
package workshop

import (
	"workshop_portal_backend/internal/events"
	apphttp "workshop_portal_backend/internal/http"
	"workshop_portal_backend/internal/workshop/handler"
	"workshop_portal_backend/internal/workshop/repository"
	"workshop_portal_backend/internal/workshop/service"
	"workshop_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the workshop bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	mobile  *handler.MobileHandler
	service *service.Service
}

// NewModule creates and wires the workshop module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{
		handler: handler.New(svc),
		mobile:  handler.NewMobile(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workshop"
}

// Service returns the quote service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the web and mobile quote routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Company)
	m.mobile.RegisterRoutes(ctx.Mobile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
