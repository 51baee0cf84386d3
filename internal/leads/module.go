// Package leads provides the lead bounded context module: intake, assignment
// coordination, the RSA technician flow, and the linked recovery sync.
package leads

import (
	branches "workshop_portal_backend/internal/branches/repository"
	crm "workshop_portal_backend/internal/crm/repository"
	"workshop_portal_backend/internal/events"
	apphttp "workshop_portal_backend/internal/http"
	insprepo "workshop_portal_backend/internal/inspections/repository"
	inspsvc "workshop_portal_backend/internal/inspections/service"
	"workshop_portal_backend/internal/leads/handler"
	"workshop_portal_backend/internal/leads/recovery"
	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/internal/leads/service"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"
	"workshop_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	mobile  *handler.MobileHandler
	service *service.Service
}

// NewModule creates and wires the leads module. scheduler may be nil when no
// task queue is configured.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.AssignmentConfig, log *logger.Logger, scheduler service.ReleaseScheduler) *Module {
	repo := repository.New(pool)
	branchRepo := branches.New(pool)
	crmRepo := crm.New(pool)
	inspectionManager := inspsvc.NewManager(insprepo.New(pool), log)
	recoverySync := recovery.New(branchRepo, repo, log)

	svc := service.New(service.Config{
		Store:             repo,
		CRM:               crmRepo,
		Branches:          branchRepo,
		Inspections:       inspectionManager,
		Recovery:          recoverySync,
		Scheduler:         scheduler,
		Bus:               eventBus,
		Logger:            log,
		AssignmentTimeout: cfg.GetAssignmentTimeout(),
	})

	return &Module{
		handler: handler.New(svc, val),
		mobile:  handler.NewMobile(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use (scheduler worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the web and mobile lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Company)
	m.mobile.RegisterRoutes(ctx.Mobile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
