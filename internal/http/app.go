// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"workshop_portal_backend/internal/events"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the initialized application dependencies. main.go populates it
// and hands it to the router, which wires each module's routes.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
