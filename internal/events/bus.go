package events

import (
	platformevents "workshop_portal_backend/platform/events"
	"workshop_portal_backend/platform/logger"
)

// InMemoryBus aliases the platform bus so modules only import
// internal/events for both the event types and the bus.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the process-local event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
