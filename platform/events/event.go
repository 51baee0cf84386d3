// Package events provides the in-process event bus the modules use to
// talk to each other without importing one another.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event. EventName doubles as the
// subscription key on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish dispatches the event to its handlers asynchronously.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event inline; handler errors reach the caller.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name the event reports
	// from EventName.
	Subscribe(eventName string, handler Handler)
}

// Handler processes events of a single type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// BaseEvent carries the timestamp shared by all events. Embed it and
// implement EventName to get a complete Event.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// OccurredAt returns the event's timestamp.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}
