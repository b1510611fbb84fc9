// Package eventbus defines the contract for publishing domain events.
package eventbus

import (
	"context"

	"github.com/velohr/settlement/pkg/domain/events"
)

// HandlerFunc consumes one event. Errors are logged by the bus, never
// propagated to the emitter.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus is the contract for emitting and subscribing to domain events.
type Bus interface {
	// Emit dispatches the event to all handlers registered for its type.
	Emit(ctx context.Context, e events.Event) error

	// Register subscribes a handler to an event type.
	Register(eventType string, handler HandlerFunc)
}
