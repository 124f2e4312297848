// Package outbox describes how domain events leave the component that raised
// them. Delivery is asynchronous and at-most-once.
package outbox

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by Publish once the publisher has been stopped.
	ErrClosed = errors.New("outbox: closed")
	// ErrFull is returned by TryPublish when no queue slot is free.
	ErrFull = errors.New("outbox: queue full")
)

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// TryPublisher enqueues without waiting. Callers that hold a lock use it so a
// saturated queue costs a dropped event rather than a stall.
type TryPublisher interface {
	TryPublish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Bus is both ends of the event flow.
type Bus interface {
	Publisher
	Subscriber
}
