// Package events broadcasts node and card changes to in-process subscribers.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously and must not block for long.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case NodePluggedEvent:
		event.Publish(b.dispatcher, e)
	case ActiveNodeChangedEvent:
		event.Publish(b.dispatcher, e)
	case NodesChangedEvent:
		event.Publish(b.dispatcher, e)
	case SevereUnderrunEvent:
		event.Publish(b.dispatcher, e)
	case CardAddedEvent:
		event.Publish(b.dispatcher, e)
	case CardRemovedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it receives.
// It returns the unsubscribe function, a no-op for an unknown handler type.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(NodePluggedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ActiveNodeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(NodesChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SevereUnderrunEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CardAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CardRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
