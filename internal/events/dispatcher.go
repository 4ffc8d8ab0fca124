package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to one published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to in-process subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type syncDispatcher struct {
	mu     sync.RWMutex
	routes map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a Dispatcher that runs handlers on the
// publishing goroutine.
func NewInMemoryDispatcher() Dispatcher {
	return &syncDispatcher{routes: map[EventType][]EventHandler{}}
}

// Publish runs the handlers of event.Type in subscription order. Every
// handler runs even when an earlier one fails.
func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for i, handler := range d.snapshot(event.Type) {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s subscriber %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

func (d *syncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	d.routes[eventType] = append(d.routes[eventType], handler)
	d.mu.Unlock()
}

func (d *syncDispatcher) snapshot(eventType EventType) []EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]EventHandler(nil), d.routes[eventType]...)
}
