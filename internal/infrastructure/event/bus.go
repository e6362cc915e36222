// Package event delivers domain events to in-process handlers after the
// transaction that raised them has committed.
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultHandlerTimeout = 10 * time.Second

// Bus dispatches events synchronously to every subscribed handler. A failing
// or panicking handler is logged and does not stop the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
	timeout  time.Duration
	logger   *zap.Logger
}

// BusOption configures a Bus
type BusOption func(*Bus)

// WithHandlerTimeout bounds how long one handler may run
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]shared.EventHandler),
		timeout:  defaultHandlerTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given. A handler with no types sees every event.
func (b *Bus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
	}
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Publish delivers each event in order. It always returns nil; handler
// failures are logged with the event identity.
func (b *Bus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		for _, handler := range b.handlersFor(evt.EventType()) {
			if err := b.dispatch(ctx, handler, evt); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.String("tenant_id", evt.TenantID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (b *Bus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]shared.EventHandler, 0, len(b.handlers[eventType])+len(b.wildcard))
	out = append(out, b.handlers[eventType]...)
	return append(out, b.wildcard...)
}

func (b *Bus) dispatch(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	// the request may already be finishing; handlers get their own deadline
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	return handler.Handle(hctx, evt)
}

var _ shared.EventBus = (*Bus)(nil)
