// Package event delivers domain events raised by committed writes to their handlers
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// defaultHandlerTimeout bounds one asynchronous handler call
const defaultHandlerTimeout = 10 * time.Second

// InMemoryEventBus dispatches events to in-process handlers.
// Once started it dispatches in the background so publishers never wait on
// handlers; before Start (and after Stop) it dispatches synchronously.
type InMemoryEventBus struct {
	registry       *registry
	logger         *zap.Logger
	mu             sync.RWMutex // guards running against wg.Add racing Stop's Wait
	running        bool
	wg             sync.WaitGroup
	handlerTimeout time.Duration
}

// Option configures the bus
type Option func(*InMemoryEventBus)

// WithHandlerTimeout bounds each background handler call
func WithHandlerTimeout(d time.Duration) Option {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(log *zap.Logger, opts ...Option) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry:       newRegistry(),
		logger:         log,
		handlerTimeout: defaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands every event to its handlers. Handler failures are logged, never returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		for _, h := range b.registry.handlersFor(ev.EventType()) {
			if !b.track() {
				b.dispatch(ctx, h, ev)
				continue
			}
			go func(h shared.EventHandler, ev shared.DomainEvent) {
				defer b.wg.Done()
				// detach from the request so a finished reply does not cancel delivery
				detached := logger.WithScope(logger.WithContext(context.Background(), logger.FromContext(ctx)), logger.ScopeFrom(ctx))
				hctx, cancel := context.WithTimeout(detached, b.handlerTimeout)
				defer cancel()
				b.dispatch(hctx, h, ev)
			}(h, ev)
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.add(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.remove(handler)
}

// Start switches the bus to background delivery
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	b.logger.Info("Event bus started")
	return nil
}

// Stop waits for in-flight deliveries or until ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// track registers one background delivery, or reports false when the bus is not running
func (b *InMemoryEventBus) track() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h.Handle(ctx, ev); err != nil {
		logger.Enrich(ctx, b.logger).Warn("Event handler failed",
			zap.String("event_type", ev.EventType()),
			zap.String("event_id", ev.EventID()),
			zap.String("aggregate_id", ev.AggregateID()),
			zap.Error(err),
		)
	}
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
