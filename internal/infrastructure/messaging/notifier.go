package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

// OrderNotifier publishes order events to "{prefix}.{event type}", e.g. "pos.order.completed".
// It is subscribed to the event bus, which logs and swallows its failures.
type OrderNotifier struct {
	publisher Publisher
	prefix    string
}

// NewOrderNotifier creates a notifier for the given subject prefix
func NewOrderNotifier(publisher Publisher, prefix string) *OrderNotifier {
	return &OrderNotifier{publisher: publisher, prefix: strings.TrimSuffix(prefix, ".")}
}

// EventTypes lists the order events that leave the process
func (n *OrderNotifier) EventTypes() []string {
	return []string{
		order.EventTypeOrderCompleted,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderCreditSettled,
	}
}

// Subject returns the subject an event type is published on
func (n *OrderNotifier) Subject(eventType string) string {
	if n.prefix == "" {
		return eventType
	}
	return n.prefix + "." + eventType
}

// Handle serialises the event and publishes it
func (n *OrderNotifier) Handle(ctx context.Context, ev shared.DomainEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return n.publisher.Publish(ctx, n.Subject(ev.EventType()), data)
}

var _ shared.EventHandler = (*OrderNotifier)(nil)
