package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something that happened to an aggregate
type DomainEvent interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
	TenantID() string
}

// BaseDomainEvent holds the envelope shared by every event. It is embedded in
// the concrete events and serialized as part of notification payloads.
type BaseDomainEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	AggID        string    `json:"aggregate_id"`
	AggType      string    `json:"aggregate_type"`
	Organization string    `json:"organization_id"`
}

func (e *BaseDomainEvent) EventID() string { return e.ID }
func (e *BaseDomainEvent) EventType() string { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() string { return e.AggID }
func (e *BaseDomainEvent) TenantID() string { return e.Organization }

// NewBaseDomainEvent creates an envelope with a fresh id
func NewBaseDomainEvent(eventType, aggType, aggID, tenantID string, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		Timestamp:    at.UTC(),
		AggID:        aggID,
		AggType:      aggType,
		Organization: tenantID,
	}
}

// EventHandler reacts to committed events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the handled types; empty means all
	EventTypes() []string
}

// EventPublisher hands committed events to their handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
