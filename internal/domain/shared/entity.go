package shared

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a new opaque identifier
func NewID() string {
	return uuid.NewString()
}

// TenantEntity carries the identity and timestamps of a record owned by one
// organization. Timestamps are stored in UTC.
type TenantEntity struct {
	ID        string
	TenantID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenantEntity stamps a new record for tenantID at now
func NewTenantEntity(tenantID string, now time.Time) TenantEntity {
	now = now.UTC()
	return TenantEntity{
		ID:        NewID(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TenantAggregateRoot is a tenant record with an optimistic-concurrency
// version and the events raised since it was loaded.
type TenantAggregateRoot struct {
	TenantEntity
	Version int
	pending []DomainEvent
}

// NewTenantAggregateRoot creates an aggregate at version 1
func NewTenantAggregateRoot(tenantID string, now time.Time) TenantAggregateRoot {
	return TenantAggregateRoot{TenantEntity: NewTenantEntity(tenantID, now), Version: 1}
}

// AddDomainEvent queues ev for publication after the next commit
func (a *TenantAggregateRoot) AddDomainEvent(ev DomainEvent) {
	a.pending = append(a.pending, ev)
}

// GetDomainEvents returns the queued events
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
