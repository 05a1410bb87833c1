package table

import (
	"context"
	"fmt"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

// Status is the status shown for a table
type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
	StatusReserved  Status = "reserved"
	StatusCleaning  Status = "cleaning"
)

// Mark is a manual override stored on a table. Occupancy is never stored; it is derived from orders.
type Mark string

const (
	MarkNone     Mark = ""
	MarkReserved Mark = "reserved"
	MarkCleaning Mark = "cleaning"
)

// IsValid checks if the mark is known
func (m Mark) IsValid() bool {
	return m == MarkNone || m == MarkReserved || m == MarkCleaning
}

// Table is a seat group of a restaurant
type Table struct {
	shared.TenantEntity
	TableNumber int
	Capacity    int
	Mark        Mark
}

// NewTable creates a table
func NewTable(tenantID string, number, capacity int, now time.Time) (*Table, error) {
	t := &Table{
		TenantEntity: shared.NewTenantEntity(tenantID, now),
	}
	if err := t.Update(number, capacity, now); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes number and capacity
func (t *Table) Update(number, capacity int, now time.Time) error {
	if number < 1 {
		return shared.NewValidationError("Table number must be at least 1")
	}
	if capacity < 1 {
		return shared.NewValidationError("Capacity must be at least 1")
	}
	t.TableNumber = number
	t.Capacity = capacity
	t.UpdatedAt = now.UTC()
	return nil
}

// SetMark sets or clears the manual mark. A table with live orders cannot be marked.
func (t *Table) SetMark(mark Mark, activeOrders int, now time.Time) error {
	if !mark.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown table mark %q", mark))
	}
	if mark != MarkNone && activeOrders > 0 {
		return shared.NewStatusConflictError(fmt.Sprintf("Table %d is occupied", t.TableNumber))
	}
	t.Mark = mark
	t.UpdatedAt = now.UTC()
	return nil
}

// DeriveStatus computes the displayed status from the number of active orders on the table
func (t *Table) DeriveStatus(activeOrders int) Status {
	if activeOrders > 0 {
		return StatusOccupied
	}
	switch t.Mark {
	case MarkReserved:
		return StatusReserved
	case MarkCleaning:
		return StatusCleaning
	}
	return StatusAvailable
}

// Repository persists tables. Table numbers are unique per organization.
type Repository interface {
	// Create fails with CONFLICT when the number is taken
	Create(ctx context.Context, t *Table) error
	Get(ctx context.Context, tenantID, id string) (*Table, error)
	// List returns tables ordered by table number
	List(ctx context.Context, tenantID string) ([]*Table, error)
	// Update fails with CONFLICT when the new number is taken
	Update(ctx context.Context, t *Table) error
	Delete(ctx context.Context, tenantID, id string) error
	// ClearMark removes any reserved/cleaning mark from the table
	ClearMark(ctx context.Context, tenantID, id string) error
}
