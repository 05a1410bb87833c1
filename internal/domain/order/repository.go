package order

import (
	"context"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// DefaultListLimit caps list queries that do not set a limit
const DefaultListLimit = 500

// Filter narrows an order listing. Zero values do not filter.
type Filter struct {
	Statuses        []Status
	ExcludeStatuses []Status
	// CreatedFrom and CreatedTo bound created_at as [from, to)
	CreatedFrom time.Time
	CreatedTo   time.Time
	// HasBalance keeps only orders with balance_amount > 0
	HasBalance    bool
	CustomerPhone string
	TableID       string
	// BillableOnly keeps orders that are billed or have taken any payment
	BillableOnly bool
	// Fields limits the stored fields loaded; empty loads the whole document
	Fields []string
	Limit  int
}

// ActiveFilter matches orders still on the floor
func ActiveFilter() Filter {
	return Filter{ExcludeStatuses: []Status{StatusCompleted, StatusPaid, StatusCancelled}}
}

// Matches evaluates the filter against an order in memory.
// Field projection and limit are not part of matching.
func (f Filter) Matches(o *Order) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if len(f.ExcludeStatuses) > 0 && containsStatus(f.ExcludeStatuses, o.Status) {
		return false
	}
	if !f.CreatedFrom.IsZero() && o.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !o.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	if f.HasBalance && !o.BalanceAmount.IsPositive() {
		return false
	}
	if f.CustomerPhone != "" && o.CustomerPhone != f.CustomerPhone {
		return false
	}
	if f.TableID != "" && o.TableID != f.TableID {
		return false
	}
	if f.BillableOnly && !o.Status.IsBilled() && !o.PaymentReceived.IsPositive() {
		return false
	}
	return true
}

// EffectiveLimit returns the limit to apply
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CustomerLedger is the outstanding credit of one customer
type CustomerLedger struct {
	CustomerName  string
	CustomerPhone string
	Outstanding   valueobject.Money
	OrderCount    int
	LastOrderDate time.Time
}

// Repository is the authoritative order store. Every call is scoped to one organization.
type Repository interface {
	// Insert persists a new order. A colliding invoice number fails with DUPLICATE_INVOICE.
	Insert(ctx context.Context, o *Order) error

	// Update writes the order only if the stored status is in expected and the stored
	// version equals o.Version. On success o.Version is incremented.
	// A miss fails with STATUS_CONFLICT, a colliding invoice number with DUPLICATE_INVOICE.
	Update(ctx context.Context, o *Order, expected []Status) error

	// Get loads one order
	Get(ctx context.Context, tenantID, id string) (*Order, error)

	// List returns matching orders ordered by created_at descending
	List(ctx context.Context, tenantID string, filter Filter) ([]*Order, error)

	// Count returns the number of matching orders
	Count(ctx context.Context, tenantID string, filter Filter) (int64, error)

	// NextInvoiceNumber atomically allocates the next invoice number of a tenant
	NextInvoiceNumber(ctx context.Context, tenantID string) (int64, error)

	// CustomerLedgers groups completed credit orders by customer phone,
	// ordered by outstanding amount descending
	CustomerLedgers(ctx context.Context, tenantID string) ([]CustomerLedger, error)

	// CountActiveByTable returns the number of active orders per table id
	CountActiveByTable(ctx context.Context, tenantID string) (map[string]int, error)
}
