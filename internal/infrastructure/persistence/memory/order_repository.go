package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

// OrderRepository implements order.Repository in memory
type OrderRepository struct {
	store *Store
}

var _ order.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.orders[o.ID]; ok {
		return shared.NewConflictError("Order already exists")
	}
	if err := r.checkInvoice(o); err != nil {
		return err
	}
	r.store.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order, expected []order.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[o.ID]
	if !ok || current.TenantID != o.TenantID {
		return shared.NewNotFoundError("Order")
	}
	if current.Version != o.Version || (len(expected) > 0 && !containsStatus(expected, current.Status)) {
		return shared.NewStatusConflictError(fmt.Sprintf("Order changed concurrently (status %s)", current.Status))
	}
	if err := r.checkInvoice(o); err != nil {
		return err
	}

	stored := o.Clone()
	stored.Version = o.Version + 1
	r.store.orders[o.ID] = stored
	o.Version = stored.Version
	return nil
}

// checkInvoice enforces unique invoice numbers per tenant. Callers hold the lock.
func (r *OrderRepository) checkInvoice(o *order.Order) error {
	if o.InvoiceNumber == nil {
		return nil
	}
	for id, other := range r.store.orders {
		if id == o.ID || other.TenantID != o.TenantID || other.InvoiceNumber == nil {
			continue
		}
		if *other.InvoiceNumber == *o.InvoiceNumber {
			return shared.NewDomainError(shared.CodeDuplicateInvoice, fmt.Sprintf("Invoice number %d already used", *o.InvoiceNumber))
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	o, ok := r.store.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, shared.NewNotFoundError("Order")
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context, tenantID string, filter order.Filter) ([]*order.Order, error) {
	matched, err := r.match(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(matched)
	if limit := filter.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*order.Order, len(matched))
	for i, o := range matched {
		out[i] = o.Clone()
	}
	return out, nil
}

func (r *OrderRepository) Count(ctx context.Context, tenantID string, filter order.Filter) (int64, error) {
	matched, err := r.match(ctx, tenantID, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *OrderRepository) match(ctx context.Context, tenantID string, filter order.Filter) ([]*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*order.Order
	for _, o := range r.store.orders {
		if o.TenantID == tenantID && filter.Matches(o) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

func (r *OrderRepository) NextInvoiceNumber(ctx context.Context, tenantID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := "invoice:" + tenantID
	r.store.counters[key]++
	return r.store.counters[key], nil
}

func (r *OrderRepository) CustomerLedgers(ctx context.Context, tenantID string) ([]order.CustomerLedger, error) {
	matched, err := r.match(ctx, tenantID, order.Filter{
		Statuses:   []order.Status{order.StatusCompleted},
		HasBalance: true,
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(matched)

	index := make(map[string]int)
	var ledgers []order.CustomerLedger
	for _, o := range matched {
		i, ok := index[o.CustomerPhone]
		if !ok {
			index[o.CustomerPhone] = len(ledgers)
			ledgers = append(ledgers, order.CustomerLedger{
				CustomerName:  o.CustomerName,
				CustomerPhone: o.CustomerPhone,
				Outstanding:   o.BalanceAmount,
				OrderCount:    1,
				LastOrderDate: o.CreatedAt,
			})
			continue
		}
		ledgers[i].Outstanding = ledgers[i].Outstanding.Add(o.BalanceAmount)
		ledgers[i].OrderCount++
	}

	sort.SliceStable(ledgers, func(i, j int) bool {
		if !ledgers[i].Outstanding.Equals(ledgers[j].Outstanding) {
			return ledgers[i].Outstanding.GreaterThan(ledgers[j].Outstanding)
		}
		return ledgers[i].CustomerPhone < ledgers[j].CustomerPhone
	})
	return ledgers, nil
}

func (r *OrderRepository) CountActiveByTable(ctx context.Context, tenantID string) (map[string]int, error) {
	matched, err := r.match(ctx, tenantID, order.Filter{Statuses: order.ActiveStatuses()})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, o := range matched {
		if o.HasTable() {
			counts[o.TableID]++
		}
	}
	return counts, nil
}

func sortNewestFirst(orders []*order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

func containsStatus(list []order.Status, s order.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
