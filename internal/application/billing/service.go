// Package billing runs the order lifecycle: placing, editing, paying, billing,
// settling and cancelling orders, and keeping the cached views in step with every write.
package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/application/projection"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxAttempts bounds how often a write is reapplied after losing a compare-and-set race
const maxAttempts = 2

// HistoryLimit caps the orders returned by History
const HistoryLimit = 200

// ProfileSource supplies the business profile of a tenant
type ProfileSource interface {
	Profile(ctx context.Context, tenantID string) (*settings.BusinessProfile, error)
}

// Service handles order lifecycle operations
type Service struct {
	orders         order.Repository
	menu           menu.Repository
	tables         table.Repository
	profiles       ProfileSource
	cache          shared.ProjectionCache
	clock          shared.Clock
	eventPublisher shared.EventPublisher
	tracer         trace.Tracer
}

// NewService creates a new billing service
func NewService(
	orders order.Repository,
	menuRepo menu.Repository,
	tables table.Repository,
	profiles ProfileSource,
	cache shared.ProjectionCache,
	clock shared.Clock,
) *Service {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &Service{
		orders:   orders,
		menu:     menuRepo,
		tables:   tables,
		profiles: profiles,
		cache:    cache,
		clock:    clock,
		tracer:   otel.Tracer("github.com/opentoworkprojects/bill-sub001/internal/application/billing"),
	}
}

// SetEventPublisher sets the publisher that receives order events after each commit
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create places a new pending order. Line names and prices are copied from the menu.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.Create", actor, "")
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}

	items, err := s.priceItems(ctx, actor.TenantID, req.Items, nil)
	if err != nil {
		return nil, err
	}
	tableID, tableNumber, err := s.resolveTable(ctx, actor.TenantID, req.TableID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}

	// Default tax comes from the business profile
	tax := profile.DefaultTax(subtotalOf(items))
	if req.Tax != nil {
		tax = *req.Tax
	}

	waiter := strings.TrimSpace(req.WaiterName)
	if waiter == "" {
		waiter = actor.DisplayName()
	}

	o, err := order.NewOrder(actor.TenantID, order.Draft{
		TableID:         tableID,
		TableNumber:     tableNumber,
		Items:           items,
		Tax:             tax,
		Discount:        req.Discount,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		PaymentReceived: req.PaymentReceived,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		WaiterName:      waiter,
		CreatedBy:       actor.DisplayName(),
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	keys := []string{shared.ActiveOrdersKey(o.TenantID, s.today())}
	if o.PaymentReceived.IsPositive() {
		keys = append(keys, shared.TodaysBillsKey(o.TenantID, s.today()))
	}
	if o.HasTable() {
		keys = append(keys, shared.TablesKey(o.TenantID))
	}
	projection.Invalidate(ctx, s.cache, keys...)
	s.publish(ctx, o)

	logger.L(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("table_id", o.TableID),
		zap.String("total", o.Total.String()),
	)
	r := ToOrderResponse(o, profile)
	return &r, nil
}

// Get returns one order
func (s *Service) Get(ctx context.Context, actor shared.Actor, id string) (*OrderResponse, error) {
	o, err := s.orders.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o), nil
}

// Edit changes the items, charges, customer or table of a pending order
func (s *Service) Edit(ctx context.Context, actor shared.Actor, id string, req EditOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.Edit", actor, id)
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}

	var (
		tableID     *string
		tableNumber *int
	)
	if req.TableID != nil {
		resolved, number, err := s.resolveTable(ctx, actor.TenantID, *req.TableID)
		if err != nil {
			return nil, err
		}
		tableID, tableNumber = &resolved, number
	}

	var profile *settings.BusinessProfile
	if req.Items != nil && req.Tax == nil {
		if profile, err = s.profile(ctx, actor.TenantID); err != nil {
			return nil, err
		}
	}

	o, err := s.mutate(ctx, actor.TenantID, id, func(o *order.Order, now time.Time) error {
		patch := order.Patch{
			Tax:           req.Tax,
			Discount:      req.Discount,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			TableID:       tableID,
			TableNumber:   tableNumber,
		}
		if req.Items != nil {
			// Lines already on the order keep the price they were placed at
			items, err := s.priceItems(ctx, actor.TenantID, req.Items, o.Items)
			if err != nil {
				return err
			}
			patch.Items = items
			if profile != nil {
				tax := profile.DefaultTax(subtotalOf(items))
				patch.Tax = &tax
			}
		}
		return o.Edit(patch, now)
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o), nil
}

// UpdateStatus moves an order to preparing or ready
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Actor, id string, status order.Status) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.UpdateStatus", actor, id)
	defer func() { endSpan(span, err) }()

	var transition func(o *order.Order, now time.Time) error
	switch status {
	case order.StatusPreparing:
		transition = (*order.Order).MarkPreparing
	case order.StatusReady:
		transition = (*order.Order).MarkReady
	default:
		return nil, shared.NewValidationError(fmt.Sprintf("Status can only be set to preparing or ready, not %q", status))
	}

	o, err := s.mutate(ctx, actor.TenantID, id, transition)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o), nil
}

// ApplyPayment records a payment. A staff order that becomes fully paid is billed with an invoice number.
func (s *Service) ApplyPayment(ctx context.Context, actor shared.Actor, id string, req PaymentRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.ApplyPayment", actor, id)
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}

	o, err := s.mutate(ctx, actor.TenantID, id, func(o *order.Order, now time.Time) error {
		return o.ApplyPayment(req.Amount, order.PaymentMethod(req.Method), actor.DisplayName(), now)
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o), nil
}

// Complete bills an order, on credit when a balance remains and credit was requested
func (s *Service) Complete(ctx context.Context, actor shared.Actor, id string, req CompleteOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.Complete", actor, id)
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}

	o, err := s.mutate(ctx, actor.TenantID, id, func(o *order.Order, now time.Time) error {
		return o.Complete(order.CompleteRequest{
			PaymentReceived: req.PaymentReceived,
			PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
			IsCredit:        req.IsCredit,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			By:              actor.DisplayName(),
		}, now)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Order completed",
		zap.String("order_id", o.ID),
		zap.String("status", o.Status.String()),
		zap.Int64p("invoice_number", o.InvoiceNumber),
		zap.String("balance", o.BalanceAmount.String()),
	)
	return s.render(ctx, o), nil
}

// SettleCredit reduces the outstanding balance of a credit order
func (s *Service) SettleCredit(ctx context.Context, actor shared.Actor, id string, req SettleCreditRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.SettleCredit", actor, id)
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}

	o, err := s.mutate(ctx, actor.TenantID, id, func(o *order.Order, now time.Time) error {
		return o.SettleCredit(req.Amount, order.PaymentMethod(req.Method), actor.DisplayName(), now)
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o), nil
}

// Cancel cancels an active order. Orders that have taken money need a refund
// reference and a cashier or admin.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id string, req CancelOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := s.startSpan(ctx, "billing.Cancel", actor, id)
	defer func() { endSpan(span, err) }()

	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}

	o, err := s.mutate(ctx, actor.TenantID, id, func(o *order.Order, now time.Time) error {
		if o.PaymentReceived.IsPositive() && !actor.Role.HandlesMoney() {
			return shared.NewDomainError(shared.CodeForbidden, "Only a cashier or admin can cancel an order that has taken payment")
		}
		return o.Cancel(req.Reason, req.RefundReference, now)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Order cancelled",
		zap.String("order_id", o.ID),
		zap.String("reason", o.CancelReason),
		zap.String("refund_reference", o.RefundReference),
	)
	return s.render(ctx, o), nil
}

// History lists orders created between two local dates, both inclusive.
// Missing dates default to today.
func (s *Service) History(ctx context.Context, actor shared.Actor, f HistoryFilter) ([]OrderResponse, error) {
	today := s.today()
	from, to := today, today
	var err error
	if f.From != "" {
		if from, err = shared.ParseBusinessDate(f.From); err != nil {
			return nil, err
		}
	}
	if f.To != "" {
		if to, err = shared.ParseBusinessDate(f.To); err != nil {
			return nil, err
		}
	}
	if to.Start.Before(from.Start) {
		return nil, shared.NewValidationError("from must not be after to")
	}

	filter := order.Filter{
		CreatedFrom:   from.Start,
		CreatedTo:     to.End,
		CustomerPhone: strings.TrimSpace(f.CustomerPhone),
		Limit:         HistoryLimit,
	}
	if f.Status != "" {
		status := order.Status(f.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("Unknown status %q", f.Status))
		}
		filter.Statuses = []order.Status{status}
	}

	orders, err := s.orders.List(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, err
	}
	return ToOrderResponses(orders, s.labelProfile(ctx, actor.TenantID)), nil
}

// snapshot is the part of an order that decides which cached views a write touches
type snapshot struct {
	status   order.Status
	tableID  string
	hasTable bool
	active   bool
	received valueobject.Money
}

func snapshotOf(o *order.Order) snapshot {
	return snapshot{
		status:   o.Status,
		tableID:  o.TableID,
		hasTable: o.HasTable(),
		active:   o.IsActive(),
		received: o.PaymentReceived,
	}
}

// mutate loads an order, applies fn and writes it back with compare-and-set on the
// loaded status and version. A lost race or an invoice collision is retried once on a
// fresh copy; anything fn rejects is returned as is.
func (s *Service) mutate(ctx context.Context, tenantID, id string, fn func(o *order.Order, now time.Time) error) (*order.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		o, err := s.orders.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		before := snapshotOf(o)
		now := s.clock.Now()

		if err := fn(o, now); err != nil {
			return nil, err
		}
		if o.NeedsInvoice() {
			number, err := s.orders.NextInvoiceNumber(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			if err := o.AssignInvoice(number, now); err != nil {
				return nil, err
			}
		}

		err = s.orders.Update(ctx, o, []order.Status{before.status})
		if err == nil {
			s.afterCommit(ctx, o, before)
			return o, nil
		}
		if !shared.IsCode(err, shared.CodeStatusConflict) && !shared.IsCode(err, shared.CodeDuplicateInvoice) {
			return nil, err
		}
		lastErr = err
		logger.L(ctx).Info("Order write lost a race",
			zap.String("order_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// afterCommit releases table marks, invalidates the cached views the write touched
// and publishes the order's events. Nothing here can fail the write.
func (s *Service) afterCommit(ctx context.Context, o *order.Order, before snapshot) {
	today := s.today()
	keys := []string{shared.ActiveOrdersKey(o.TenantID, today)}

	if billable(before.status, before.received) || billable(o.Status, o.PaymentReceived) {
		keys = append(keys, shared.TodaysBillsKey(o.TenantID, today))
	}

	tableChanged := before.tableID != o.TableID
	if tableChanged || (before.active != o.IsActive() && (before.hasTable || o.HasTable())) {
		keys = append(keys, shared.TablesKey(o.TenantID))
	}

	// The last order leaving a table clears any reserved or cleaning mark on it
	if before.active && before.hasTable && (tableChanged || !o.IsActive()) {
		s.releaseTable(ctx, o.TenantID, before.tableID)
	}

	projection.Invalidate(ctx, s.cache, keys...)
	s.publish(ctx, o)
}

// billable reports whether an order in this state is listed in today's bills
func billable(status order.Status, received valueobject.Money) bool {
	return status.IsBilled() || received.IsPositive()
}

func (s *Service) releaseTable(ctx context.Context, tenantID, tableID string) {
	f := order.ActiveFilter()
	f.TableID = tableID
	n, err := s.orders.Count(ctx, tenantID, f)
	if err != nil {
		logger.L(ctx).Warn("Cannot count active orders of table", zap.String("table_id", tableID), zap.Error(err))
		return
	}
	if n > 0 {
		return
	}
	if err := s.tables.ClearMark(ctx, tenantID, tableID); err != nil && !shared.IsCode(err, shared.CodeNotFound) {
		logger.L(ctx).Warn("Cannot clear table mark", zap.String("table_id", tableID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, o *order.Order) {
	events := o.GetDomainEvents()
	defer o.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Error("Failed to publish order events", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// priceItems turns requested lines into priced line items. A line whose menu item is
// already on existing keeps that snapshot; every other line must name an available menu item.
func (s *Service) priceItems(ctx context.Context, tenantID string, reqs []LineItemRequest, existing []order.LineItem) ([]order.LineItem, error) {
	if len(reqs) == 0 {
		return nil, shared.NewValidationError("Order must contain at least one item")
	}

	snapshots := make(map[string]order.LineItem, len(existing))
	for _, item := range existing {
		if _, ok := snapshots[item.MenuItemID]; !ok {
			snapshots[item.MenuItemID] = item
		}
	}

	missing := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := snapshots[r.MenuItemID]; !ok {
			missing = append(missing, r.MenuItemID)
		}
	}
	found := map[string]*menu.Item{}
	if len(missing) > 0 {
		var err error
		if found, err = s.menu.GetMany(ctx, tenantID, missing); err != nil {
			return nil, err
		}
	}

	items := make([]order.LineItem, 0, len(reqs))
	for _, r := range reqs {
		line := order.LineItem{
			MenuItemID: r.MenuItemID,
			Quantity:   r.Quantity,
			Notes:      strings.TrimSpace(r.Notes),
		}
		if snap, ok := snapshots[r.MenuItemID]; ok {
			line.Name, line.Price = snap.Name, snap.Price
		} else {
			m, ok := found[r.MenuItemID]
			if !ok {
				return nil, shared.NewValidationError(fmt.Sprintf("Menu item %s does not exist", r.MenuItemID))
			}
			if !m.Available {
				return nil, shared.NewValidationError(fmt.Sprintf("%s is not available", m.Name))
			}
			line.Name, line.Price = m.Name, m.Price
		}
		items = append(items, line)
	}
	return items, nil
}

// resolveTable checks that a table exists and returns its id and number.
// An empty id or the counter sentinel means a walk-in order.
func (s *Service) resolveTable(ctx context.Context, tenantID, tableID string) (string, *int, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" || tableID == order.CounterTableID {
		return order.CounterTableID, nil, nil
	}
	t, err := s.tables.Get(ctx, tenantID, tableID)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return "", nil, shared.NewValidationError(fmt.Sprintf("Table %s does not exist", tableID))
		}
		return "", nil, err
	}
	number := t.TableNumber
	return t.ID, &number, nil
}

func (s *Service) profile(ctx context.Context, tenantID string) (*settings.BusinessProfile, error) {
	if s.profiles == nil {
		return settings.DefaultProfile(tenantID), nil
	}
	return s.profiles.Profile(ctx, tenantID)
}

// labelProfile loads the profile used for invoice labels. Failure only costs the label.
func (s *Service) labelProfile(ctx context.Context, tenantID string) *settings.BusinessProfile {
	p, err := s.profile(ctx, tenantID)
	if err != nil {
		logger.L(ctx).Warn("Cannot load business profile", zap.Error(err))
		return nil
	}
	return p
}

func (s *Service) render(ctx context.Context, o *order.Order) *OrderResponse {
	var profile *settings.BusinessProfile
	if o.InvoiceNumber != nil {
		profile = s.labelProfile(ctx, o.TenantID)
	}
	r := ToOrderResponse(o, profile)
	return &r
}

func (s *Service) today() shared.DayWindow {
	return shared.TodayWindow(s.clock)
}

func (s *Service) startSpan(ctx context.Context, name string, actor shared.Actor, orderID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("tenant.id", actor.TenantID),
		attribute.String("user.role", string(actor.Role)),
	}
	if orderID != "" {
		attrs = append(attrs, attribute.String("order.id", orderID))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, shared.ErrorCode(err))
	}
	span.End()
}

func subtotalOf(items []order.LineItem) valueobject.Money {
	subtotal := valueobject.Zero()
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}
	return subtotal
}
