package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

const (
	// CounterTableID marks a walk-in order that is not seated at a table
	CounterTableID = "counter"
	// SelfOrderWaiter marks an order placed by a guest through the QR entry point
	SelfOrderWaiter = "Self-Order"
)

// LineItem is one menu item on an order. Name and price are snapshots taken when the line was added.
type LineItem struct {
	MenuItemID string
	Name       string
	Price      valueobject.Money
	Quantity   int
	Notes      string
}

// Amount returns price times quantity
func (i LineItem) Amount() valueobject.Money {
	return i.Price.MultiplyByInt(int64(i.Quantity))
}

func (i LineItem) validate() error {
	if strings.TrimSpace(i.MenuItemID) == "" {
		return shared.NewValidationError("Line item menu_item_id is required")
	}
	if strings.TrimSpace(i.Name) == "" {
		return shared.NewValidationError("Line item name is required")
	}
	if i.Quantity < 1 {
		return shared.NewValidationError(fmt.Sprintf("Quantity of %s must be at least 1", i.Name))
	}
	if i.Price.IsNegative() {
		return shared.NewValidationError(fmt.Sprintf("Price of %s cannot be negative", i.Name))
	}
	return nil
}

// PaymentEvent is one entry of an order's payment history
type PaymentEvent struct {
	Amount     valueobject.Money
	Method     PaymentMethod
	Kind       PaymentKind
	RecordedAt time.Time
	By         string
}

// Draft carries everything needed to place an order. Items are already priced.
type Draft struct {
	TableID         string
	TableNumber     *int
	Items           []LineItem
	Tax             valueobject.Money
	Discount        valueobject.Money
	PaymentMethod   PaymentMethod
	PaymentReceived valueobject.Money
	CustomerName    string
	CustomerPhone   string
	WaiterName      string
	CreatedBy       string
}

// Order is the aggregate root of the billing lifecycle
type Order struct {
	shared.TenantAggregateRoot
	TableID         string
	TableNumber     *int
	Items           []LineItem
	Subtotal        valueobject.Money
	Tax             valueobject.Money
	Discount        valueobject.Money
	Total           valueobject.Money
	PaymentMethod   PaymentMethod
	PaymentReceived valueobject.Money
	BalanceAmount   valueobject.Money
	IsCredit        bool
	CustomerName    string
	CustomerPhone   string
	WaiterName      string
	Status          Status
	InvoiceNumber   *int64
	Payments        []PaymentEvent
	CancelReason    string
	RefundReference string
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

// NewOrder places a new pending order
func NewOrder(tenantID string, d Draft, now time.Time) (*Order, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, shared.NewValidationError("Organization is required")
	}
	if len(d.Items) == 0 {
		return nil, shared.NewValidationError("Order must contain at least one item")
	}
	for _, item := range d.Items {
		if err := item.validate(); err != nil {
			return nil, err
		}
	}
	if d.Tax.IsNegative() || d.Discount.IsNegative() {
		return nil, shared.NewValidationError("Tax and discount cannot be negative")
	}
	if d.PaymentReceived.IsNegative() {
		return nil, shared.NewValidationError("Payment received cannot be negative")
	}

	method := d.PaymentMethod
	if method == "" {
		method = PaymentCash
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown payment method %q", method))
	}

	tableID := strings.TrimSpace(d.TableID)
	tableNumber := d.TableNumber
	if tableID == "" || tableID == CounterTableID {
		tableID = CounterTableID
		tableNumber = nil
	}

	o := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		TableID:             tableID,
		TableNumber:         tableNumber,
		Items:               append([]LineItem(nil), d.Items...),
		Tax:                 d.Tax,
		Discount:            d.Discount,
		PaymentMethod:       method,
		PaymentReceived:     valueobject.Zero(),
		CustomerName:        strings.TrimSpace(d.CustomerName),
		CustomerPhone:       strings.TrimSpace(d.CustomerPhone),
		WaiterName:          strings.TrimSpace(d.WaiterName),
		Status:              StatusPending,
		Payments:            make([]PaymentEvent, 0),
	}
	if err := o.recalculateTotals(); err != nil {
		return nil, err
	}

	if d.PaymentReceived.IsPositive() {
		if d.PaymentReceived.GreaterThan(o.Total) {
			return nil, shared.NewValidationError("Payment received cannot exceed the order total")
		}
		o.recordPayment(d.PaymentReceived, method, PaymentKindPayment, d.CreatedBy, o.CreatedAt)
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o, o.CreatedAt))
	return o, nil
}

// IsSelfOrder reports whether the order came through the QR self-order entry point
func (o *Order) IsSelfOrder() bool {
	return o.WaiterName == SelfOrderWaiter
}

// IsActive reports whether the order is still on the floor
func (o *Order) IsActive() bool {
	return o.Status.IsActive()
}

// HasTable reports whether the order is seated at a real table
func (o *Order) HasTable() bool {
	return o.TableID != "" && o.TableID != CounterTableID
}

// Patch describes an edit of a pending order. Nil fields are left unchanged.
type Patch struct {
	Items         []LineItem
	Tax           *valueobject.Money
	Discount      *valueobject.Money
	CustomerName  *string
	CustomerPhone *string
	TableID       *string
	TableNumber   *int
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Items == nil && p.Tax == nil && p.Discount == nil && p.CustomerName == nil &&
		p.CustomerPhone == nil && p.TableID == nil
}

// Edit applies a patch to a pending order. Payment received is never changed by an edit.
func (o *Order) Edit(p Patch, now time.Time) error {
	if o.Status != StatusPending {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot edit order in %s status", o.Status))
	}
	if p.IsEmpty() {
		return shared.NewValidationError("Nothing to update")
	}
	if p.Items != nil {
		if len(p.Items) == 0 {
			return shared.NewValidationError("Order must contain at least one item")
		}
		for _, item := range p.Items {
			if err := item.validate(); err != nil {
				return err
			}
		}
	}
	if (p.Tax != nil && p.Tax.IsNegative()) || (p.Discount != nil && p.Discount.IsNegative()) {
		return shared.NewValidationError("Tax and discount cannot be negative")
	}

	previous := *o
	if p.Items != nil {
		o.Items = append([]LineItem(nil), p.Items...)
	}
	if p.Tax != nil {
		o.Tax = *p.Tax
	}
	if p.Discount != nil {
		o.Discount = *p.Discount
	}
	if p.CustomerName != nil {
		o.CustomerName = strings.TrimSpace(*p.CustomerName)
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = strings.TrimSpace(*p.CustomerPhone)
	}
	if p.TableID != nil {
		tableID := strings.TrimSpace(*p.TableID)
		if tableID == "" || tableID == CounterTableID {
			o.TableID = CounterTableID
			o.TableNumber = nil
		} else {
			o.TableID = tableID
			o.TableNumber = p.TableNumber
		}
	}

	if err := o.recalculateTotals(); err != nil {
		o.restore(previous)
		return err
	}
	if o.PaymentReceived.GreaterThan(o.Total) {
		o.restore(previous)
		return shared.NewValidationError("Order total cannot drop below the payment already received")
	}
	o.UpdatedAt = now.UTC()
	return nil
}

// MarkPreparing moves a pending order into the kitchen
func (o *Order) MarkPreparing(now time.Time) error {
	if o.Status != StatusPending {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot mark order preparing in %s status", o.Status))
	}
	o.Status = StatusPreparing
	o.UpdatedAt = now.UTC()
	return nil
}

// MarkReady marks a pending or preparing order as ready to serve
func (o *Order) MarkReady(now time.Time) error {
	if o.Status != StatusPending && o.Status != StatusPreparing {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot mark order ready in %s status", o.Status))
	}
	o.Status = StatusReady
	o.UpdatedAt = now.UTC()
	return nil
}

// ApplyPayment records a payment against an active order.
// A staff order that becomes fully paid moves to paid and then needs an invoice number.
// Self-orders never leave pending on payment alone.
func (o *Order) ApplyPayment(amount valueobject.Money, method PaymentMethod, by string, now time.Time) error {
	if !o.Status.IsActive() {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot apply payment to order in %s status", o.Status))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("Payment amount must be positive")
	}
	if method == "" {
		method = PaymentCash
	}
	if !method.IsValid() || method == PaymentCredit {
		return shared.NewValidationError(fmt.Sprintf("Invalid payment method %q", method))
	}
	if o.PaymentReceived.Add(amount).GreaterThan(o.Total) {
		return shared.NewValidationError(fmt.Sprintf("Payment exceeds outstanding amount %s", o.BalanceAmount))
	}

	now = now.UTC()
	o.recordPayment(amount, method, PaymentKindPayment, by, now)
	o.UpdatedAt = now

	if o.BalanceAmount.IsZero() && !o.IsSelfOrder() {
		o.Status = StatusPaid
		o.IsCredit = false
		o.CompletedAt = &now
	}
	return nil
}

// CompleteRequest describes how an order is closed out
type CompleteRequest struct {
	// PaymentReceived is the total amount received so far; nil keeps the current amount
	PaymentReceived *valueobject.Money
	PaymentMethod   PaymentMethod
	IsCredit        bool
	CustomerName    string
	CustomerPhone   string
	By              string
}

// Complete bills an active order. With no balance left the order is paid,
// otherwise it is completed on credit for a named customer.
func (o *Order) Complete(req CompleteRequest, now time.Time) error {
	if !o.Status.IsActive() {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	method := req.PaymentMethod
	if method == "" {
		method = o.PaymentMethod
	}
	if !method.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Invalid payment method %q", method))
	}

	received := o.PaymentReceived
	if req.PaymentReceived != nil {
		received = *req.PaymentReceived
	}
	if received.LessThan(o.PaymentReceived) {
		return shared.NewValidationError(fmt.Sprintf("Payment received cannot be less than the %s already recorded", o.PaymentReceived))
	}
	if received.GreaterThan(o.Total) {
		return shared.NewValidationError("Payment received cannot exceed the order total")
	}

	balance := o.Total.Subtract(received)
	if balance.IsPositive() {
		if !req.IsCredit {
			return shared.NewValidationError(fmt.Sprintf("Balance of %s remains; complete as credit or collect the full amount", balance))
		}
		name := firstNonEmpty(req.CustomerName, o.CustomerName)
		phone := firstNonEmpty(req.CustomerPhone, o.CustomerPhone)
		if name == "" || phone == "" {
			return shared.NewValidationError("Customer name and phone are required for credit orders")
		}
		o.CustomerName = name
		o.CustomerPhone = phone
	} else {
		if req.CustomerName != "" {
			o.CustomerName = strings.TrimSpace(req.CustomerName)
		}
		if req.CustomerPhone != "" {
			o.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
		}
	}

	now = now.UTC()
	if delta := received.Subtract(o.PaymentReceived); delta.IsPositive() {
		o.recordPayment(delta, method, PaymentKindCompletion, req.By, now)
	}
	o.refreshBalance()

	if o.BalanceAmount.IsPositive() {
		o.Status = StatusCompleted
		o.IsCredit = true
		if o.PaymentReceived.IsZero() {
			o.PaymentMethod = PaymentCredit
		}
	} else {
		o.Status = StatusPaid
		o.IsCredit = false
	}
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// SettleCredit reduces the outstanding balance of a credit order.
// Clearing the balance moves the order to paid.
func (o *Order) SettleCredit(amount valueobject.Money, method PaymentMethod, by string, now time.Time) error {
	if o.Status != StatusCompleted || !o.BalanceAmount.IsPositive() {
		return shared.NewStatusConflictError(fmt.Sprintf("Order in %s status has no outstanding credit", o.Status))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("Settlement amount must be positive")
	}
	if amount.GreaterThan(o.BalanceAmount) {
		return shared.NewValidationError(fmt.Sprintf("Settlement exceeds outstanding balance %s", o.BalanceAmount))
	}
	if method == "" {
		method = PaymentCash
	}
	if !method.IsValid() || method == PaymentCredit {
		return shared.NewValidationError(fmt.Sprintf("Invalid payment method %q", method))
	}

	now = now.UTC()
	o.recordPayment(amount, method, PaymentKindSettlement, by, now)
	if o.BalanceAmount.IsZero() {
		o.Status = StatusPaid
		o.IsCredit = false
	}
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderCreditSettledEvent(o, amount, now))
	return nil
}

// Cancel cancels an active order. An order that has taken money needs a refund reference.
func (o *Order) Cancel(reason, refundReference string, now time.Time) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewStatusConflictError(fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	refundReference = strings.TrimSpace(refundReference)
	if o.PaymentReceived.IsPositive() && refundReference == "" {
		return shared.NewValidationError(fmt.Sprintf("Order has received %s; a refund reference is required to cancel it", o.PaymentReceived))
	}

	now = now.UTC()
	o.Status = StatusCancelled
	o.CancelReason = strings.TrimSpace(reason)
	o.RefundReference = refundReference
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderCancelledEvent(o, now))
	return nil
}

// NeedsInvoice reports whether the order is billed but has no invoice number yet
func (o *Order) NeedsInvoice() bool {
	return o.Status.IsBilled() && o.InvoiceNumber == nil
}

// AssignInvoice sets the invoice number. It can happen only once.
func (o *Order) AssignInvoice(number int64, now time.Time) error {
	if !o.Status.IsBilled() {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice numbers are assigned only to billed orders")
	}
	if o.InvoiceNumber != nil {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Order already has invoice %d", *o.InvoiceNumber))
	}
	if number <= 0 {
		return shared.NewValidationError("Invoice number must be positive")
	}
	o.InvoiceNumber = &number
	o.AddDomainEvent(NewOrderCompletedEvent(o, now.UTC()))
	return nil
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// TotalQuantity returns the sum of line quantities
func (o *Order) TotalQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Clone returns a deep copy of the order without pending domain events
func (o *Order) Clone() *Order {
	c := *o
	c.ClearDomainEvents()
	c.Items = append([]LineItem(nil), o.Items...)
	c.Payments = append([]PaymentEvent(nil), o.Payments...)
	if o.TableNumber != nil {
		n := *o.TableNumber
		c.TableNumber = &n
	}
	if o.InvoiceNumber != nil {
		n := *o.InvoiceNumber
		c.InvoiceNumber = &n
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func (o *Order) recordPayment(amount valueobject.Money, method PaymentMethod, kind PaymentKind, by string, at time.Time) {
	if o.PaymentReceived.IsPositive() && o.PaymentMethod != method {
		o.PaymentMethod = PaymentSplit
	} else if o.PaymentMethod != PaymentSplit {
		o.PaymentMethod = method
	}
	o.Payments = append(o.Payments, PaymentEvent{
		Amount:     amount,
		Method:     method,
		Kind:       kind,
		RecordedAt: at,
		By:         by,
	})
	o.PaymentReceived = o.PaymentReceived.Add(amount)
	o.refreshBalance()
}

// recalculateTotals recomputes subtotal, total and balance from the line items
func (o *Order) recalculateTotals() error {
	subtotal := valueobject.Zero()
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Amount())
	}
	total := subtotal.Add(o.Tax).Subtract(o.Discount)
	if total.IsNegative() {
		return shared.NewValidationError("Discount cannot exceed subtotal plus tax")
	}
	o.Subtotal = subtotal
	o.Total = total
	o.refreshBalance()
	return nil
}

func (o *Order) refreshBalance() {
	o.BalanceAmount = o.Total.Subtract(o.PaymentReceived).NonNegative()
}

func (o *Order) restore(previous Order) {
	o.Items = previous.Items
	o.Tax = previous.Tax
	o.Discount = previous.Discount
	o.CustomerName = previous.CustomerName
	o.CustomerPhone = previous.CustomerPhone
	o.TableID = previous.TableID
	o.TableNumber = previous.TableNumber
	o.Subtotal = previous.Subtotal
	o.Total = previous.Total
	o.BalanceAmount = previous.BalanceAmount
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
