package order

import (
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// AggregateTypeOrder is the aggregate type of orders
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderCompleted     = "order.completed"
	EventTypeOrderCancelled     = "order.cancelled"
	EventTypeOrderCreditSettled = "order.credit_settled"
)

// OrderCreatedEvent is raised when an order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    string            `json:"order_id"`
	TableID    string            `json:"table_id"`
	WaiterName string            `json:"waiter_name"`
	Total      valueobject.Money `json:"total"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order, at time.Time) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID, o.TenantID, at),
		OrderID:         o.ID,
		TableID:         o.TableID,
		WaiterName:      o.WaiterName,
		Total:           o.Total,
	}
}

// OrderCompletedEvent is raised once, when an order is first billed and receives its invoice number
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID         string            `json:"order_id"`
	InvoiceNumber   int64             `json:"invoice_number"`
	Status          Status            `json:"status"`
	Total           valueobject.Money `json:"total"`
	PaymentReceived valueobject.Money `json:"payment_received"`
	BalanceAmount   valueobject.Money `json:"balance_amount"`
	PaymentMethod   PaymentMethod     `json:"payment_method"`
	CustomerName    string            `json:"customer_name,omitempty"`
	CustomerPhone   string            `json:"customer_phone,omitempty"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *Order, at time.Time) *OrderCompletedEvent {
	var invoice int64
	if o.InvoiceNumber != nil {
		invoice = *o.InvoiceNumber
	}
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID, o.TenantID, at),
		OrderID:         o.ID,
		InvoiceNumber:   invoice,
		Status:          o.Status,
		Total:           o.Total,
		PaymentReceived: o.PaymentReceived,
		BalanceAmount:   o.BalanceAmount,
		PaymentMethod:   o.PaymentMethod,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
	}
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID         string            `json:"order_id"`
	Reason          string            `json:"reason"`
	RefundReference string            `json:"refund_reference,omitempty"`
	PaymentReceived valueobject.Money `json:"payment_received"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, at time.Time) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID, o.TenantID, at),
		OrderID:         o.ID,
		Reason:          o.CancelReason,
		RefundReference: o.RefundReference,
		PaymentReceived: o.PaymentReceived,
	}
}

// OrderCreditSettledEvent is raised for every credit settlement
type OrderCreditSettledEvent struct {
	shared.BaseDomainEvent
	OrderID       string            `json:"order_id"`
	Amount        valueobject.Money `json:"amount"`
	BalanceAmount valueobject.Money `json:"balance_amount"`
	CustomerPhone string            `json:"customer_phone"`
}

// NewOrderCreditSettledEvent creates a new OrderCreditSettledEvent
func NewOrderCreditSettledEvent(o *Order, amount valueobject.Money, at time.Time) *OrderCreditSettledEvent {
	return &OrderCreditSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreditSettled, AggregateTypeOrder, o.ID, o.TenantID, at),
		OrderID:         o.ID,
		Amount:          amount,
		BalanceAmount:   o.BalanceAmount,
		CustomerPhone:   o.CustomerPhone,
	}
}
