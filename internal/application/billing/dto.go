package billing

import (
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// LineItemRequest is one requested line. Name and price come from the menu.
type LineItemRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=1000"`
	Notes      string `json:"notes" binding:"max=500"`
}

// CreateOrderRequest is an order draft
type CreateOrderRequest struct {
	TableID         string             `json:"table_id"`
	Items           []LineItemRequest  `json:"items" binding:"required,min=1,dive"`
	Tax             *valueobject.Money `json:"tax"`
	Discount        valueobject.Money  `json:"discount"`
	PaymentMethod   string             `json:"payment_method" binding:"omitempty,payment_method"`
	PaymentReceived valueobject.Money  `json:"payment_received"`
	CustomerName    string             `json:"customer_name" binding:"max=200"`
	CustomerPhone   string             `json:"customer_phone" binding:"max=20"`
	WaiterName      string             `json:"waiter_name" binding:"max=100"`
}

// EditOrderRequest edits a pending order. Omitted fields are left unchanged.
type EditOrderRequest struct {
	TableID       *string            `json:"table_id"`
	Items         []LineItemRequest  `json:"items" binding:"omitempty,min=1,dive"`
	Tax           *valueobject.Money `json:"tax"`
	Discount      *valueobject.Money `json:"discount"`
	CustomerName  *string            `json:"customer_name" binding:"omitempty,max=200"`
	CustomerPhone *string            `json:"customer_phone" binding:"omitempty,max=20"`
}

// UpdateStatusRequest moves an order through the kitchen
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,order_status"`
}

// PaymentRequest applies a payment
type PaymentRequest struct {
	Amount valueobject.Money `json:"amount"`
	Method string            `json:"method" binding:"omitempty,payment_method"`
}

// CompleteOrderRequest bills an order. PaymentReceived is the total amount received so far.
type CompleteOrderRequest struct {
	PaymentReceived *valueobject.Money `json:"payment_received"`
	PaymentMethod   string             `json:"payment_method" binding:"omitempty,payment_method"`
	IsCredit        bool               `json:"is_credit"`
	CustomerName    string             `json:"customer_name" binding:"max=200"`
	CustomerPhone   string             `json:"customer_phone" binding:"max=20"`
}

// SettleCreditRequest reduces an outstanding balance
type SettleCreditRequest struct {
	Amount valueobject.Money `json:"amount"`
	Method string            `json:"method" binding:"omitempty,payment_method"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason          string `json:"reason" binding:"max=500"`
	RefundReference string `json:"refund_reference" binding:"max=100"`
}

// HistoryFilter lists orders between two local dates
type HistoryFilter struct {
	From          string `form:"from"`
	To            string `form:"to"`
	Status        string `form:"status" binding:"omitempty,order_status"`
	CustomerPhone string `form:"customer_phone"`
}

// LineItemResponse is a line of an order
type LineItemResponse struct {
	MenuItemID string            `json:"menu_item_id"`
	Name       string            `json:"name"`
	Price      valueobject.Money `json:"price"`
	Quantity   int               `json:"quantity"`
	Notes      string            `json:"notes,omitempty"`
	Amount     valueobject.Money `json:"amount"`
}

// PaymentResponse is one entry of the payment history
type PaymentResponse struct {
	Amount     valueobject.Money   `json:"amount"`
	Method     order.PaymentMethod `json:"method"`
	Kind       order.PaymentKind   `json:"kind"`
	RecordedAt time.Time           `json:"recorded_at"`
	By         string              `json:"by,omitempty"`
}

// OrderResponse is an order as served and cached
type OrderResponse struct {
	ID              string              `json:"id"`
	OrganizationID  string              `json:"organization_id"`
	TableID         string              `json:"table_id"`
	TableNumber     *int                `json:"table_number"`
	Items           []LineItemResponse  `json:"items"`
	Subtotal        valueobject.Money   `json:"subtotal"`
	Tax             valueobject.Money   `json:"tax"`
	Discount        valueobject.Money   `json:"discount"`
	Total           valueobject.Money   `json:"total"`
	PaymentMethod   order.PaymentMethod `json:"payment_method"`
	PaymentReceived valueobject.Money   `json:"payment_received"`
	BalanceAmount   valueobject.Money   `json:"balance_amount"`
	IsCredit        bool                `json:"is_credit"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	WaiterName      string              `json:"waiter_name"`
	Status          order.Status        `json:"status"`
	InvoiceNumber   *int64              `json:"invoice_number,omitempty"`
	InvoiceLabel    string              `json:"invoice_label,omitempty"`
	Payments        []PaymentResponse   `json:"payments"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	RefundReference string              `json:"refund_reference,omitempty"`
	Version         int                 `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
}

// ToOrderResponse converts a domain order. A nil profile leaves invoice_label empty.
func ToOrderResponse(o *order.Order, profile *settings.BusinessProfile) OrderResponse {
	items := make([]LineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = LineItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
			Amount:     item.Amount(),
		}
	}
	payments := make([]PaymentResponse, len(o.Payments))
	for i, p := range o.Payments {
		payments[i] = PaymentResponse{
			Amount:     p.Amount,
			Method:     p.Method,
			Kind:       p.Kind,
			RecordedAt: p.RecordedAt,
			By:         p.By,
		}
	}

	resp := OrderResponse{
		ID:              o.ID,
		OrganizationID:  o.TenantID,
		TableID:         o.TableID,
		TableNumber:     o.TableNumber,
		Items:           items,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		Discount:        o.Discount,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		PaymentReceived: o.PaymentReceived,
		BalanceAmount:   o.BalanceAmount,
		IsCredit:        o.IsCredit,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		WaiterName:      o.WaiterName,
		Status:          o.Status,
		InvoiceNumber:   o.InvoiceNumber,
		Payments:        payments,
		CancelReason:    o.CancelReason,
		RefundReference: o.RefundReference,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
		CancelledAt:     o.CancelledAt,
	}
	if o.InvoiceNumber != nil && profile != nil {
		resp.InvoiceLabel = profile.InvoiceLabel(*o.InvoiceNumber)
	}
	return resp
}

// ToOrderResponses converts a list of orders
func ToOrderResponses(orders []*order.Order, profile *settings.BusinessProfile) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o, profile)
	}
	return out
}
