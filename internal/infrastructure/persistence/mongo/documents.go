package mongo

import (
	"fmt"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// timeLayout is fixed width so stored timestamps sort lexicographically
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// older documents may carry RFC 3339 strings
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

func toDecimal128(m valueobject.Money) primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(m.String())
	if err != nil {
		// String() is always a plain fixed-point number
		panic(fmt.Sprintf("money %s is not a valid decimal128: %v", m, err))
	}
	return d
}

func fromDecimal128(d primitive.Decimal128) valueobject.Money {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return valueobject.Zero()
	}
	return valueobject.NewMoney(v)
}

type lineItemDoc struct {
	MenuItemID string               `bson:"menu_item_id"`
	Name       string               `bson:"name"`
	Price      primitive.Decimal128 `bson:"price"`
	Quantity   int                  `bson:"quantity"`
	Notes      string               `bson:"notes,omitempty"`
}

type paymentDoc struct {
	Amount     primitive.Decimal128 `bson:"amount"`
	Method     string               `bson:"method"`
	Kind       string               `bson:"kind"`
	RecordedAt string               `bson:"recorded_at"`
	By         string               `bson:"by,omitempty"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	OrganizationID  string               `bson:"organization_id"`
	Version         int                  `bson:"version"`
	TableID         string               `bson:"table_id"`
	TableNumber     *int                 `bson:"table_number"`
	Items           []lineItemDoc        `bson:"items"`
	Subtotal        primitive.Decimal128 `bson:"subtotal"`
	Tax             primitive.Decimal128 `bson:"tax"`
	Discount        primitive.Decimal128 `bson:"discount"`
	Total           primitive.Decimal128 `bson:"total"`
	PaymentMethod   string               `bson:"payment_method"`
	PaymentReceived primitive.Decimal128 `bson:"payment_received"`
	BalanceAmount   primitive.Decimal128 `bson:"balance_amount"`
	IsCredit        bool                 `bson:"is_credit"`
	CustomerName    string               `bson:"customer_name"`
	CustomerPhone   string               `bson:"customer_phone"`
	WaiterName      string               `bson:"waiter_name"`
	Status          string               `bson:"status"`
	InvoiceNumber   *int64               `bson:"invoice_number,omitempty"`
	Payments        []paymentDoc         `bson:"payments"`
	CancelReason    string               `bson:"cancel_reason,omitempty"`
	RefundReference string               `bson:"refund_reference,omitempty"`
	CreatedAt       string               `bson:"created_at"`
	UpdatedAt       string               `bson:"updated_at"`
	CompletedAt     string               `bson:"completed_at,omitempty"`
	CancelledAt     string               `bson:"cancelled_at,omitempty"`
}

func toOrderDoc(o *order.Order) orderDoc {
	items := make([]lineItemDoc, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemDoc{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      toDecimal128(it.Price),
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}
	payments := make([]paymentDoc, len(o.Payments))
	for i, p := range o.Payments {
		payments[i] = paymentDoc{
			Amount:     toDecimal128(p.Amount),
			Method:     string(p.Method),
			Kind:       string(p.Kind),
			RecordedAt: formatTime(p.RecordedAt),
			By:         p.By,
		}
	}
	return orderDoc{
		ID:              o.ID,
		OrganizationID:  o.TenantID,
		Version:         o.Version,
		TableID:         o.TableID,
		TableNumber:     o.TableNumber,
		Items:           items,
		Subtotal:        toDecimal128(o.Subtotal),
		Tax:             toDecimal128(o.Tax),
		Discount:        toDecimal128(o.Discount),
		Total:           toDecimal128(o.Total),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentReceived: toDecimal128(o.PaymentReceived),
		BalanceAmount:   toDecimal128(o.BalanceAmount),
		IsCredit:        o.IsCredit,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		WaiterName:      o.WaiterName,
		Status:          string(o.Status),
		InvoiceNumber:   o.InvoiceNumber,
		Payments:        payments,
		CancelReason:    o.CancelReason,
		RefundReference: o.RefundReference,
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
		CompletedAt:     formatTimePtr(o.CompletedAt),
		CancelledAt:     formatTimePtr(o.CancelledAt),
	}
}

func (d orderDoc) toDomain() *order.Order {
	items := make([]order.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = order.LineItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      fromDecimal128(it.Price),
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}
	payments := make([]order.PaymentEvent, len(d.Payments))
	for i, p := range d.Payments {
		payments[i] = order.PaymentEvent{
			Amount:     fromDecimal128(p.Amount),
			Method:     order.PaymentMethod(p.Method),
			Kind:       order.PaymentKind(p.Kind),
			RecordedAt: parseTime(p.RecordedAt),
			By:         p.By,
		}
	}
	o := &order.Order{
		TableID:         d.TableID,
		TableNumber:     d.TableNumber,
		Items:           items,
		Subtotal:        fromDecimal128(d.Subtotal),
		Tax:             fromDecimal128(d.Tax),
		Discount:        fromDecimal128(d.Discount),
		Total:           fromDecimal128(d.Total),
		PaymentMethod:   order.PaymentMethod(d.PaymentMethod),
		PaymentReceived: fromDecimal128(d.PaymentReceived),
		BalanceAmount:   fromDecimal128(d.BalanceAmount),
		IsCredit:        d.IsCredit,
		CustomerName:    d.CustomerName,
		CustomerPhone:   d.CustomerPhone,
		WaiterName:      d.WaiterName,
		Status:          order.Status(d.Status),
		InvoiceNumber:   d.InvoiceNumber,
		Payments:        payments,
		CancelReason:    d.CancelReason,
		RefundReference: d.RefundReference,
		CompletedAt:     parseTimePtr(d.CompletedAt),
		CancelledAt:     parseTimePtr(d.CancelledAt),
	}
	o.ID = d.ID
	o.TenantID = d.OrganizationID
	o.Version = d.Version
	o.CreatedAt = parseTime(d.CreatedAt)
	o.UpdatedAt = parseTime(d.UpdatedAt)
	return o
}

type tableDoc struct {
	ID             string `bson:"_id"`
	OrganizationID string `bson:"organization_id"`
	TableNumber    int    `bson:"table_number"`
	Capacity       int    `bson:"capacity"`
	Mark           string `bson:"mark,omitempty"`
	CreatedAt      string `bson:"created_at"`
	UpdatedAt      string `bson:"updated_at"`
}

func toTableDoc(t *table.Table) tableDoc {
	return tableDoc{
		ID:             t.ID,
		OrganizationID: t.TenantID,
		TableNumber:    t.TableNumber,
		Capacity:       t.Capacity,
		Mark:           string(t.Mark),
		CreatedAt:      formatTime(t.CreatedAt),
		UpdatedAt:      formatTime(t.UpdatedAt),
	}
}

func (d tableDoc) toDomain() *table.Table {
	t := &table.Table{
		TableNumber: d.TableNumber,
		Capacity:    d.Capacity,
		Mark:        table.Mark(d.Mark),
	}
	t.ID = d.ID
	t.TenantID = d.OrganizationID
	t.CreatedAt = parseTime(d.CreatedAt)
	t.UpdatedAt = parseTime(d.UpdatedAt)
	return t
}

type menuItemDoc struct {
	ID             string               `bson:"_id"`
	OrganizationID string               `bson:"organization_id"`
	Name           string               `bson:"name"`
	Price          primitive.Decimal128 `bson:"price"`
	Category       string               `bson:"category"`
	Available      bool                 `bson:"available"`
	CreatedAt      string               `bson:"created_at"`
	UpdatedAt      string               `bson:"updated_at"`
}

func toMenuItemDoc(i *menu.Item) menuItemDoc {
	return menuItemDoc{
		ID:             i.ID,
		OrganizationID: i.TenantID,
		Name:           i.Name,
		Price:          toDecimal128(i.Price),
		Category:       i.Category,
		Available:      i.Available,
		CreatedAt:      formatTime(i.CreatedAt),
		UpdatedAt:      formatTime(i.UpdatedAt),
	}
}

func (d menuItemDoc) toDomain() *menu.Item {
	i := &menu.Item{
		Name:      d.Name,
		Price:     fromDecimal128(d.Price),
		Category:  d.Category,
		Available: d.Available,
	}
	i.ID = d.ID
	i.TenantID = d.OrganizationID
	i.CreatedAt = parseTime(d.CreatedAt)
	i.UpdatedAt = parseTime(d.UpdatedAt)
	return i
}

type profileDoc struct {
	OrganizationID string               `bson:"_id"`
	RestaurantName string               `bson:"restaurant_name"`
	Address        string               `bson:"address"`
	Phone          string               `bson:"phone"`
	GSTIN          string               `bson:"gstin"`
	TaxRate        primitive.Decimal128 `bson:"tax_rate"`
	InvoicePrefix  string               `bson:"invoice_prefix"`
	UpdatedAt      string               `bson:"updated_at"`
}

func toProfileDoc(p *settings.BusinessProfile) profileDoc {
	rate, err := primitive.ParseDecimal128(p.TaxRate.String())
	if err != nil {
		rate = primitive.NewDecimal128(0, 0)
	}
	return profileDoc{
		OrganizationID: p.TenantID,
		RestaurantName: p.RestaurantName,
		Address:        p.Address,
		Phone:          p.Phone,
		GSTIN:          p.GSTIN,
		TaxRate:        rate,
		InvoicePrefix:  p.InvoicePrefix,
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

func (d profileDoc) toDomain() *settings.BusinessProfile {
	rate, err := decimal.NewFromString(d.TaxRate.String())
	if err != nil {
		rate = decimal.Zero
	}
	return &settings.BusinessProfile{
		TenantID:       d.OrganizationID,
		RestaurantName: d.RestaurantName,
		Address:        d.Address,
		Phone:          d.Phone,
		GSTIN:          d.GSTIN,
		TaxRate:        rate,
		InvoicePrefix:  d.InvoicePrefix,
		UpdatedAt:      parseTime(d.UpdatedAt),
	}
}

// notFound builds the NOT_FOUND error of a missing document
func notFound(resource string) error {
	return shared.NewNotFoundError(resource)
}
