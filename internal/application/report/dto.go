package report

import (
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/application/billing"
	"github.com/opentoworkprojects/bill-sub001/internal/application/floor"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/report"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// DailyReportResponse summarises one business day
type DailyReportResponse struct {
	Date            string                                    `json:"date"`
	TotalOrders     int                                       `json:"total_orders"`
	BilledOrders    int                                       `json:"billed_orders"`
	CancelledOrders int                                       `json:"cancelled_orders"`
	TotalSales      valueobject.Money                         `json:"total_sales"`
	ByPaymentMethod map[order.PaymentMethod]valueobject.Money `json:"by_payment_method"`
	OpenCredit      valueobject.Money                         `json:"open_credit"`
}

// ToDailyReportResponse converts a domain report
func ToDailyReportResponse(r report.DailyReport) DailyReportResponse {
	return DailyReportResponse{
		Date:            r.Date,
		TotalOrders:     r.TotalOrders,
		BilledOrders:    r.BilledOrders,
		CancelledOrders: r.CancelledOrders,
		TotalSales:      r.TotalSales,
		ByPaymentMethod: r.ByPaymentMethod,
		OpenCredit:      r.OpenCredit,
	}
}

// CustomerBalanceResponse is one customer with outstanding credit
type CustomerBalanceResponse struct {
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Outstanding   valueobject.Money `json:"outstanding"`
	OrderCount    int               `json:"order_count"`
	LastOrderDate time.Time         `json:"last_order_date"`
}

func toCustomerBalanceResponses(rows []report.CustomerBalance) []CustomerBalanceResponse {
	out := make([]CustomerBalanceResponse, len(rows))
	for i, r := range rows {
		out[i] = CustomerBalanceResponse{
			CustomerName:  r.CustomerName,
			CustomerPhone: r.CustomerPhone,
			Outstanding:   r.Outstanding,
			OrderCount:    r.OrderCount,
			LastOrderDate: r.LastOrderDate,
		}
	}
	return out
}

// CustomerLedgerResponse lists the open credit orders of one customer
type CustomerLedgerResponse struct {
	CustomerName  string                  `json:"customer_name"`
	CustomerPhone string                  `json:"customer_phone"`
	Outstanding   valueobject.Money       `json:"outstanding"`
	Orders        []billing.OrderResponse `json:"orders"`
}

// DashboardResponse is the combined snapshot shown on the POS home screen
type DashboardResponse struct {
	Date             string                  `json:"date"`
	ActiveOrders     []billing.OrderResponse `json:"active_orders"`
	TodaysBillCount  int                     `json:"todays_bill_count"`
	Report           DailyReportResponse     `json:"report"`
	Tables           []floor.TableResponse   `json:"tables"`
	OccupiedTables   int                     `json:"occupied_tables"`
	OutstandingTotal valueobject.Money       `json:"outstanding_total"`
	CreditCustomers  int                     `json:"credit_customers"`
}
