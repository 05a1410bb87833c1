// Package report holds the read models served by the reporting endpoints.
package report

import (
	"sort"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
)

// DailyReport summarises one local business day
type DailyReport struct {
	Date            string
	TotalOrders     int
	BilledOrders    int
	CancelledOrders int
	TotalSales      valueobject.Money
	ByPaymentMethod map[order.PaymentMethod]valueobject.Money
	OpenCredit      valueobject.Money
}

// BuildDailyReport folds the orders created inside window into a DailyReport.
// Sales count payment received on billed orders only.
func BuildDailyReport(window shared.DayWindow, orders []*order.Order) DailyReport {
	r := DailyReport{
		Date:            window.DateKey(),
		TotalSales:      valueobject.Zero(),
		ByPaymentMethod: make(map[order.PaymentMethod]valueobject.Money),
		OpenCredit:      valueobject.Zero(),
	}
	for _, o := range orders {
		if !window.Contains(o.CreatedAt) {
			continue
		}
		if o.Status == order.StatusCancelled {
			r.CancelledOrders++
			continue
		}
		r.TotalOrders++
		if !o.Status.IsBilled() {
			continue
		}
		r.BilledOrders++
		r.TotalSales = r.TotalSales.Add(o.PaymentReceived)
		r.addByMethod(o)
		if o.Status == order.StatusCompleted {
			r.OpenCredit = r.OpenCredit.Add(o.BalanceAmount)
		}
	}
	return r
}

// addByMethod credits each recorded payment to its own method, so a split order
// lands under cash and upi rather than "split". Received money with no history
// entry falls back to the order's method.
func (r *DailyReport) addByMethod(o *order.Order) {
	rest := o.PaymentReceived
	for _, p := range o.Payments {
		r.ByPaymentMethod[p.Method] = r.ByPaymentMethod[p.Method].Add(p.Amount)
		rest = rest.Subtract(p.Amount)
	}
	if rest.IsPositive() {
		r.ByPaymentMethod[o.PaymentMethod] = r.ByPaymentMethod[o.PaymentMethod].Add(rest)
	}
}

// CustomerBalance is one row of the outstanding-credit report
type CustomerBalance struct {
	CustomerName  string
	CustomerPhone string
	Outstanding   valueobject.Money
	OrderCount    int
	LastOrderDate time.Time
}

// FromLedgers converts store ledgers into report rows ordered by outstanding descending
func FromLedgers(ledgers []order.CustomerLedger) []CustomerBalance {
	rows := make([]CustomerBalance, 0, len(ledgers))
	for _, l := range ledgers {
		rows = append(rows, CustomerBalance{
			CustomerName:  l.CustomerName,
			CustomerPhone: l.CustomerPhone,
			Outstanding:   l.Outstanding,
			OrderCount:    l.OrderCount,
			LastOrderDate: l.LastOrderDate,
		})
	}
	SortBalances(rows)
	return rows
}

// SortBalances orders rows by outstanding descending, then by phone
func SortBalances(rows []CustomerBalance) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Outstanding.Equals(rows[j].Outstanding) {
			return rows[i].Outstanding.GreaterThan(rows[j].Outstanding)
		}
		return rows[i].CustomerPhone < rows[j].CustomerPhone
	})
}

// TableView is a table joined with its live orders
type TableView struct {
	ID           string
	TableNumber  int
	Capacity     int
	Status       table.Status
	ActiveOrders int
}

// BuildTableMap derives the status of every table from the active order counts
func BuildTableMap(tables []*table.Table, activeByTable map[string]int) []TableView {
	views := make([]TableView, 0, len(tables))
	for _, t := range tables {
		n := activeByTable[t.ID]
		views = append(views, TableView{
			ID:           t.ID,
			TableNumber:  t.TableNumber,
			Capacity:     t.Capacity,
			Status:       t.DeriveStatus(n),
			ActiveOrders: n,
		})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].TableNumber < views[j].TableNumber })
	return views
}
