// Package report serves the read side: active orders, today's bills, daily sales,
// customer credit and the dashboard.
package report

import (
	"context"
	"strings"

	"github.com/opentoworkprojects/bill-sub001/internal/application/billing"
	"github.com/opentoworkprojects/bill-sub001/internal/application/floor"
	"github.com/opentoworkprojects/bill-sub001/internal/application/projection"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/report"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// reportLimit bounds the orders folded into one daily report
const reportLimit = 20000

// reportFields are the stored fields a daily report needs
var reportFields = []string{"payment_method", "payment_received", "balance_amount", "payments"}

// Service computes reports. All operations are reads.
type Service struct {
	orders   order.Repository
	floor    *floor.Service
	profiles billing.ProfileSource
	cache    shared.ProjectionCache
	clock    shared.Clock
}

// NewService creates a new report service
func NewService(orders order.Repository, floorService *floor.Service, profiles billing.ProfileSource, cache shared.ProjectionCache, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &Service{orders: orders, floor: floorService, profiles: profiles, cache: cache, clock: clock}
}

// ActiveOrders returns the orders still on the floor, newest first
func (s *Service) ActiveOrders(ctx context.Context, tenantID string) ([]billing.OrderResponse, error) {
	key := shared.ActiveOrdersKey(tenantID, shared.TodayWindow(s.clock))
	return projection.ReadThrough(ctx, s.cache, key, shared.ActiveOrdersTTL,
		func(ctx context.Context) ([]billing.OrderResponse, error) {
			orders, err := s.orders.List(ctx, tenantID, order.ActiveFilter())
			if err != nil {
				return nil, err
			}
			return billing.ToOrderResponses(orders, nil), nil
		})
}

// TodaysBills returns orders created today that are billed or have taken payment.
// A cancelled order that took payment stays listed with its refund reference.
func (s *Service) TodaysBills(ctx context.Context, tenantID string) ([]billing.OrderResponse, error) {
	today := shared.TodayWindow(s.clock)
	return projection.ReadThrough(ctx, s.cache, shared.TodaysBillsKey(tenantID, today), shared.TodaysBillsTTL,
		func(ctx context.Context) ([]billing.OrderResponse, error) {
			orders, err := s.orders.List(ctx, tenantID, order.Filter{
				BillableOnly: true,
				CreatedFrom:  today.Start,
				CreatedTo:    today.End,
			})
			if err != nil {
				return nil, err
			}
			return billing.ToOrderResponses(orders, s.profile(ctx, tenantID)), nil
		})
}

// DailyReport computes the sales of one local date, today when date is empty.
// It always reads the store.
func (s *Service) DailyReport(ctx context.Context, tenantID, date string) (*DailyReportResponse, error) {
	window := shared.TodayWindow(s.clock)
	if date = strings.TrimSpace(date); date != "" {
		var err error
		if window, err = shared.ParseBusinessDate(date); err != nil {
			return nil, err
		}
	}

	orders, err := s.orders.List(ctx, tenantID, order.Filter{
		CreatedFrom: window.Start,
		CreatedTo:   window.End,
		Fields:      reportFields,
		Limit:       reportLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == reportLimit {
		logger.L(ctx).Warn("Daily report truncated", zap.String("date", window.DateKey()), zap.Int("limit", reportLimit))
	}
	resp := ToDailyReportResponse(report.BuildDailyReport(window, orders))
	return &resp, nil
}

// CustomerBalances lists customers with outstanding credit, largest first
func (s *Service) CustomerBalances(ctx context.Context, tenantID string) ([]CustomerBalanceResponse, error) {
	ledgers, err := s.orders.CustomerLedgers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toCustomerBalanceResponses(report.FromLedgers(ledgers)), nil
}

// CustomerLedger lists the open credit orders of one customer
func (s *Service) CustomerLedger(ctx context.Context, tenantID, phone string) (*CustomerLedgerResponse, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, shared.NewValidationError("Customer phone is required")
	}
	orders, err := s.orders.List(ctx, tenantID, order.Filter{
		Statuses:      []order.Status{order.StatusCompleted},
		HasBalance:    true,
		CustomerPhone: phone,
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, shared.NewNotFoundError("Customer credit")
	}

	resp := &CustomerLedgerResponse{
		CustomerPhone: phone,
		CustomerName:  orders[0].CustomerName,
		Outstanding:   valueobject.Zero(),
		Orders:        billing.ToOrderResponses(orders, s.profile(ctx, tenantID)),
	}
	for _, o := range orders {
		resp.Outstanding = resp.Outstanding.Add(o.BalanceAmount)
	}
	return resp, nil
}

// Dashboard combines the home screen views in one call
func (s *Service) Dashboard(ctx context.Context, tenantID string) (*DashboardResponse, error) {
	active, err := s.ActiveOrders(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	bills, err := s.TodaysBills(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	daily, err := s.DailyReport(ctx, tenantID, "")
	if err != nil {
		return nil, err
	}
	balances, err := s.CustomerBalances(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := &DashboardResponse{
		Date:             daily.Date,
		ActiveOrders:     active,
		TodaysBillCount:  len(bills),
		Report:           *daily,
		Tables:           []floor.TableResponse{},
		OutstandingTotal: valueobject.Zero(),
		CreditCustomers:  len(balances),
	}
	for _, b := range balances {
		resp.OutstandingTotal = resp.OutstandingTotal.Add(b.Outstanding)
	}

	if s.floor != nil {
		tables, err := s.floor.TableMap(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		resp.Tables = tables
		for _, t := range tables {
			if t.Status == table.StatusOccupied {
				resp.OccupiedTables++
			}
		}
	}
	return resp, nil
}

func (s *Service) profile(ctx context.Context, tenantID string) *settings.BusinessProfile {
	if s.profiles == nil {
		return settings.DefaultProfile(tenantID)
	}
	p, err := s.profiles.Profile(ctx, tenantID)
	if err != nil {
		logger.L(ctx).Warn("Cannot load business profile", zap.Error(err))
		return nil
	}
	return p
}
