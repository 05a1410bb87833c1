package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/application/billing"
	"github.com/opentoworkprojects/bill-sub001/internal/application/floor"
	"github.com/opentoworkprojects/bill-sub001/internal/application/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/cache"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cashier = shared.Actor{TenantID: "org-1", UserID: "u1", Name: "Asha", Role: shared.RoleCashier}
	rival   = shared.Actor{TenantID: "org-2", UserID: "u9", Name: "Kiran", Role: shared.RoleCashier}
)

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }
func (brokenCache) DeletePrefix(context.Context, string) error { return errCacheDown }
func (brokenCache) IsConnected(context.Context) bool { return false }

type testEnv struct {
	billing *billing.Service
	reports *Service
	now     time.Time
	burgers map[string]string
	table   *table.Table
}

func newTestEnv(t *testing.T, c shared.ProjectionCache) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	env := &testEnv{
		now:     time.Date(2024, 3, 10, 13, 0, 0, 0, shared.BusinessZone),
		burgers: map[string]string{},
	}
	clock := shared.ClockFunc(func() time.Time { return env.now.UTC() })

	for _, tenant := range []string{"org-1", "org-2"} {
		item, err := menu.NewItem(tenant, "Burger", valueobject.MustMoney("150.00"), "Mains", env.now)
		require.NoError(t, err)
		require.NoError(t, store.Menu().Create(ctx, item))
		env.burgers[tenant] = item.ID
	}
	var err error
	env.table, err = table.NewTable("org-1", 1, 4, env.now)
	require.NoError(t, err)
	require.NoError(t, store.Tables().Create(ctx, env.table))

	profiles := settings.NewService(store.Settings(), c, clock)
	floorService := floor.NewService(store.Tables(), store.Orders(), c, clock)
	env.billing = billing.NewService(store.Orders(), store.Menu(), store.Tables(), profiles, c, clock)
	env.reports = NewService(store.Orders(), floorService, profiles, c, clock)
	return env
}

func (e *testEnv) order(t *testing.T, actor shared.Actor, phone string) string {
	t.Helper()
	resp, err := e.billing.Create(context.Background(), actor, billing.CreateOrderRequest{
		TableID:       e.tableFor(actor),
		Items:         []billing.LineItemRequest{{MenuItemID: e.burgers[actor.TenantID], Quantity: 2}},
		CustomerName:  "Meera",
		CustomerPhone: phone,
	})
	require.NoError(t, err)
	return resp.ID
}

func (e *testEnv) tableFor(actor shared.Actor) string {
	if actor.TenantID == e.table.TenantID {
		return e.table.ID
	}
	return ""
}

func (e *testEnv) complete(t *testing.T, actor shared.Actor, id, received string, credit bool) *billing.OrderResponse {
	t.Helper()
	amount := valueobject.MustMoney(received)
	resp, err := e.billing.Complete(context.Background(), actor, id, billing.CompleteOrderRequest{
		PaymentReceived: &amount,
		IsCredit:        credit,
	})
	require.NoError(t, err)
	return resp
}

func ids(orders []billing.OrderResponse) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

// S1 through the read side
func TestActiveOrdersAndTodaysBills_ReadYourWrites(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	id := env.order(t, cashier, "9876543210")

	active, err := env.reports.ActiveOrders(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(active))
	bills, err := env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, bills)

	// both views are now cached; the completion must invalidate them
	env.complete(t, cashier, id, "300.00", false)

	active, err = env.reports.ActiveOrders(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, active)
	bills, err = env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, []string{id}, ids(bills))
	assert.Equal(t, order.StatusPaid, bills[0].Status)
	assert.Equal(t, "INV-00001", bills[0].InvoiceLabel)
}

func TestTodaysBills_IncludesPartPaidActiveOrders(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	id := env.order(t, cashier, "9876543210")
	cancelled := env.order(t, cashier, "9876543211")

	_, err := env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)

	_, err = env.billing.ApplyPayment(ctx, cashier, id, billing.PaymentRequest{Amount: valueobject.MustMoney("100")})
	require.NoError(t, err)
	_, err = env.billing.Cancel(ctx, cashier, cancelled, billing.CancelOrderRequest{})
	require.NoError(t, err)

	bills, err := env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(bills))
}

func TestTodaysBills_RefreshedAfterPartPaidOrderChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("edit", func(t *testing.T) {
		env := newTestEnv(t, cache.NewInMemoryCache())
		id := env.order(t, cashier, "9876543210")
		_, err := env.billing.ApplyPayment(ctx, cashier, id, billing.PaymentRequest{Amount: valueobject.MustMoney("100")})
		require.NoError(t, err)

		bills, err := env.reports.TodaysBills(ctx, "org-1")
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Equal(t, "300.00", bills[0].Total.String())

		discount := valueobject.MustMoney("50")
		_, err = env.billing.Edit(ctx, cashier, id, billing.EditOrderRequest{Discount: &discount})
		require.NoError(t, err)

		bills, err = env.reports.TodaysBills(ctx, "org-1")
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Equal(t, "250.00", bills[0].Total.String())
	})

	t.Run("cancel with refund", func(t *testing.T) {
		env := newTestEnv(t, cache.NewInMemoryCache())
		id := env.order(t, cashier, "9876543210")
		_, err := env.billing.ApplyPayment(ctx, cashier, id, billing.PaymentRequest{Amount: valueobject.MustMoney("100")})
		require.NoError(t, err)

		bills, err := env.reports.TodaysBills(ctx, "org-1")
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Equal(t, order.StatusPending, bills[0].Status)

		_, err = env.billing.Cancel(ctx, cashier, id, billing.CancelOrderRequest{Reason: "walked out", RefundReference: "R1"})
		require.NoError(t, err)

		// Money was taken, so the order stays listed with its refund
		bills, err = env.reports.TodaysBills(ctx, "org-1")
		require.NoError(t, err)
		require.Equal(t, []string{id}, ids(bills))
		assert.Equal(t, order.StatusCancelled, bills[0].Status)
		assert.Equal(t, "R1", bills[0].RefundReference)
	})
}

// S5
func TestTodaysBills_LocalDayBoundary(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	env.now = time.Date(2024, 3, 10, 23, 45, 0, 0, shared.BusinessZone)
	late := env.order(t, cashier, "9876543210")
	env.complete(t, cashier, late, "300", false)

	bills, err := env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{late}, ids(bills))

	env.now = time.Date(2024, 3, 11, 0, 5, 0, 0, shared.BusinessZone)
	early := env.order(t, cashier, "9876543210")
	env.complete(t, cashier, early, "300", false)

	bills, err = env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{early}, ids(bills))

	// both instants are on 10 March in UTC; the report follows the local day
	yesterday, err := env.reports.DailyReport(ctx, "org-1", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, yesterday.BilledOrders)
	assert.Equal(t, "300.00", yesterday.TotalSales.String())
}

func TestDailyReport(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	paid := env.order(t, cashier, "9876543210")
	env.complete(t, cashier, paid, "300", false)
	credit := env.order(t, cashier, "9876543211")
	env.complete(t, cashier, credit, "200", true)
	env.order(t, cashier, "9876543212")
	cancelled := env.order(t, cashier, "9876543213")
	_, err := env.billing.Cancel(ctx, cashier, cancelled, billing.CancelOrderRequest{})
	require.NoError(t, err)

	r, err := env.reports.DailyReport(ctx, "org-1", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", r.Date)
	assert.Equal(t, 3, r.TotalOrders)
	assert.Equal(t, 2, r.BilledOrders)
	assert.Equal(t, 1, r.CancelledOrders)
	assert.Equal(t, "500.00", r.TotalSales.String())
	assert.Equal(t, "100.00", r.OpenCredit.String())
	assert.Equal(t, "500.00", r.ByPaymentMethod[order.PaymentCash].String())

	_, err = env.reports.DailyReport(ctx, "org-1", "March 10")
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

// S2
func TestCustomerBalancesAndLedger(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	first := env.order(t, cashier, "9876543210")
	env.complete(t, cashier, first, "200", true)
	second := env.order(t, cashier, "9876543210")
	env.complete(t, cashier, second, "250", true)
	other := env.order(t, cashier, "9000000000")
	env.complete(t, cashier, other, "100", true)

	foreign := env.order(t, rival, "9876543210")
	env.complete(t, rival, foreign, "0", true)

	balances, err := env.reports.CustomerBalances(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "9000000000", balances[0].CustomerPhone)
	assert.Equal(t, "200.00", balances[0].Outstanding.String())
	assert.Equal(t, "9876543210", balances[1].CustomerPhone)
	assert.Equal(t, "150.00", balances[1].Outstanding.String())
	assert.Equal(t, 2, balances[1].OrderCount)

	ledger, err := env.reports.CustomerLedger(ctx, "org-1", "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "150.00", ledger.Outstanding.String())
	assert.Len(t, ledger.Orders, 2)

	_, err = env.reports.CustomerLedger(ctx, "org-1", "1111111111")
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	env.order(t, cashier, "9876543210")
	credit := env.order(t, cashier, "9876543211")
	env.complete(t, cashier, credit, "100", true)

	d, err := env.reports.Dashboard(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, d.ActiveOrders, 1)
	assert.Equal(t, 1, d.TodaysBillCount)
	assert.Equal(t, 1, d.OccupiedTables)
	require.Len(t, d.Tables, 1)
	assert.Equal(t, table.StatusOccupied, d.Tables[0].Status)
	assert.Equal(t, "200.00", d.OutstandingTotal.String())
	assert.Equal(t, 1, d.CreditCustomers)
}

// S6
func TestReads_WithBrokenCache(t *testing.T) {
	env := newTestEnv(t, brokenCache{})
	ctx := context.Background()

	id := env.order(t, cashier, "9876543210")
	active, err := env.reports.ActiveOrders(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(active))

	env.complete(t, cashier, id, "300", false)

	active, err = env.reports.ActiveOrders(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, active)
	bills, err := env.reports.TodaysBills(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, bills, 1)

	d, err := env.reports.Dashboard(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, d.OccupiedTables)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	env.order(t, cashier, "9876543210")
	theirs := env.order(t, rival, "9876543210")

	active, err := env.reports.ActiveOrders(ctx, "org-2")
	require.NoError(t, err)
	assert.Equal(t, []string{theirs}, ids(active))

	_, err = env.billing.Get(ctx, cashier, theirs)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}
