package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

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
	waiter  = shared.Actor{TenantID: "org-1", UserID: "u2", Name: "Ravi", Role: shared.RoleWaiter}
	kitchen = shared.Actor{TenantID: "org-1", UserID: "u3", Name: "Chef", Role: shared.RoleKitchen}
)

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

// brokenCache fails every call like an unreachable Redis
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }
func (brokenCache) DeletePrefix(context.Context, string) error { return errCacheDown }
func (brokenCache) IsConnected(context.Context) bool { return false }

type testEnv struct {
	svc       *Service
	store     *memory.Store
	cache     shared.ProjectionCache
	publisher *capturePublisher
	now       time.Time
	burger    *menu.Item
	fries     *menu.Item
	soup      *menu.Item
	table     *table.Table
}

func newTestEnv(t *testing.T, c shared.ProjectionCache) *testEnv {
	t.Helper()
	ctx := context.Background()
	env := &testEnv{
		store:     memory.NewStore(),
		cache:     c,
		publisher: &capturePublisher{},
		now:       time.Date(2024, 3, 10, 13, 0, 0, 0, shared.BusinessZone),
	}

	var err error
	env.burger, err = menu.NewItem("org-1", "Burger", valueobject.MustMoney("150.00"), "Mains", env.now)
	require.NoError(t, err)
	env.fries, err = menu.NewItem("org-1", "Fries", valueobject.MustMoney("80.00"), "Sides", env.now)
	require.NoError(t, err)
	env.soup, err = menu.NewItem("org-1", "Soup", valueobject.MustMoney("90.00"), "Starters", env.now)
	require.NoError(t, err)
	env.soup.SetAvailable(false, env.now)
	for _, item := range []*menu.Item{env.burger, env.fries, env.soup} {
		require.NoError(t, env.store.Menu().Create(ctx, item))
	}

	env.table, err = table.NewTable("org-1", 4, 4, env.now)
	require.NoError(t, err)
	require.NoError(t, env.store.Tables().Create(ctx, env.table))

	clock := shared.ClockFunc(func() time.Time { return env.now.UTC() })
	env.svc = NewService(env.store.Orders(), env.store.Menu(), env.store.Tables(), nil, c, clock)
	env.svc.SetEventPublisher(env.publisher)
	return env
}

func (e *testEnv) burgerOrder(t *testing.T, actor shared.Actor) *OrderResponse {
	t.Helper()
	resp, err := e.svc.Create(context.Background(), actor, CreateOrderRequest{
		TableID:       e.table.ID,
		Items:         []LineItemRequest{{MenuItemID: e.burger.ID, Quantity: 2}},
		CustomerName:  "Meera",
		CustomerPhone: "9876543210",
	})
	require.NoError(t, err)
	return resp
}

func money(s string) *valueobject.Money {
	m := valueobject.MustMoney(s)
	return &m
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	resp := env.burgerOrder(t, waiter)

	assert.Equal(t, order.StatusPending, resp.Status)
	assert.Equal(t, "300.00", resp.Subtotal.String())
	assert.Equal(t, "300.00", resp.Total.String())
	assert.Equal(t, "300.00", resp.BalanceAmount.String())
	assert.Equal(t, "Ravi", resp.WaiterName)
	require.NotNil(t, resp.TableNumber)
	assert.Equal(t, 4, *resp.TableNumber)
	assert.Nil(t, resp.InvoiceNumber)
	assert.Equal(t, "Burger", resp.Items[0].Name)
	assert.Equal(t, []string{order.EventTypeOrderCreated}, env.publisher.types())
}

func TestCreate_Rejections(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	tests := []struct {
		name  string
		actor shared.Actor
		req   CreateOrderRequest
		code  string
	}{
		{
			name:  "kitchen cannot take orders",
			actor: kitchen,
			req:   CreateOrderRequest{Items: []LineItemRequest{{MenuItemID: env.burger.ID, Quantity: 1}}},
			code:  shared.CodeForbidden,
		},
		{
			name:  "no items",
			actor: waiter,
			req:   CreateOrderRequest{},
			code:  shared.CodeValidation,
		},
		{
			name:  "unknown menu item",
			actor: waiter,
			req:   CreateOrderRequest{Items: []LineItemRequest{{MenuItemID: "ghost", Quantity: 1}}},
			code:  shared.CodeValidation,
		},
		{
			name:  "unavailable menu item",
			actor: waiter,
			req:   CreateOrderRequest{Items: []LineItemRequest{{MenuItemID: env.soup.ID, Quantity: 1}}},
			code:  shared.CodeValidation,
		},
		{
			name:  "unknown table",
			actor: waiter,
			req:   CreateOrderRequest{TableID: "t-404", Items: []LineItemRequest{{MenuItemID: env.burger.ID, Quantity: 1}}},
			code:  shared.CodeValidation,
		},
		{
			name:  "discount above total",
			actor: waiter,
			req:   CreateOrderRequest{Discount: valueobject.MustMoney("500"), Items: []LineItemRequest{{MenuItemID: env.burger.ID, Quantity: 1}}},
			code:  shared.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Create(ctx, tt.actor, tt.req)
			assert.True(t, shared.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCreate_MenuEditsDoNotRewriteOrders(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	require.NoError(t, env.burger.Update("Cheese Burger", valueobject.MustMoney("175"), "Mains", env.now))
	require.NoError(t, env.store.Menu().Update(ctx, env.burger))

	// Existing lines keep their snapshot, new lines take the current menu
	edited, err := env.svc.Edit(ctx, waiter, created.ID, EditOrderRequest{Items: []LineItemRequest{
		{MenuItemID: env.burger.ID, Quantity: 1},
		{MenuItemID: env.fries.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Burger", edited.Items[0].Name)
	assert.Equal(t, "150.00", edited.Items[0].Price.String())
	assert.Equal(t, "230.00", edited.Total.String())
}

// S1
func TestComplete_FullCashPayment(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	resp, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{
		PaymentReceived: money("300.00"),
		PaymentMethod:   "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaid, resp.Status)
	require.NotNil(t, resp.InvoiceNumber)
	assert.Equal(t, int64(1), *resp.InvoiceNumber)
	assert.Equal(t, "INV-00001", resp.InvoiceLabel)
	assert.True(t, resp.BalanceAmount.IsZero())
	assert.False(t, resp.IsCredit)
	require.Len(t, resp.Payments, 1)
	assert.Equal(t, order.PaymentKindCompletion, resp.Payments[0].Kind)
	assert.Equal(t, "Asha", resp.Payments[0].By)
	assert.Contains(t, env.publisher.types(), order.EventTypeOrderCompleted)
}

func TestComplete_RetriesWhenInvoiceNumberTaken(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	// An order imported with invoice 1 while the counter still sits at zero
	seeded, err := order.NewOrder("org-1", order.Draft{
		Items: []order.LineItem{{MenuItemID: env.fries.ID, Name: "Fries", Price: valueobject.MustMoney("80.00"), Quantity: 1}},
	}, env.now.UTC())
	require.NoError(t, err)
	full := valueobject.MustMoney("80.00")
	require.NoError(t, seeded.Complete(order.CompleteRequest{PaymentReceived: &full}, env.now.UTC()))
	require.NoError(t, seeded.AssignInvoice(1, env.now.UTC()))
	require.NoError(t, env.store.Orders().Insert(ctx, seeded))

	created := env.burgerOrder(t, waiter)
	resp, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{
		PaymentReceived: money("300.00"),
		PaymentMethod:   "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaid, resp.Status)
	require.NotNil(t, resp.InvoiceNumber)
	assert.Equal(t, int64(2), *resp.InvoiceNumber)
	assert.Equal(t, "INV-00002", resp.InvoiceLabel)

	stored, err := env.store.Orders().Get(ctx, "org-1", created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.InvoiceNumber)
	assert.Equal(t, int64(2), *stored.InvoiceNumber)
}

// S2, S3
func TestCreditLifecycle(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	_, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{PaymentReceived: money("200.00")})
	assert.True(t, shared.IsCode(err, shared.CodeValidation), "a balance needs is_credit")

	resp, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{
		PaymentReceived: money("200.00"),
		IsCredit:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, resp.Status)
	assert.Equal(t, "100.00", resp.BalanceAmount.String())
	assert.True(t, resp.IsCredit)
	require.NotNil(t, resp.InvoiceNumber)
	invoice := *resp.InvoiceNumber

	_, err = env.svc.SettleCredit(ctx, waiter, created.ID, SettleCreditRequest{Amount: valueobject.MustMoney("60")})
	assert.True(t, shared.IsCode(err, shared.CodeForbidden))

	resp, err = env.svc.SettleCredit(ctx, cashier, created.ID, SettleCreditRequest{Amount: valueobject.MustMoney("60.00")})
	require.NoError(t, err)
	assert.Equal(t, "40.00", resp.BalanceAmount.String())
	assert.Equal(t, order.StatusCompleted, resp.Status)

	_, err = env.svc.SettleCredit(ctx, cashier, created.ID, SettleCreditRequest{Amount: valueobject.MustMoney("50.00")})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	resp, err = env.svc.SettleCredit(ctx, cashier, created.ID, SettleCreditRequest{Amount: valueobject.MustMoney("40.00"), Method: "upi"})
	require.NoError(t, err)
	assert.True(t, resp.BalanceAmount.IsZero())
	assert.Equal(t, order.StatusPaid, resp.Status)
	assert.False(t, resp.IsCredit)
	assert.Equal(t, invoice, *resp.InvoiceNumber, "invoice numbers are never reassigned")
	assert.Equal(t, order.PaymentSplit, resp.PaymentMethod)
}

func TestApplyPayment(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	resp, err := env.svc.ApplyPayment(ctx, waiter, created.ID, PaymentRequest{Amount: valueobject.MustMoney("100"), Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, resp.Status)
	assert.Equal(t, "200.00", resp.BalanceAmount.String())
	assert.Nil(t, resp.InvoiceNumber)

	_, err = env.svc.ApplyPayment(ctx, waiter, created.ID, PaymentRequest{Amount: valueobject.MustMoney("250")})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	resp, err = env.svc.ApplyPayment(ctx, waiter, created.ID, PaymentRequest{Amount: valueobject.MustMoney("200"), Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, resp.Status)
	require.NotNil(t, resp.InvoiceNumber)
	assert.Equal(t, order.PaymentCard, resp.PaymentMethod)
}

func TestApplyPayment_SelfOrderStaysPending(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	created, err := env.svc.Create(ctx, waiter, CreateOrderRequest{
		TableID:    env.table.ID,
		Items:      []LineItemRequest{{MenuItemID: env.fries.ID, Quantity: 1}},
		WaiterName: order.SelfOrderWaiter,
	})
	require.NoError(t, err)

	resp, err := env.svc.ApplyPayment(ctx, waiter, created.ID, PaymentRequest{Amount: valueobject.MustMoney("80"), Method: "upi"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, resp.Status)
	assert.Nil(t, resp.InvoiceNumber)

	resp, err = env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, resp.Status)
	assert.NotNil(t, resp.InvoiceNumber)
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	resp, err := env.svc.UpdateStatus(ctx, kitchen, created.ID, order.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, resp.Status)

	_, err = env.svc.Edit(ctx, waiter, created.ID, EditOrderRequest{Discount: money("10")})
	assert.True(t, shared.IsCode(err, shared.CodeStatusConflict), "only pending orders are editable")

	resp, err = env.svc.UpdateStatus(ctx, kitchen, created.ID, order.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, order.StatusReady, resp.Status)

	_, err = env.svc.UpdateStatus(ctx, kitchen, created.ID, order.StatusPreparing)
	assert.True(t, shared.IsCode(err, shared.CodeStatusConflict))

	_, err = env.svc.UpdateStatus(ctx, kitchen, created.ID, order.StatusPaid)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = env.svc.Complete(ctx, kitchen, created.ID, CompleteOrderRequest{})
	assert.True(t, shared.IsCode(err, shared.CodeForbidden))
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	t.Run("unpaid order", func(t *testing.T) {
		created := env.burgerOrder(t, waiter)
		resp, err := env.svc.Cancel(ctx, waiter, created.ID, CancelOrderRequest{Reason: "guest left"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, resp.Status)
		assert.Equal(t, "guest left", resp.CancelReason)

		_, err = env.svc.Cancel(ctx, waiter, created.ID, CancelOrderRequest{})
		assert.True(t, shared.IsCode(err, shared.CodeStatusConflict))
	})

	t.Run("order with payment", func(t *testing.T) {
		created := env.burgerOrder(t, waiter)
		_, err := env.svc.ApplyPayment(ctx, waiter, created.ID, PaymentRequest{Amount: valueobject.MustMoney("50")})
		require.NoError(t, err)

		_, err = env.svc.Cancel(ctx, waiter, created.ID, CancelOrderRequest{RefundReference: "R-1"})
		assert.True(t, shared.IsCode(err, shared.CodeForbidden))

		_, err = env.svc.Cancel(ctx, cashier, created.ID, CancelOrderRequest{})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))

		resp, err := env.svc.Cancel(ctx, cashier, created.ID, CancelOrderRequest{RefundReference: "R-1"})
		require.NoError(t, err)
		assert.Equal(t, "R-1", resp.RefundReference)
	})
}

func TestMutation_InvalidatesCachedViews(t *testing.T) {
	c := cache.NewInMemoryCache()
	env := newTestEnv(t, c)
	ctx := context.Background()
	today := shared.BusinessDay(env.now)

	active := shared.ActiveOrdersKey("org-1", today)
	bills := shared.TodaysBillsKey("org-1", today)
	tables := shared.TablesKey("org-1")
	seed := func() {
		for _, k := range []string{active, bills, tables} {
			require.NoError(t, c.Set(ctx, k, []byte(`[]`), time.Minute))
		}
	}
	cached := func(key string) bool {
		_, err := c.Get(ctx, key)
		return err == nil
	}

	seed()
	created := env.burgerOrder(t, waiter)
	assert.False(t, cached(active))
	assert.True(t, cached(bills), "an unpaid order is not a bill")
	assert.False(t, cached(tables))

	seed()
	_, err := env.svc.UpdateStatus(ctx, kitchen, created.ID, order.StatusPreparing)
	require.NoError(t, err)
	assert.False(t, cached(active))
	assert.True(t, cached(bills))
	assert.True(t, cached(tables), "the table did not change")

	seed()
	_, err = env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{PaymentReceived: money("300")})
	require.NoError(t, err)
	assert.False(t, cached(active))
	assert.False(t, cached(bills))
	assert.False(t, cached(tables), "the table was freed")
}

func TestMutation_ReleasesTableMark(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	// a mark written while the order was being served
	env.table.Mark = table.MarkCleaning
	require.NoError(t, env.store.Tables().Update(ctx, env.table))

	_, err := env.svc.Cancel(ctx, waiter, created.ID, CancelOrderRequest{Reason: "duplicate"})
	require.NoError(t, err)

	stored, err := env.store.Tables().Get(ctx, "org-1", env.table.ID)
	require.NoError(t, err)
	assert.Equal(t, table.MarkNone, stored.Mark)
}

func TestEdit_MovesTable(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	other, err := table.NewTable("org-1", 9, 2, env.now)
	require.NoError(t, err)
	require.NoError(t, env.store.Tables().Create(ctx, other))

	resp, err := env.svc.Edit(ctx, waiter, created.ID, EditOrderRequest{TableID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, resp.TableID)
	assert.Equal(t, 9, *resp.TableNumber)

	counter := order.CounterTableID
	resp, err = env.svc.Edit(ctx, waiter, created.ID, EditOrderRequest{TableID: &counter})
	require.NoError(t, err)
	assert.Equal(t, order.CounterTableID, resp.TableID)
	assert.Nil(t, resp.TableNumber)
}

// S4
func TestComplete_ConcurrentCallersExactlyOneWins(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()
	created := env.burgerOrder(t, waiter)

	const callers = 6
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		errs     = make([]error, callers)
		invoices = make([]*int64, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			resp, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{PaymentReceived: money("300")})
			errs[i] = err
			if resp != nil {
				invoices[i] = resp.InvoiceNumber
			}
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for i := range errs {
		if errs[i] == nil {
			wins++
			require.NotNil(t, invoices[i])
			continue
		}
		assert.True(t, shared.IsCode(errs[i], shared.CodeStatusConflict), "got %v", errs[i])
	}
	assert.Equal(t, 1, wins)

	stored, err := env.store.Orders().Get(ctx, "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)
	require.NotNil(t, stored.InvoiceNumber)

	// a later order gets a strictly larger invoice number
	next := env.burgerOrder(t, waiter)
	resp, err := env.svc.Complete(ctx, cashier, next.ID, CompleteOrderRequest{PaymentReceived: money("300")})
	require.NoError(t, err)
	assert.Greater(t, *resp.InvoiceNumber, *stored.InvoiceNumber)
}

// S6
func TestBrokenCache_WritesStillSucceed(t *testing.T) {
	env := newTestEnv(t, brokenCache{})
	ctx := context.Background()

	created := env.burgerOrder(t, waiter)
	resp, err := env.svc.Complete(ctx, cashier, created.ID, CompleteOrderRequest{PaymentReceived: money("300")})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, resp.Status)

	got, err := env.svc.Get(ctx, cashier, created.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Version, got.Version)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, cache.NewInMemoryCache())
	ctx := context.Background()

	first := env.burgerOrder(t, waiter)
	env.now = env.now.Add(24 * time.Hour)
	second := env.burgerOrder(t, waiter)
	_, err := env.svc.Cancel(ctx, waiter, second.ID, CancelOrderRequest{})
	require.NoError(t, err)

	all, err := env.svc.History(ctx, cashier, HistoryFilter{From: "2024-03-10", To: "2024-03-11"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	pending, err := env.svc.History(ctx, cashier, HistoryFilter{From: "2024-03-10", To: "2024-03-11", Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	today, err := env.svc.History(ctx, cashier, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, second.ID, today[0].ID)

	_, err = env.svc.History(ctx, cashier, HistoryFilter{From: "2024-03-12", To: "2024-03-10"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
	_, err = env.svc.History(ctx, cashier, HistoryFilter{From: "10/03/2024"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}
