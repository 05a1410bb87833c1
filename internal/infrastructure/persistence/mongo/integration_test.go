//go:build integration

package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// newIntegrationStore starts a throwaway MongoDB container and returns a store on a fresh database
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForListeningPort("27017/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start MongoDB container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	store, err := Connect(ctx, config.DatabaseConfig{
		Driver:     "mongo",
		URI:        fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Name:       "pos_test",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		MaxPool:    20,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func newPendingOrder(t *testing.T, tenant, total string, at time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(tenant, order.Draft{
		Items: []order.LineItem{{MenuItemID: "m1", Name: "Thali", Price: valueobject.MustMoney(total), Quantity: 1}},
	}, at)
	require.NoError(t, err)
	return o
}

func TestOrderRepository_Lifecycle(t *testing.T) {
	store := newIntegrationStore(t)
	repo := store.Orders()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	o := newPendingOrder(t, "org-1", "250", now)
	require.NoError(t, repo.Insert(ctx, o))

	got, err := repo.Get(ctx, "org-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, got.Total.Equals(valueobject.MustMoney("250")))

	_, err = repo.Get(ctx, "org-2", o.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound), "orders are scoped to their organization")

	received := valueobject.MustMoney("100")
	require.NoError(t, got.Complete(order.CompleteRequest{
		PaymentReceived: &received,
		IsCredit:        true,
		CustomerName:    "Asha",
		CustomerPhone:   "98450",
	}, now.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, got, order.ActiveStatuses()))
	assert.Equal(t, 2, got.Version)

	// the stale copy still carries version 1
	require.NoError(t, o.MarkPreparing(now.Add(2*time.Minute)))
	err = repo.Update(ctx, o, order.ActiveStatuses())
	assert.True(t, errors.Is(err, shared.ErrStatusConflict))

	ledgers, err := repo.CustomerLedgers(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "98450", ledgers[0].CustomerPhone)
	assert.True(t, ledgers[0].Outstanding.Equals(valueobject.MustMoney("150")))
	assert.Equal(t, 1, ledgers[0].OrderCount)
}

func TestOrderRepository_ListWindowAndCounts(t *testing.T) {
	store := newIntegrationStore(t)
	repo := store.Orders()
	ctx := context.Background()
	day := shared.BusinessDay(time.Date(2024, 3, 10, 12, 0, 0, 0, shared.BusinessZone))

	inside := newPendingOrder(t, "org-1", "100", day.Start.Add(time.Hour))
	inside.TableID = "t1"
	before := newPendingOrder(t, "org-1", "100", day.Start.Add(-time.Minute))
	atEnd := newPendingOrder(t, "org-1", "100", day.End)
	for _, o := range []*order.Order{inside, before, atEnd} {
		require.NoError(t, repo.Insert(ctx, o))
	}

	list, err := repo.List(ctx, "org-1", order.Filter{CreatedFrom: day.Start, CreatedTo: day.End})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inside.ID, list[0].ID)

	n, err := repo.Count(ctx, "org-1", order.ActiveFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	byTable, err := repo.CountActiveByTable(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t1": 1}, byTable)
}

func TestOrderRepository_InvoiceNumbersAreUnique(t *testing.T) {
	store := newIntegrationStore(t)
	repo := store.Orders()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.NextInvoiceNumber(ctx, "org-1")
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 20)

	other, err := repo.NextInvoiceNumber(ctx, "org-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestOrderRepository_DuplicateInvoice(t *testing.T) {
	store := newIntegrationStore(t)
	repo := store.Orders()
	ctx := context.Background()
	now := time.Now().UTC()
	full := valueobject.MustMoney("80")

	for i, wantErr := range []bool{false, true} {
		o := newPendingOrder(t, "org-1", "80", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, o.Complete(order.CompleteRequest{PaymentReceived: &full}, now))
		require.NoError(t, o.AssignInvoice(42, now))
		err := repo.Insert(ctx, o)
		if wantErr {
			assert.True(t, errors.Is(err, shared.ErrDuplicateInvoice))
		} else {
			require.NoError(t, err)
		}
	}
}

func TestTableAndMenuRepositories(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tables := store.Tables()
	t1, err := table.NewTable("org-1", 4, 2, now)
	require.NoError(t, err)
	require.NoError(t, tables.Create(ctx, t1))
	dup, err := table.NewTable("org-1", 4, 6, now)
	require.NoError(t, err)
	assert.True(t, errors.Is(tables.Create(ctx, dup), shared.ErrConflict))

	require.NoError(t, t1.SetMark(table.MarkReserved, 0, now))
	require.NoError(t, tables.Update(ctx, t1))
	require.NoError(t, tables.ClearMark(ctx, "org-1", t1.ID))
	loaded, err := tables.Get(ctx, "org-1", t1.ID)
	require.NoError(t, err)
	assert.Equal(t, table.MarkNone, loaded.Mark)

	items := store.Menu()
	tea, err := menu.NewItem("org-1", "Masala Tea", valueobject.MustMoney("25"), "Drinks", now)
	require.NoError(t, err)
	require.NoError(t, items.Create(ctx, tea))
	clash, err := menu.NewItem("org-1", "masala tea", valueobject.MustMoney("30"), "Drinks", now)
	require.NoError(t, err)
	assert.True(t, errors.Is(items.Create(ctx, clash), shared.ErrConflict), "menu names are unique regardless of case")

	got, err := items.GetMany(ctx, "org-1", []string{tea.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, got[tea.ID].Price.Equals(valueobject.MustMoney("25")))
}

func TestSettingsRepository(t *testing.T) {
	store := newIntegrationStore(t)
	repo := store.Settings()
	ctx := context.Background()

	p, err := repo.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultProfile("org-1").InvoicePrefix, p.InvoicePrefix)

	p.RestaurantName = "Udupi Corner"
	p.InvoicePrefix = "UC-"
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, repo.Save(ctx, p))

	saved, err := repo.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Udupi Corner", saved.RestaurantName)
	assert.Equal(t, "UC-", saved.InvoicePrefix)
}
