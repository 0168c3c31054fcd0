package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogstore "github.com/kiryshabutor/OrderCRM/internal/catalog-service/adapters/txtstore"
	catalogapp "github.com/kiryshabutor/OrderCRM/internal/catalog-service/app"
	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	ledgerstore "github.com/kiryshabutor/OrderCRM/internal/ledger-service/adapters/txtstore"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memCatalogStore struct{}

func (memCatalogStore) Load() (map[string]catalogdomain.Product, error) { return nil, nil }
func (memCatalogStore) Save(map[string]catalogdomain.Product) error      { return nil }

type memLedgerStore struct {
	orders  []domain.Order
	saves   int
	saveErr error
}

func (m *memLedgerStore) Load() ([]domain.Order, error) { return m.orders, nil }

func (m *memLedgerStore) Save(orders []domain.Order) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.orders = orders
	return nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (m *memJournal) Append(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memJournal) History(_ context.Context, id int) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []journal.Entry
	for _, e := range m.entries {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fixture struct {
	catalog *catalogapp.Service
	ledger  *Service
	store   *memLedgerStore
	journal *memJournal
}

func newFixture(t *testing.T, products ...catalogdomain.Product) *fixture {
	t.Helper()
	catalog := catalogapp.NewService(memCatalogStore{})
	for _, p := range products {
		require.NoError(t, catalog.Add(p.Name, p.Price, p.Stock))
	}
	store := &memLedgerStore{}
	j := &memJournal{}
	ledger := NewService(store, catalog,
		WithJournal(j),
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local) }),
	)
	ledger.SetPrices(catalog.Prices())
	return &fixture{catalog: catalog, ledger: ledger, store: store, journal: j}
}

func (f *fixture) reprice(t *testing.T, name string, price string) {
	t.Helper()
	p, ok := f.catalog.Find(name)
	require.True(t, ok)
	require.NoError(t, f.catalog.Update(name, p.Name, dec(price), nil))
	f.ledger.SetPrices(f.catalog.Prices())
}

func widget(stock int) catalogdomain.Product {
	return catalogdomain.Product{Name: "Widget", Price: dec("5.00"), Stock: stock}
}

func TestService_Create(t *testing.T) {
	testCases := map[string]struct {
		client  string
		errKind apperr.Kind
	}{
		"simple":         {client: "Alice"},
		"with space":     {client: "Alice Smith"},
		"cyrillic":       {client: "Мария"},
		"padded":         {client: "  Bob  "},
		"empty":          {client: "", errKind: apperr.KindValidation},
		"separator":      {client: "Al;ice", errKind: apperr.KindValidation},
		"double space":   {client: "Al  ice", errKind: apperr.KindValidation},
		"trailing punct": {client: "Alice-", errKind: apperr.KindValidation},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			o, err := f.ledger.Create(context.Background(), tc.client)
			if tc.errKind != apperr.KindUnknown {
				assert.Equal(t, tc.errKind, apperr.KindOf(err))
				assert.Empty(t, f.ledger.All())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, o.ID)
			assert.Equal(t, domain.StatusNew, o.Status)
			assert.True(t, o.Total.IsZero())
			assert.False(t, o.CreatedAt.IsZero())
			assert.Equal(t, 1, f.store.saves)
		})
	}
}

func TestService_IDsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		o, err := f.ledger.Create(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, want, o.ID)
	}
}

func TestService_AddItem(t *testing.T) {
	testCases := map[string]struct {
		item       string
		qty        int
		errKind    apperr.Kind
		stockAfter int
	}{
		"reserves stock":        {item: "widget", qty: 3, stockAfter: 7},
		"case insensitive":      {item: "WIDGET", qty: 1, stockAfter: 9},
		"zero qty":              {item: "widget", qty: 0, errKind: apperr.KindValidation, stockAfter: 10},
		"unknown product":       {item: "gadget", qty: 1, errKind: apperr.KindNotFound, stockAfter: 10},
		"insufficient stock":    {item: "widget", qty: 11, errKind: apperr.KindValidation, stockAfter: 10},
		"exactly all the stock": {item: "widget", qty: 10, stockAfter: 0},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, widget(10))
			ctx := context.Background()
			o, err := f.ledger.Create(ctx, "Alice")
			require.NoError(t, err)

			got, err := f.ledger.AddItem(ctx, o.ID, tc.item, tc.qty)
			assert.Equal(t, tc.errKind, apperr.KindOf(err))
			assert.Equal(t, tc.stockAfter, f.catalog.StockOf("widget"))
			if tc.errKind != apperr.KindUnknown {
				stored, _ := f.ledger.FindByID(o.ID)
				assert.Empty(t, stored.Items)
				return
			}
			assert.Equal(t, map[string]int{"widget": tc.qty}, got.Items)
			assert.True(t, got.FrozenPrices["widget"].Equal(dec("5")))
		})
	}
}

func TestService_AddItemToLegacyOrderFreezesExistingItems(t *testing.T) {
	testCases := map[string]struct {
		status domain.Status
	}{
		"in progress": {status: domain.StatusInProgress},
		"done":        {status: domain.StatusDone},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, widget(10), catalogdomain.Product{Name: "Gadget", Price: dec("2.00"), Stock: 5})

			legacy := domain.NewOrder(1, "Alice", time.Now())
			legacy.Status = tc.status
			legacy.Items["widget"] = 2
			f.store.orders = []domain.Order{legacy}
			require.NoError(t, f.ledger.Load())

			before, _ := f.ledger.FindByID(1)
			assert.Equal(t, "10.00", before.Total.StringFixed(2))

			o, err := f.ledger.AddItem(context.Background(), 1, "gadget", 1)
			require.NoError(t, err)
			assert.Equal(t, "12.00", o.Total.StringFixed(2))
			require.Len(t, o.FrozenPrices, 2)
			assert.Equal(t, "5.00", o.FrozenPrices["widget"].StringFixed(2))
			assert.Equal(t, "2.00", o.FrozenPrices["gadget"].StringFixed(2))

			f.reprice(t, "widget", "9.00")
			_, err = f.ledger.RecalculateForProduct(context.Background(), "widget")
			require.NoError(t, err)
			o, _ = f.ledger.FindByID(1)
			assert.Equal(t, "12.00", o.Total.StringFixed(2))
		})
	}
}

// brokenCatalogStore accepts writes until err is set.
type brokenCatalogStore struct {
	err error
}

func (s *brokenCatalogStore) Load() (map[string]catalogdomain.Product, error) { return nil, nil }
func (s *brokenCatalogStore) Save(map[string]catalogdomain.Product) error      { return s.err }

func TestService_AddItemKeepsReservationWhenCatalogWriteFails(t *testing.T) {
	catalogStore := &brokenCatalogStore{}
	catalog := catalogapp.NewService(catalogStore)
	require.NoError(t, catalog.Add("Widget", dec("5.00"), 10))
	ledger := NewService(&memLedgerStore{}, catalog)
	ledger.SetPrices(catalog.Prices())

	ctx := context.Background()
	o, err := ledger.Create(ctx, "Alice")
	require.NoError(t, err)

	catalogStore.err = apperr.IO("cannot write file", errors.New("disk full"))
	o, err = ledger.AddItem(ctx, o.ID, "widget", 3)
	assert.True(t, apperr.Is(err, apperr.KindIO))
	assert.Equal(t, map[string]int{"widget": 3}, o.Items)
	assert.Equal(t, "15.00", o.Total.StringFixed(2))

	got, _ := ledger.FindByID(o.ID)
	assert.Equal(t, 10, catalog.StockOf("widget")+got.Items["widget"])

	_, err = ledger.AddItem(ctx, o.ID, "widget", 50)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	got, _ = ledger.FindByID(o.ID)
	assert.Equal(t, 3, got.Items["widget"])
	assert.Equal(t, 7, catalog.StockOf("widget"))
}

func TestService_AddItemToMissingOrder(t *testing.T) {
	f := newFixture(t, widget(10))
	_, err := f.ledger.AddItem(context.Background(), 42, "widget", 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_AddItemToCanceledOrderSkipsStock(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, err := f.ledger.SetStatus(ctx, o.ID, "canceled")
	require.NoError(t, err)

	got, err := f.ledger.AddItem(ctx, o.ID, "widget", 4)
	require.NoError(t, err)
	assert.Equal(t, 10, f.catalog.StockOf("widget"))
	assert.True(t, got.FrozenPrices["widget"].Equal(dec("5")))
	assert.Equal(t, "20.00", got.Total.StringFixed(2))
}

func TestService_CaseInsensitiveKeys(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")

	_, err := f.ledger.AddItem(ctx, o.ID, "widget", 1)
	require.NoError(t, err)
	got, err := f.ledger.AddItem(ctx, o.ID, "WIDGET", 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"widget": 3}, got.Items)
	assert.Equal(t, 7, f.catalog.StockOf("Widget"))
}

func TestService_RemoveItem(t *testing.T) {
	f := newFixture(t, widget(10), catalogdomain.Product{Name: "Gadget", Price: dec("2.50"), Stock: 5})
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 2)
	_, _ = f.ledger.AddItem(ctx, o.ID, "gadget", 1)

	got, err := f.ledger.RemoveItem(ctx, o.ID, "Widget")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"gadget": 1}, got.Items)
	assert.NotContains(t, got.FrozenPrices, "widget")
	assert.Equal(t, "2.50", got.Total.StringFixed(2))
	assert.Equal(t, 10, f.catalog.StockOf("widget"))

	_, err = f.ledger.RemoveItem(ctx, o.ID, "widget")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.ledger.RemoveItem(ctx, 99, "gadget")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_RemoveItemOfDeletedProduct(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 2)
	require.NoError(t, f.catalog.Remove("widget"))
	f.ledger.SetPrices(f.catalog.Prices())

	got, err := f.ledger.RemoveItem(ctx, o.ID, "widget")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestService_SetStatusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")

	_, err := f.ledger.SetStatus(ctx, o.ID, "shipped")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.ledger.SetStatus(ctx, 7, "done")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.ledger.SetStatus(ctx, 0, "done")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_StockConservation(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")

	conserved := func(step string) {
		got, err := f.ledger.FindByID(o.ID)
		require.NoError(t, err)
		reserved := 0
		if got.Status != domain.StatusCanceled {
			reserved = got.Items["widget"]
		}
		assert.Equal(t, 10, f.catalog.StockOf("widget")+reserved, step)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"add 3", func() error { _, err := f.ledger.AddItem(ctx, o.ID, "widget", 3); return err }},
		{"add 2", func() error { _, err := f.ledger.AddItem(ctx, o.ID, "widget", 2); return err }},
		{"cancel", func() error { _, err := f.ledger.SetStatus(ctx, o.ID, "canceled"); return err }},
		{"add while canceled", func() error { _, err := f.ledger.AddItem(ctx, o.ID, "widget", 1); return err }},
		{"uncancel", func() error { _, err := f.ledger.SetStatus(ctx, o.ID, "in_progress"); return err }},
		{"remove", func() error { _, err := f.ledger.RemoveItem(ctx, o.ID, "widget"); return err }},
		{"add again", func() error { _, err := f.ledger.AddItem(ctx, o.ID, "widget", 4); return err }},
		{"done", func() error { _, err := f.ledger.SetStatus(ctx, o.ID, "done"); return err }},
	}
	for _, step := range steps {
		require.NoError(t, step.run(), step.name)
		conserved(step.name)
	}
}

func TestService_CancelIsIdempotentForStock(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 4)
	require.Equal(t, 6, f.catalog.StockOf("widget"))

	_, err := f.ledger.SetStatus(ctx, o.ID, "canceled")
	require.NoError(t, err)
	assert.Equal(t, 10, f.catalog.StockOf("widget"))

	_, err = f.ledger.SetStatus(ctx, o.ID, "canceled")
	require.NoError(t, err)
	assert.Equal(t, 10, f.catalog.StockOf("widget"))
}

func TestService_UncancelIsAtomic(t *testing.T) {
	f := newFixture(t,
		catalogdomain.Product{Name: "A", Price: dec("1"), Stock: 10},
		catalogdomain.Product{Name: "B", Price: dec("1"), Stock: 10},
	)
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "A", 5)
	_, _ = f.ledger.AddItem(ctx, o.ID, "B", 3)
	_, err := f.ledger.SetStatus(ctx, o.ID, "canceled")
	require.NoError(t, err)

	two := 2
	require.NoError(t, f.catalog.Update("B", "B", dec("1"), &two))

	_, err = f.ledger.SetStatus(ctx, o.ID, "new")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, _ := f.ledger.FindByID(o.ID)
	assert.Equal(t, domain.StatusCanceled, got.Status)
	assert.Equal(t, 10, f.catalog.StockOf("A"))
	assert.Equal(t, 2, f.catalog.StockOf("B"))
}

func TestService_PriceFreeze(t *testing.T) {
	f := newFixture(t, catalogdomain.Product{Name: "Widget", Price: dec("10.00"), Stock: 10})
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 2)

	got, err := f.ledger.SetStatus(ctx, o.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Total.StringFixed(2))
	assert.True(t, got.FrozenPrices["widget"].Equal(dec("10")))

	f.reprice(t, "widget", "12.00")
	n, err := f.ledger.RecalculateForProduct(ctx, "widget")
	require.NoError(t, err)
	assert.Zero(t, n)

	got, _ = f.ledger.FindByID(o.ID)
	assert.Equal(t, "20.00", got.Total.StringFixed(2))

	got, err = f.ledger.SetStatus(ctx, o.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "24.00", got.Total.StringFixed(2))
	assert.True(t, got.FrozenPrices["widget"].Equal(dec("12")))
}

func TestService_NewOrdersFollowLivePrices(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 2)

	f.reprice(t, "widget", "6.00")
	n, err := f.ledger.RecalculateForProduct(ctx, "Widget")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.ledger.SetStatus(ctx, o.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, "12.00", got.Total.StringFixed(2))
	assert.True(t, got.FrozenPrices["widget"].Equal(dec("6")))
}

func TestService_LeavingNewDropsStaleSnapshotKeys(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()

	f.store.orders = []domain.Order{func() domain.Order {
		o := domain.NewOrder(1, "Alice", time.Now())
		o.Items["widget"] = 1
		o.FrozenPrices["widget"] = dec("4")
		o.FrozenPrices["ghost"] = dec("1")
		return o
	}()}
	require.NoError(t, f.ledger.Load())

	got, err := f.ledger.SetStatus(ctx, 1, "done")
	require.NoError(t, err)
	assert.Len(t, got.FrozenPrices, 1)
	assert.Equal(t, "4.00", got.Total.StringFixed(2))
}

func TestService_AliceScenario(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()

	o, err := f.ledger.Create(ctx, "Alice")
	require.NoError(t, err)

	o, err = f.ledger.AddItem(ctx, o.ID, "widget", 3)
	require.NoError(t, err)
	assert.Equal(t, "15.00", o.Total.StringFixed(2))
	assert.Equal(t, 7, f.catalog.StockOf("widget"))

	o, err = f.ledger.SetStatus(ctx, o.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, "5.00", o.FrozenPrices["widget"].StringFixed(2))

	f.reprice(t, "widget", "6.00")
	assert.Equal(t, "15.00", f.ledger.Revenue().StringFixed(2))

	_, err = f.ledger.RecalculateForProduct(ctx, "widget")
	require.NoError(t, err)
	assert.Equal(t, "15.00", f.ledger.Revenue().StringFixed(2))
}

func TestService_RevenueAndStats(t *testing.T) {
	f := newFixture(t, widget(20))
	ctx := context.Background()

	for i, status := range []string{"new", "done", "done", "canceled"} {
		o, err := f.ledger.Create(ctx, "Alice")
		require.NoError(t, err)
		_, err = f.ledger.AddItem(ctx, o.ID, "widget", i+1)
		require.NoError(t, err)
		_, err = f.ledger.SetStatus(ctx, o.ID, status)
		require.NoError(t, err)
	}

	assert.Equal(t, "50.00", f.ledger.Revenue().StringFixed(2))

	stats := f.ledger.Stats()
	require.Len(t, stats, 4)
	byStatus := map[domain.Status]StatusStats{}
	for _, s := range stats {
		byStatus[s.Status] = s
	}
	assert.Equal(t, 1, byStatus[domain.StatusNew].Count)
	assert.Equal(t, "5.00", byStatus[domain.StatusNew].Revenue.StringFixed(2))
	assert.Equal(t, 2, byStatus[domain.StatusDone].Count)
	assert.Equal(t, "25.00", byStatus[domain.StatusDone].Revenue.StringFixed(2))
	assert.Zero(t, byStatus[domain.StatusInProgress].Count)
	assert.Equal(t, 1, byStatus[domain.StatusCanceled].Count)
}

func TestService_ActiveOrdersWith(t *testing.T) {
	f := newFixture(t, widget(20))
	ctx := context.Background()

	for _, status := range []string{"new", "in_progress", "done", "canceled"} {
		o, _ := f.ledger.Create(ctx, "Alice")
		_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 1)
		_, err := f.ledger.SetStatus(ctx, o.ID, status)
		require.NoError(t, err)
	}
	_, _ = f.ledger.Create(ctx, "Bob")

	assert.Equal(t, []int{1, 2}, f.ledger.ActiveOrdersWith("WIDGET"))
	assert.Empty(t, f.ledger.ActiveOrdersWith("gadget"))
}

func TestService_ReadsReturnCopies(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 1)

	got, _ := f.ledger.FindByID(o.ID)
	got.Items["widget"] = 99
	all := f.ledger.All()
	all[0].Items["widget"] = 98
	prices := f.ledger.Prices()
	prices["widget"] = dec("0.01")

	again, _ := f.ledger.FindByID(o.ID)
	assert.Equal(t, 1, again.Items["widget"])
	assert.True(t, f.ledger.Prices()["widget"].Equal(dec("5")))
}

func TestService_PersistFailureSurfacesIO(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = apperr.IO("cannot open file for write", errors.New("read-only"))

	o, err := f.ledger.Create(context.Background(), "Alice")
	assert.True(t, apperr.Is(err, apperr.KindIO))
	assert.Equal(t, 1, o.ID)
}

func TestService_LoadRecomputesAndAdvancesID(t *testing.T) {
	f := newFixture(t, widget(10))

	frozen := domain.NewOrder(4, "Alice", time.Now())
	frozen.Status = domain.StatusDone
	frozen.Items["widget"] = 2
	frozen.FrozenPrices["widget"] = dec("4.00")
	frozen.Total = dec("999")

	live := domain.NewOrder(2, "Bob", time.Now())
	live.Items["widget"] = 1
	live.Total = dec("1")

	f.store.orders = []domain.Order{frozen, live}
	require.NoError(t, f.ledger.Load())

	got, _ := f.ledger.FindByID(4)
	assert.Equal(t, "8.00", got.Total.StringFixed(2))
	got, _ = f.ledger.FindByID(2)
	assert.Equal(t, "5.00", got.Total.StringFixed(2))

	next, err := f.ledger.Create(context.Background(), "Carol")
	require.NoError(t, err)
	assert.Equal(t, 5, next.ID)
}

func TestService_Journal(t *testing.T) {
	f := newFixture(t, widget(10))
	ctx := context.Background()
	o, _ := f.ledger.Create(ctx, "Alice")
	_, _ = f.ledger.AddItem(ctx, o.ID, "widget", 2)
	_, _ = f.ledger.SetStatus(ctx, o.ID, "done")

	history, err := f.ledger.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, journal.ActionCreated, history[0].Action)
	assert.Equal(t, journal.ActionItemAdded, history[1].Action)
	assert.Equal(t, "widget", history[1].ProductKey)
	assert.Equal(t, 2, history[1].Quantity)
	assert.Equal(t, journal.ActionStatusChanged, history[2].Action)
	assert.Equal(t, "new", history[2].FromStatus)
	assert.Equal(t, "done", history[2].ToStatus)
	assert.Equal(t, "10.00", history[2].Total)

	_, err = f.ledger.History(ctx, 99)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_JournalFailureDoesNotFailLedger(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("database is locked")

	_, err := f.ledger.Create(context.Background(), "Alice")
	assert.NoError(t, err)
}

func TestService_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	catalog := catalogapp.NewService(catalogstore.New(filepath.Join(dir, "products.txt")))
	require.NoError(t, catalog.Add("Widget", dec("5"), 10))
	ledger := NewService(ledgerstore.New(filepath.Join(dir, "orders.txt")), catalog)
	ledger.SetPrices(catalog.Prices())

	o, err := ledger.Create(ctx, "Alice")
	require.NoError(t, err)
	_, err = ledger.AddItem(ctx, o.ID, "widget", 3)
	require.NoError(t, err)
	_, err = ledger.SetStatus(ctx, o.ID, "done")
	require.NoError(t, err)

	catalog2 := catalogapp.NewService(catalogstore.New(filepath.Join(dir, "products.txt")))
	require.NoError(t, catalog2.Load())
	require.NoError(t, catalog2.Update("widget", "Widget", dec("6"), nil))

	ledger2 := NewService(ledgerstore.New(filepath.Join(dir, "orders.txt")), catalog2)
	ledger2.SetPrices(catalog2.Prices())
	require.NoError(t, ledger2.Load())

	got, err := ledger2.FindByID(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, got.Status)
	assert.Equal(t, map[string]int{"widget": 3}, got.Items)
	assert.Equal(t, "15.00", got.Total.StringFixed(2))
	assert.Equal(t, 7, catalog2.StockOf("widget"))
}
