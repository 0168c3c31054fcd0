package app

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/validation"
)

// Inventory is the part of the catalog the ledger reserves stock through.
type Inventory interface {
	Reserve(name string, qty int) error
	Release(name string, qty int) error
	ReserveAll(items map[string]int) error
	ReleaseAll(items map[string]int) error
}

// Store is the persistence port of the ledger.
type Store interface {
	Load() ([]domain.Order, error)
	Save(orders []domain.Order) error
}

type Option func(*Service)

// WithJournal records every order change in j.
func WithJournal(j journal.Repository) Option {
	return func(s *Service) { s.journal = j }
}

// WithClock overrides the source of creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns the orders and the live price table. Orders are addressed by
// id and every read returns a copy.
type Service struct {
	mu        sync.Mutex
	store     Store
	inventory Inventory
	journal   journal.Repository
	now       func() time.Time

	orders map[int]*domain.Order
	prices map[string]decimal.Decimal
	nextID int
}

func NewService(store Store, inventory Inventory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		inventory: inventory,
		journal:   journal.Noop{},
		now:       time.Now,
		orders:    make(map[int]*domain.Order),
		prices:    make(map[string]decimal.Decimal),
		nextID:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusStats aggregates the orders in one status.
type StatusStats struct {
	Status  domain.Status
	Count   int
	Revenue decimal.Decimal
}

// Create opens a new order for client.
func (s *Service) Create(ctx context.Context, client string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client = strings.TrimSpace(client)
	if err := validation.ClientName(client); err != nil {
		return domain.Order{}, err
	}

	o := domain.NewOrder(s.nextID, client, s.now())
	s.nextID++
	s.orders[o.ID] = &o

	slog.InfoContext(ctx, "order created", "order_id", o.ID, "client", client)
	err := s.persist()
	s.record(ctx, &o, journal.ActionCreated, o.Status, "", 0)
	return o.Clone(), err
}

// AddItem adds qty units of a product to an order, reserving stock unless
// the order is canceled.
func (s *Service) AddItem(ctx context.Context, id int, name string, qty int) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validation.Quantity(qty); err != nil {
		return domain.Order{}, err
	}
	o, err := s.get(id)
	if err != nil {
		return domain.Order{}, err
	}
	key := catalogdomain.Key(name)
	price, ok := s.prices[key]
	if !ok {
		return domain.Order{}, apperr.NotFoundf("product %q not found", name)
	}

	// A failed catalog write still took the stock, so the item is kept with it.
	var stockErr error
	if o.Status != domain.StatusCanceled {
		if err := s.inventory.Reserve(key, qty); err != nil {
			if !apperr.Is(err, apperr.KindIO) {
				return domain.Order{}, err
			}
			stockErr = err
		}
	}

	// a legacy order past new has no snapshot yet, capture one for its items
	if o.Status != domain.StatusNew && len(o.FrozenPrices) == 0 {
		s.freeze(o)
	}
	o.Items[key] += qty
	if _, frozen := o.FrozenPrices[key]; o.Status == domain.StatusNew || !frozen {
		o.FrozenPrices[key] = price
	}
	o.Total = o.CalcTotal(s.prices)

	slog.InfoContext(ctx, "item added", "order_id", id, "key", key, "qty", qty, "total", money.Format(o.Total))
	err = s.persist()
	s.record(ctx, o, journal.ActionItemAdded, o.Status, key, qty)
	if err != nil {
		return o.Clone(), err
	}
	return o.Clone(), stockErr
}

// RemoveItem drops a product from an order and returns its stock unless the
// order is canceled.
func (s *Service) RemoveItem(ctx context.Context, id int, name string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(id)
	if err != nil {
		return domain.Order{}, err
	}
	key := catalogdomain.Key(name)
	qty, ok := o.Items[key]
	if !ok {
		return domain.Order{}, apperr.NotFoundf("item %q not in order %d", name, id)
	}

	delete(o.Items, key)
	delete(o.FrozenPrices, key)

	var stockErr error
	if o.Status != domain.StatusCanceled {
		if err := s.inventory.Release(key, qty); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				slog.WarnContext(ctx, "released product no longer in catalog", "order_id", id, "key", key, "qty", qty)
			} else {
				stockErr = err
			}
		}
	}
	o.Total = o.CalcTotal(s.prices)

	slog.InfoContext(ctx, "item removed", "order_id", id, "key", key, "qty", qty, "total", money.Format(o.Total))
	err = s.persist()
	s.record(ctx, o, journal.ActionItemRemoved, o.Status, key, qty)
	if err != nil {
		return o.Clone(), err
	}
	return o.Clone(), stockErr
}

// SetStatus moves an order to status, applying the stock effect first and
// the pricing effect second. A failed reservation leaves the order untouched.
func (s *Service) SetStatus(ctx context.Context, id int, status string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Order{}, err
	}
	o, err := s.get(id)
	if err != nil {
		return domain.Order{}, err
	}
	prev := o.Status
	if prev == next {
		return o.Clone(), s.persist()
	}

	var stockErr error
	switch {
	case prev == domain.StatusCanceled:
		if err := s.inventory.ReserveAll(o.Items); err != nil {
			if !apperr.Is(err, apperr.KindIO) {
				slog.WarnContext(ctx, "order cannot leave canceled", "order_id", id, "to", next, "error", err)
				return o.Clone(), &apperr.Error{
					Kind:    apperr.KindValidation,
					Message: "cannot restore canceled order",
					Err:     err,
				}
			}
			stockErr = err
		}
	case next == domain.StatusCanceled:
		if err := s.inventory.ReleaseAll(o.Items); err != nil {
			stockErr = err
		}
	}

	switch {
	case prev == domain.StatusNew:
		s.freeze(o)
	case next == domain.StatusNew:
		s.refreeze(o)
	}

	o.Status = next
	o.Total = o.CalcTotal(s.prices)

	slog.InfoContext(ctx, "order status changed", "order_id", id, "from", prev, "to", next, "total", money.Format(o.Total))
	err = s.persist()
	s.record(ctx, o, journal.ActionStatusChanged, prev, "", 0)
	if err != nil {
		return o.Clone(), err
	}
	return o.Clone(), stockErr
}

// freeze captures a live price for every item lacking one and drops frozen
// prices of items no longer in the order.
func (s *Service) freeze(o *domain.Order) {
	for key := range o.Items {
		if _, ok := o.FrozenPrices[key]; ok {
			continue
		}
		if price, ok := s.prices[key]; ok {
			o.FrozenPrices[key] = price
		}
	}
	for key := range o.FrozenPrices {
		if !o.Has(key) {
			delete(o.FrozenPrices, key)
		}
	}
}

// refreeze overwrites the frozen prices with the live ones where available.
func (s *Service) refreeze(o *domain.Order) {
	for key := range o.Items {
		if price, ok := s.prices[key]; ok {
			o.FrozenPrices[key] = price
		}
	}
}

// FindByID returns a copy of the order.
func (s *Service) FindByID(id int) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(id)
	if err != nil {
		return domain.Order{}, err
	}
	return o.Clone(), nil
}

// All returns copies of every order in id order.
func (s *Service) All() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Prices returns a copy of the live price table.
func (s *Service) Prices() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

// SetPrices replaces the live price table with a catalog snapshot.
func (s *Service) SetPrices(snapshot map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(map[string]decimal.Decimal, len(snapshot))
	for k, v := range snapshot {
		prices[catalogdomain.Key(k)] = v
	}
	s.prices = prices
}

// Revenue sums the totals of all orders.
func (s *Service) Revenue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, o := range s.orders {
		sum = sum.Add(o.Total)
	}
	return money.Round(sum)
}

// Stats returns the order count and revenue of every status.
func (s *Service) Stats() []StatusStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStatus := make(map[domain.Status]*StatusStats, len(domain.Statuses))
	out := make([]StatusStats, len(domain.Statuses))
	for i, st := range domain.Statuses {
		out[i] = StatusStats{Status: st, Revenue: decimal.Zero}
		byStatus[st] = &out[i]
	}
	for _, o := range s.orders {
		st, ok := byStatus[o.Status]
		if !ok {
			continue
		}
		st.Count++
		st.Revenue = st.Revenue.Add(o.Total)
	}
	for i := range out {
		out[i].Revenue = money.Round(out[i].Revenue)
	}
	return out
}

// ActiveOrdersWith returns the ids of new and in-progress orders holding
// the product, in id order.
func (s *Service) ActiveOrdersWith(name string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalogdomain.Key(name)
	var ids []int
	for id, o := range s.orders {
		if o.Status.IsActive() && o.Has(key) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// RecalculateForProduct reprices every order holding the product and
// persists when any total moved. It returns the number of orders changed.
func (s *Service) RecalculateForProduct(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalogdomain.Key(name)
	var changed []*domain.Order
	for _, o := range s.orders {
		if !o.Has(key) {
			continue
		}
		// a new order tracks the catalog, so its snapshot follows the live price
		if price, ok := s.prices[key]; ok && o.Status == domain.StatusNew {
			o.FrozenPrices[key] = price
		}
		total := o.CalcTotal(s.prices)
		// totals are whole cents, so any difference is at least 0.01
		if !total.Equal(o.Total) {
			o.Total = total
			changed = append(changed, o)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "orders recalculated", "key", key, "changed", len(changed))
	err := s.persist()
	for _, o := range changed {
		s.record(ctx, o, journal.ActionRecalculated, o.Status, key, 0)
	}
	return len(changed), err
}

// History returns the journal entries of an order.
func (s *Service) History(ctx context.Context, id int) ([]journal.Entry, error) {
	s.mu.Lock()
	_, err := s.get(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.journal.History(ctx, id)
}

// Load replaces the orders with the stored ones. Totals are recomputed
// against the current live price table, which must be set beforehand.
func (s *Service) Load() error {
	loaded, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make(map[int]*domain.Order, len(loaded))
	maxID := 0
	for i := range loaded {
		o := loaded[i]
		o.Total = o.CalcTotal(s.prices)
		orders[o.ID] = &o
		if o.ID > maxID {
			maxID = o.ID
		}
	}
	s.orders = orders
	s.nextID = maxID + 1

	slog.Info("ledger loaded", "orders", len(orders), "next_id", s.nextID)
	return nil
}

// Save writes every order.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *Service) persist() error {
	return s.store.Save(s.snapshot())
}

func (s *Service) snapshot() []domain.Order {
	ids := make([]int, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.orders[id].Clone())
	}
	return out
}

func (s *Service) get(id int) (*domain.Order, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFoundf("order %d not found", id)
	}
	return o, nil
}

// record appends a journal entry. Journal failures never fail the ledger.
func (s *Service) record(ctx context.Context, o *domain.Order, action journal.Action, from domain.Status, key string, qty int) {
	e := journal.NewEntry(ctx, o.ID, action)
	e.FromStatus = string(from)
	e.ToStatus = string(o.Status)
	e.ProductKey = key
	e.Quantity = qty
	e.Total = money.Format(o.Total)
	if err := s.journal.Append(ctx, e); err != nil {
		slog.WarnContext(ctx, "journal append failed", "order_id", o.ID, "action", action, "error", err)
	}
}
