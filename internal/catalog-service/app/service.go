package app

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/validation"
)

// Store is the persistence port of the catalog.
type Store interface {
	Load() (map[string]domain.Product, error)
	Save(products map[string]domain.Product) error
}

// Service owns the product collection. Every mutation is written through
// to the Store before the call returns.
type Service struct {
	mu       sync.Mutex
	store    Store
	products map[string]domain.Product
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		products: make(map[string]domain.Product),
	}
}

// Load replaces the in-memory catalog with the stored one. Prices are
// rounded to cents, entries without a positive price are dropped and
// negative stock is clamped to zero.
func (s *Service) Load() error {
	loaded, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[string]domain.Product, len(loaded))
	dropped := 0
	for _, p := range loaded {
		p.Price = money.Round(p.Price)
		if !p.Price.IsPositive() {
			dropped++
			continue
		}
		if p.Stock < 0 {
			p.Stock = 0
		}
		products[domain.Key(p.Name)] = p
	}
	s.products = products

	slog.Info("catalog loaded", "products", len(products), "dropped", dropped)
	return nil
}

// Save writes the current catalog.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *Service) persist() error {
	return s.store.Save(s.products)
}

// Add inserts a new product.
func (s *Service) Add(name string, price decimal.Decimal, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if err := validation.ItemName(name); err != nil {
		return err
	}
	if err := money.ValidatePrice(price); err != nil {
		return err
	}
	if stock < 0 {
		return apperr.Validation("stock must be non-negative")
	}

	key := domain.Key(name)
	if _, exists := s.products[key]; exists {
		return apperr.Validationf("product %q already exists", name)
	}

	s.products[key] = domain.Product{Name: name, Price: money.Round(price), Stock: stock}
	slog.Info("product added", "key", key, "price", money.Format(price), "stock", stock)
	return s.persist()
}

// Remove deletes a product. Orders referencing it are not inspected.
func (s *Service) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.Key(name)
	if _, exists := s.products[key]; !exists {
		return apperr.NotFoundf("product %q not found", name)
	}
	delete(s.products, key)
	slog.Info("product removed", "key", key)
	return s.persist()
}

// Update renames and reprices a product. A nil stock keeps the current one.
func (s *Service) Update(oldName, newName string, price decimal.Decimal, stock *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey := domain.Key(oldName)
	current, exists := s.products[oldKey]
	if !exists {
		return apperr.NotFoundf("product %q not found", oldName)
	}

	newName = strings.TrimSpace(newName)
	if err := validation.ItemName(newName); err != nil {
		return err
	}
	if err := money.ValidatePrice(price); err != nil {
		return err
	}
	newKey := domain.Key(newName)
	if _, taken := s.products[newKey]; taken && newKey != oldKey {
		return apperr.Validationf("product %q already exists", newName)
	}

	updated := domain.Product{Name: newName, Price: money.Round(price), Stock: current.Stock}
	if stock != nil {
		if *stock < 0 {
			return apperr.Validation("stock must be non-negative")
		}
		updated.Stock = *stock
	}

	delete(s.products, oldKey)
	s.products[newKey] = updated
	slog.Info("product updated", "old_key", oldKey, "key", newKey, "price", money.Format(updated.Price), "stock", updated.Stock)
	return s.persist()
}

// Reserve takes qty units out of stock.
func (s *Service) Reserve(name string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validation.Quantity(qty); err != nil {
		return err
	}
	key := domain.Key(name)
	p, exists := s.products[key]
	if !exists {
		return apperr.NotFoundf("product %q not found", name)
	}
	if p.Stock < qty {
		return apperr.Validationf("not enough stock for %s: available %d, requested %d", key, p.Stock, qty)
	}

	p.Stock -= qty
	s.products[key] = p
	return s.persist()
}

// Release puts qty units back into stock.
func (s *Service) Release(name string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validation.Quantity(qty); err != nil {
		return err
	}
	key := domain.Key(name)
	p, exists := s.products[key]
	if !exists {
		return apperr.NotFoundf("product %q not found", name)
	}

	p.Stock += qty
	s.products[key] = p
	return s.persist()
}

// ReserveAll reserves every item or none of them. All quantities are
// checked before any stock is touched.
func (s *Service) ReserveAll(items map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return nil
	}

	keys := sortedKeys(items)
	for _, k := range keys {
		key := domain.Key(k)
		p, exists := s.products[key]
		if !exists {
			return apperr.NotFoundf("product %q not found", k)
		}
		if p.Stock < items[k] {
			return apperr.Validationf("not enough stock for %s: available %d, requested %d", key, p.Stock, items[k])
		}
	}

	for _, k := range keys {
		key := domain.Key(k)
		p := s.products[key]
		p.Stock -= items[k]
		s.products[key] = p
	}
	return s.persist()
}

// ReleaseAll returns every item to stock. Unknown products are skipped.
func (s *Service) ReleaseAll(items map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, k := range sortedKeys(items) {
		key := domain.Key(k)
		p, exists := s.products[key]
		if !exists || items[k] <= 0 {
			slog.Warn("release skipped", "key", key, "qty", items[k])
			continue
		}
		p.Stock += items[k]
		s.products[key] = p
		changed = true
	}
	if !changed {
		return nil
	}
	return s.persist()
}

// HasEnoughStock reports false for unknown products.
func (s *Service) HasEnoughStock(name string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[domain.Key(name)]
	return exists && p.Stock >= qty
}

// StockOf returns zero for unknown products.
func (s *Service) StockOf(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[domain.Key(name)].Stock
}

func (s *Service) Find(name string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[domain.Key(name)]
	return p, exists
}

// All returns the products ordered by key.
func (s *Service) All() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.products))
	for k := range s.products {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Product, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.products[k])
	}
	return out
}

// Prices returns a key to price snapshot for the ledger.
func (s *Service) Prices() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(s.products))
	for k, p := range s.products {
		out[k] = p.Price
	}
	return out
}

func sortedKeys(items map[string]int) []string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
