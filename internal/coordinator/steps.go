package coordinator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
)

// --- CancelOrdersStep ---

type CancelOrdersStep struct {
	ledger   Ledger
	orderIDs []int
	previous map[int]domain.Status
}

func NewCancelOrdersStep(ledger Ledger, orderIDs []int) *CancelOrdersStep {
	return &CancelOrdersStep{
		ledger:   ledger,
		orderIDs: orderIDs,
		previous: make(map[int]domain.Status),
	}
}

func (s *CancelOrdersStep) Name() string { return "Cancel_Active_Orders_Step" }

func (s *CancelOrdersStep) Execute(ctx context.Context) error {
	for _, id := range s.orderIDs {
		o, err := s.ledger.FindByID(id)
		if err != nil {
			_ = s.Compensate(ctx)
			return fmt.Errorf("failed to load order %d: %w", id, err)
		}
		if _, err := s.ledger.SetStatus(ctx, id, string(domain.StatusCanceled)); err != nil {
			_ = s.Compensate(ctx)
			return fmt.Errorf("failed to cancel order %d: %w", id, err)
		}
		s.previous[id] = o.Status
	}
	return nil
}

// Compensate restores the status every canceled order had before.
func (s *CancelOrdersStep) Compensate(ctx context.Context) error {
	var firstErr error
	for _, id := range s.orderIDs {
		prev, ok := s.previous[id]
		if !ok {
			continue
		}
		if _, err := s.ledger.SetStatus(ctx, id, string(prev)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to restore order %d to %s: %w", id, prev, err)
			continue
		}
		delete(s.previous, id)
	}
	return firstErr
}

// --- RemoveProductStep ---

type RemoveProductStep struct {
	catalog Catalog
	name    string
	removed catalogdomain.Product
}

func NewRemoveProductStep(catalog Catalog, name string) *RemoveProductStep {
	return &RemoveProductStep{catalog: catalog, name: name}
}

func (s *RemoveProductStep) Name() string { return "Remove_Product_Step" }

func (s *RemoveProductStep) Execute(ctx context.Context) error {
	p, ok := s.catalog.Find(s.name)
	if ok {
		s.removed = p
	}
	if err := s.catalog.Remove(s.name); err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}
	return nil
}

func (s *RemoveProductStep) Compensate(ctx context.Context) error {
	return s.catalog.Add(s.removed.Name, s.removed.Price, s.removed.Stock)
}

// --- AddProductStep ---

type AddProductStep struct {
	catalog Catalog
	name    string
	price   decimal.Decimal
	stock   int
}

func NewAddProductStep(catalog Catalog, name string, price decimal.Decimal, stock int) *AddProductStep {
	return &AddProductStep{catalog: catalog, name: name, price: price, stock: stock}
}

func (s *AddProductStep) Name() string { return "Add_Product_Step" }

func (s *AddProductStep) Execute(ctx context.Context) error {
	if err := s.catalog.Add(s.name, s.price, s.stock); err != nil {
		return fmt.Errorf("failed to add product: %w", err)
	}
	return nil
}

func (s *AddProductStep) Compensate(ctx context.Context) error {
	return s.catalog.Remove(s.name)
}

// --- UpdateProductStep ---

type UpdateProductStep struct {
	catalog  Catalog
	oldName  string
	newName  string
	price    decimal.Decimal
	stock    *int
	original catalogdomain.Product
}

func NewUpdateProductStep(catalog Catalog, oldName, newName string, price decimal.Decimal, stock *int) *UpdateProductStep {
	return &UpdateProductStep{
		catalog: catalog,
		oldName: oldName,
		newName: newName,
		price:   price,
		stock:   stock,
	}
}

func (s *UpdateProductStep) Name() string { return "Update_Product_Step" }

func (s *UpdateProductStep) Execute(ctx context.Context) error {
	p, ok := s.catalog.Find(s.oldName)
	if ok {
		s.original = p
	}
	if err := s.catalog.Update(s.oldName, s.newName, s.price, s.stock); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (s *UpdateProductStep) Compensate(ctx context.Context) error {
	stock := s.original.Stock
	return s.catalog.Update(s.newName, s.original.Name, s.original.Price, &stock)
}

// --- SyncPricesStep ---

// SyncPricesStep pushes the catalog prices into the ledger and reprices the
// orders holding the given products. The workflow resyncs the ledger after a
// rollback, so there is nothing to compensate here.
type SyncPricesStep struct {
	catalog Catalog
	ledger  Ledger
	names   []string
}

func NewSyncPricesStep(catalog Catalog, ledger Ledger, names ...string) *SyncPricesStep {
	return &SyncPricesStep{catalog: catalog, ledger: ledger, names: names}
}

func (s *SyncPricesStep) Name() string { return "Sync_Ledger_Prices_Step" }

func (s *SyncPricesStep) Execute(ctx context.Context) error {
	s.ledger.SetPrices(s.catalog.Prices())
	for _, name := range s.names {
		if _, err := s.ledger.RecalculateForProduct(ctx, name); err != nil {
			return fmt.Errorf("failed to recalculate orders for %s: %w", name, err)
		}
	}
	return nil
}

func (s *SyncPricesStep) Compensate(ctx context.Context) error {
	return nil
}
