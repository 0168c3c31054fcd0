// Package coordinator runs the catalog changes that must keep the ledger
// consistent. Each workflow is a saga of compensable steps.
package coordinator

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
)

// Catalog is the product side of a workflow.
type Catalog interface {
	Add(name string, price decimal.Decimal, stock int) error
	Remove(name string) error
	Update(oldName, newName string, price decimal.Decimal, stock *int) error
	Find(name string) (catalogdomain.Product, bool)
	Prices() map[string]decimal.Decimal
}

// Ledger is the order side of a workflow.
type Ledger interface {
	SetPrices(snapshot map[string]decimal.Decimal)
	RecalculateForProduct(ctx context.Context, name string) (int, error)
	ActiveOrdersWith(name string) []int
	FindByID(id int) (domain.Order, error)
	SetStatus(ctx context.Context, id int, status string) (domain.Order, error)
}

type Workflows struct {
	catalog Catalog
	ledger  Ledger
}

func NewWorkflows(catalog Catalog, ledger Ledger) *Workflows {
	return &Workflows{catalog: catalog, ledger: ledger}
}

// AddProduct adds a product and reprices orders that already reference its key.
func (w *Workflows) AddProduct(ctx context.Context, name string, price decimal.Decimal, stock int) error {
	return w.run(ctx, "add_product", []string{name},
		NewAddProductStep(w.catalog, name, price, stock),
		NewSyncPricesStep(w.catalog, w.ledger, name),
	)
}

// UpdateProduct renames, reprices or restocks a product. Orders holding the
// old or the new key are repriced when the name or the price changed.
func (w *Workflows) UpdateProduct(ctx context.Context, oldName, newName string, price decimal.Decimal, stock *int) error {
	current, ok := w.catalog.Find(oldName)
	if !ok {
		return apperr.NotFoundf("product %q not found", oldName)
	}

	renamed := catalogdomain.Key(oldName) != catalogdomain.Key(newName)
	var reprice []string
	if renamed || !current.Price.Equal(price) {
		reprice = append(reprice, oldName)
	}
	if renamed {
		reprice = append(reprice, newName)
	}

	return w.run(ctx, "update_product", []string{oldName, newName},
		NewUpdateProductStep(w.catalog, oldName, newName, price, stock),
		NewSyncPricesStep(w.catalog, w.ledger, reprice...),
	)
}

// RemoveProduct deletes a product. Active orders holding it block the
// removal unless cancelActive is set, in which case they are canceled first.
// It returns the ids of the canceled orders.
func (w *Workflows) RemoveProduct(ctx context.Context, name string, cancelActive bool) ([]int, error) {
	if _, ok := w.catalog.Find(name); !ok {
		return nil, apperr.NotFoundf("product %q not found", name)
	}

	active := w.ledger.ActiveOrdersWith(name)
	if len(active) > 0 && !cancelActive {
		return nil, apperr.Validationf("product %q is used by active orders %v", name, active)
	}

	var steps []Step
	if len(active) > 0 {
		steps = append(steps, NewCancelOrdersStep(w.ledger, active))
	}
	steps = append(steps,
		NewRemoveProductStep(w.catalog, name),
		NewSyncPricesStep(w.catalog, w.ledger, name),
	)

	if err := w.run(ctx, "remove_product", []string{name}, steps...); err != nil {
		return nil, err
	}
	return active, nil
}

func (w *Workflows) run(ctx context.Context, saga string, names []string, steps ...Step) error {
	err := NewOrchestrator(saga, steps...).Start(ctx)
	if err != nil {
		w.resync(ctx, names)
	}
	return err
}

// resync realigns the ledger with whatever the catalog holds after a rollback.
func (w *Workflows) resync(ctx context.Context, names []string) {
	w.ledger.SetPrices(w.catalog.Prices())
	for _, name := range names {
		if _, err := w.ledger.RecalculateForProduct(ctx, name); err != nil {
			slog.ErrorContext(ctx, "ledger resync failed", "key", catalogdomain.Key(name), "error", err)
		}
	}
}
