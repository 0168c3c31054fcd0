package ports

import (
	"context"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	ledgerapp "github.com/kiryshabutor/OrderCRM/internal/ledger-service/app"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal"
)

// Ledger is the order side served by the gateway.
type Ledger interface {
	Create(ctx context.Context, client string) (domain.Order, error)
	FindByID(id int) (domain.Order, error)
	All() []domain.Order
	AddItem(ctx context.Context, id int, name string, qty int) (domain.Order, error)
	RemoveItem(ctx context.Context, id int, name string) (domain.Order, error)
	SetStatus(ctx context.Context, id int, status string) (domain.Order, error)
	Revenue() decimal.Decimal
	Stats() []ledgerapp.StatusStats
	Prices() map[string]decimal.Decimal
	History(ctx context.Context, id int) ([]journal.Entry, error)
}

// Catalog is the read side of the product catalog.
type Catalog interface {
	All() []catalogdomain.Product
	Find(name string) (catalogdomain.Product, bool)
}

// ProductWorkflows runs the catalog changes that touch the ledger.
type ProductWorkflows interface {
	AddProduct(ctx context.Context, name string, price decimal.Decimal, stock int) error
	UpdateProduct(ctx context.Context, oldName, newName string, price decimal.Decimal, stock *int) error
	RemoveProduct(ctx context.Context, name string, cancelActive bool) ([]int, error)
}
