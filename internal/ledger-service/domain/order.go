package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/validation"
)

type Order struct {
	ID        int
	Client    string
	Status    Status
	Items     map[string]int
	Total     decimal.Decimal
	CreatedAt time.Time
	// FrozenPrices holds the unit prices captured when the order left new.
	FrozenPrices map[string]decimal.Decimal
}

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

// Statuses lists every lifecycle status in display order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusDone, StatusCanceled}

// ParseStatus accepts exactly the four lifecycle strings.
func ParseStatus(s string) (Status, error) {
	if err := validation.Status(s); err != nil {
		return "", err
	}
	return Status(s), nil
}

// IsActive reports whether the order still counts against open work.
func (s Status) IsActive() bool {
	return s == StatusNew || s == StatusInProgress
}

// NewOrder returns an empty order in status new.
func NewOrder(id int, client string, createdAt time.Time) Order {
	return Order{
		ID:           id,
		Client:       client,
		Status:       StatusNew,
		Items:        make(map[string]int),
		Total:        decimal.Zero,
		CreatedAt:    createdAt,
		FrozenPrices: make(map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy so callers never share the maps.
func (o Order) Clone() Order {
	c := o
	c.Items = make(map[string]int, len(o.Items))
	for k, v := range o.Items {
		c.Items[k] = v
	}
	c.FrozenPrices = make(map[string]decimal.Decimal, len(o.FrozenPrices))
	for k, v := range o.FrozenPrices {
		c.FrozenPrices[k] = v
	}
	return c
}

// ItemKeys returns the item keys in sorted order.
func (o Order) ItemKeys() []string {
	keys := make([]string, 0, len(o.Items))
	for k := range o.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o Order) Has(key string) bool {
	_, ok := o.Items[key]
	return ok
}

// CalcTotal prices the order against the live table.
//
// A new order is priced live, using a frozen price only when the live one is
// missing. Any other order is priced from its frozen snapshot, or live when it
// has none. Items without any price contribute nothing.
func (o Order) CalcTotal(live map[string]decimal.Decimal) decimal.Decimal {
	useFrozen := o.Status != StatusNew && len(o.FrozenPrices) > 0

	total := decimal.Zero
	for key, qty := range o.Items {
		var (
			price decimal.Decimal
			ok    bool
		)
		if useFrozen {
			price, ok = o.FrozenPrices[key]
		} else {
			price, ok = live[key]
			if !ok {
				price, ok = o.FrozenPrices[key]
			}
		}
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return money.Round(total)
}
