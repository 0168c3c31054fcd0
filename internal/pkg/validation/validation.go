// Package validation holds the pattern rules applied to user input before it
// reaches the catalog or the ledger.
package validation

import (
	"regexp"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
)

var (
	clientNameRe = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё0-9]+(?:[ .-][A-Za-zА-Яа-яЁё0-9]+)*$`)
	// The record separators (| : ; ,) can never appear inside a product name.
	itemNameRe = regexp.MustCompile(`^[^\s|:;,][^|:;,]*$`)
)

// ClientName validates the name an order is opened for.
func ClientName(name string) error {
	if !clientNameRe.MatchString(name) {
		return apperr.Validation("invalid client name")
	}
	return nil
}

// ItemName validates a product display name.
func ItemName(name string) error {
	if !itemNameRe.MatchString(name) {
		return apperr.Validation("invalid item name")
	}
	return nil
}

// Quantity validates an item quantity.
func Quantity(qty int) error {
	if qty <= 0 {
		return apperr.Validation("qty must be positive")
	}
	return nil
}

// Status accepts exactly the four lifecycle statuses.
func Status(s string) error {
	switch s {
	case "new", "in_progress", "done", "canceled":
		return nil
	default:
		return apperr.Validationf("invalid status %q", s)
	}
}

// ID validates an order id.
func ID(id int) error {
	if id <= 0 {
		return apperr.Validation("id must be positive")
	}
	return nil
}
