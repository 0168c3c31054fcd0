// Package money holds the fixed-point helpers shared by the catalog and the
// ledger. All amounts carry two decimal places.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
)

// Places is the number of decimal digits kept for every amount.
const Places = 2

// Round rounds d to two places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Normalize rejects negative amounts and rounds the rest to two places.
func Normalize(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, apperr.Validation("money must be non-negative")
	}
	return Round(d), nil
}

// ValidatePrice accepts only positive prices with at most two decimals.
func ValidatePrice(d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperr.Validation("price must be positive")
	}
	if !d.Equal(Round(d)) {
		return apperr.Validation("price must have max 2 decimals")
	}
	return nil
}

// Parse reads an amount from a record field. A comma is accepted as the
// decimal separator; unparsable input yields zero.
func Parse(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return Round(d)
}

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
