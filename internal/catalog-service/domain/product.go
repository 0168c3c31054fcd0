package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Product is one catalog entry. It is addressed by Key(Name).
type Product struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// Key returns the case-insensitive catalog key for a display name.
func Key(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}
