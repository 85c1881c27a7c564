package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog and read-only to the cart.
type Product struct {
	ID          int64
	Name        string
	Description string
	Slug        string
	Image       string
	Price       decimal.Decimal
	CategoryID  int64
	Rating      float64
	Featured    bool
}

type Category struct {
	ID          int64
	Name        string
	Description string
	Slug        string
	Image       string
}

// Validate reports catalog rows the cart must not price.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product %d has negative price %s", ErrInvalidArgument, p.ID, p.Price)
	}
	return nil
}
