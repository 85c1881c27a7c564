package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line, including the result of merging adds.
const MaxQuantity = 9999

// LineItem is one row of a session's cart: "this session wants Quantity of ProductID".
// At most one LineItem exists per (SessionID, ProductID).
type LineItem struct {
	ID        int64
	SessionID string
	ProductID int64
	Quantity  int
}

// CartLine is a LineItem joined with the product it references.
type CartLine struct {
	LineItem
	Product Product
}

// Totals holds the monetary summary of a cart. Subtotal, Tax and Shipping keep
// full precision; Total is rounded once to the currency scale.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// CartSnapshot is the fully joined, fully priced view of a cart. It is derived
// on every read and mutation and never stored.
type CartSnapshot struct {
	SessionID string
	Items     []CartLine
	Totals
}

func (s CartSnapshot) Empty() bool { return len(s.Items) == 0 }

// ItemCount is the number of units across all lines.
func (s CartSnapshot) ItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// ValidateQuantity rejects quantities outside [1, MaxQuantity].
func ValidateQuantity(q int) error {
	if q < 1 || q > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidArgument, MaxQuantity, q)
	}
	return nil
}

// ValidateMerge checks that adding delta to a line holding current stays
// within MaxQuantity.
func ValidateMerge(current, delta int) error {
	if err := ValidateQuantity(delta); err != nil {
		return err
	}
	if current > MaxQuantity-delta {
		return fmt.Errorf("%w: line would hold %d units, max is %d", ErrInvalidArgument, current+delta, MaxQuantity)
	}
	return nil
}

// CheckoutAmount is the authoritative amount handed to the payment step.
type CheckoutAmount struct {
	SessionID string
	Amount    decimal.Decimal
	Currency  string
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Validate rejects amounts that are not positive or whose minor units do not
// fit an int64.
func (a CheckoutAmount) Validate() error {
	if !a.Amount.IsPositive() {
		return fmt.Errorf("%w: cart total must be positive", ErrInvalidArgument)
	}
	if a.Amount.Shift(2).Round(0).GreaterThan(maxCents) {
		return fmt.Errorf("%w: cart total %s is too large to charge", ErrInvalidArgument, a.Amount)
	}
	return nil
}

// Cents converts the amount to the currency's minor unit. Only meaningful
// once Validate has passed.
func (a CheckoutAmount) Cents() int64 {
	return a.Amount.Shift(2).Round(0).IntPart()
}
