package pricing

import "github.com/shopspring/decimal"

// ShippingQuote is what a shipping policy gets to look at.
type ShippingQuote struct {
	LineCount int
	ItemCount int
	Subtotal  decimal.Decimal
}

// ShippingPolicy prices shipping for a cart. Implementations must not return a
// negative amount; the engine clamps at zero anyway.
type ShippingPolicy interface {
	Rate(q ShippingQuote) decimal.Decimal
}

// ShippingFunc adapts a plain function to ShippingPolicy.
type ShippingFunc func(q ShippingQuote) decimal.Decimal

func (f ShippingFunc) Rate(q ShippingQuote) decimal.Decimal { return f(q) }

// FlatRate charges the same amount for any non-empty cart.
type FlatRate decimal.Decimal

func (r FlatRate) Rate(q ShippingQuote) decimal.Decimal {
	if q.LineCount == 0 {
		return decimal.Zero
	}
	return decimal.Decimal(r)
}

// FreeOver charges Fee unless the subtotal reaches Threshold.
type FreeOver struct {
	Threshold decimal.Decimal
	Fee       decimal.Decimal
}

func (f FreeOver) Rate(q ShippingQuote) decimal.Decimal {
	if q.LineCount == 0 || q.Subtotal.GreaterThanOrEqual(f.Threshold) {
		return decimal.Zero
	}
	return f.Fee
}
