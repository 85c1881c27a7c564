// Package pricing derives cart totals from priced lines.
package pricing

import (
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the storefront's sales tax.
var DefaultTaxRate = decimal.RequireFromString("0.09")

// Engine is stateless once built and safe for concurrent use.
type Engine struct {
	taxRate  decimal.Decimal
	scale    int32
	shipping ShippingPolicy
}

type Option func(*Engine)

func WithTaxRate(r decimal.Decimal) Option { return func(e *Engine) { e.taxRate = r } }
func WithScale(s int32) Option             { return func(e *Engine) { e.scale = s } }
func WithShipping(p ShippingPolicy) Option { return func(e *Engine) { e.shipping = p } }

// New builds an engine. Defaults: 9% tax, 2-decimal total, free shipping.
func New(opts ...Option) *Engine {
	e := &Engine{
		taxRate:  DefaultTaxRate,
		scale:    2,
		shipping: FlatRate(decimal.Zero),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.taxRate.IsNegative() {
		e.taxRate = decimal.Zero
	}
	if e.shipping == nil {
		e.shipping = FlatRate(decimal.Zero)
	}
	return e
}

func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }
func (e *Engine) Scale() int32             { return e.scale }

// Compute prices lines from scratch. Nothing is rounded per line; only Total
// is rounded, once, to the engine scale.
func (e *Engine) Compute(lines []domain.CartLine) domain.Totals {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		items += l.Quantity
	}
	subtotal = nonNegative(subtotal)
	tax := nonNegative(subtotal.Mul(e.taxRate))
	shipping := nonNegative(e.shipping.Rate(ShippingQuote{
		LineCount: len(lines),
		ItemCount: items,
		Subtotal:  subtotal,
	}))

	return domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(e.scale),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
