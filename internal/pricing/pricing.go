// Package pricing computes cart totals and assembles immutable orders.
// Nothing in this package performs I/O.
package pricing

import (
	"fmt"

	"github.com/looprex/checkout/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.19")
	FreeShippingThreshold = decimal.NewFromInt(50000)
	ShippingFee           = decimal.NewFromInt(5990)
)

// Rules holds the tax and shipping parameters applied to a subtotal.
type Rules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		TaxRate:               TaxRate,
		FreeShippingThreshold: FreeShippingThreshold,
		ShippingFee:           ShippingFee,
	}
}

// ComputeTotals prices items with DefaultRules.
func ComputeTotals(items []domain.LineItem) (domain.OrderTotals, error) {
	return DefaultRules().ComputeTotals(items)
}

// ComputeTotals returns subtotal, tax, shipping and total for items.
// Tax is rounded half-up to the currency unit; shipping is waived only when
// the subtotal is strictly above the threshold.
func (r Rules) ComputeTotals(items []domain.LineItem) (domain.OrderTotals, error) {
	if err := validateItems(items); err != nil {
		return domain.OrderTotals{}, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	return r.totalsFor(subtotal), nil
}

func (r Rules) totalsFor(subtotal decimal.Decimal) domain.OrderTotals {
	// decimal.Round rounds half away from zero, which is half-up for
	// non-negative amounts.
	tax := subtotal.Mul(r.TaxRate).Round(0)

	shipping := r.ShippingFee
	if subtotal.GreaterThan(r.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return domain.OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

func validateItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(item domain.LineItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: product %d: quantity %d must be positive", ErrInvalidLineItem, item.ProductID, item.Quantity)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: product %d: unit price %s is negative", ErrInvalidLineItem, item.ProductID, item.UnitPrice)
	}
	return nil
}
