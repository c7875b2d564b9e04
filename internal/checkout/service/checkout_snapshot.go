package service

import (
	"context"
	"fmt"

	"github.com/looprex/checkout/internal/checkout/catalog"
	d "github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/internal/pricing"
)

// captureSnapshot re-prices the cart with current catalog prices and stock
// and assembles the order that will be submitted.
func (s *CheckoutServiceImpl) captureSnapshot(ctx context.Context, cart *d.Cart, req d.CheckoutRequest) (d.CartSnapshot, error) {
	if cart == nil || cart.IsEmpty() {
		return d.CartSnapshot{}, pricing.ErrEmptyCart
	}

	items := cart.Snapshot()
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	quotes, err := catalog.FetchQuotes(ctx, s.products, ids)
	if err != nil {
		return d.CartSnapshot{}, fmt.Errorf("failed to fetch current prices: %w", err)
	}

	order, err := pricing.AssembleOrder(items, req.UserID, req.AddressID, req.PaymentMethod, s.clock,
		pricing.WithPriceAtCheckout(quotes),
		pricing.WithOrderNumber(s.orderNumber),
	)
	if err != nil {
		return d.CartSnapshot{}, err
	}

	return d.CartSnapshot{
		Order:      order,
		Currency:   d.CurrencyCLP,
		CapturedAt: order.Timestamp,
	}, nil
}
