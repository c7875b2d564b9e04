package catalog

import (
	"context"
	"sync"

	"github.com/looprex/checkout/internal/pricing"
	"golang.org/x/sync/errgroup"
)

const maxParallelLookups = 8

type ProductGetter interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
}

// FetchQuotes looks up the current price and stock of every product id. The
// first failing lookup cancels the rest.
func FetchQuotes(ctx context.Context, products ProductGetter, productIDs []int64) (pricing.Quotes, error) {
	quotes := make(pricing.Quotes, len(productIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for _, id := range productIDs {
		g.Go(func() error {
			p, err := products.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			quotes[id] = pricing.Quote{UnitPrice: p.Price, Stock: p.Stock}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}
