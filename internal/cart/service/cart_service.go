package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/looprex/checkout/internal/cart/cache"
	"github.com/looprex/checkout/internal/cart/repository"
	"github.com/looprex/checkout/internal/checkout/catalog"
	"github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/internal/pricing"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products catalog.ProductGetter
	log      *zap.Logger
	clock    pricing.Clock
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products catalog.ProductGetter, log *zap.Logger) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		log:      log,
		clock:    pricing.SystemClock,
	}
}

// GetCart returns the user's cart, or a new empty cart when none is stored.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get error", zap.Int64("user_id", userID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(userID, s.clock.Now()), nil
		}
		if err != nil {
			return nil, err
		}

		go func(cart *domain.Cart) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, userID, cart); err != nil {
				s.log.Warn("cache set error", zap.Int64("user_id", userID), zap.Error(err))
			}
		}(cart.Clone())

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not see each other's changes
	return v.(*domain.Cart).Clone(), nil
}

// AddItem adds quantity units of a product at its current catalog price.
// When the quantity had to be clamped to the available stock the updated
// cart is returned together with domain.ErrQuantityExceedsStock.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product %d: %w", productID, err)
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart, now time.Time) error {
		return cart.AddItem(domain.LineItem{
			ProductID:    product.ProductID,
			ProductName:  product.Name,
			ProductPhoto: product.ProductPhoto,
			UnitPrice:    product.Price,
			Quantity:     quantity,
			Stock:        product.Stock,
		}, now)
	})
}

// UpdateQuantity sets the quantity of a product already in the cart. The
// stock level is refreshed from the catalog first; a catalog failure leaves
// the last known stock in place. A sold out product is rejected with
// domain.ErrOutOfStock.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	stock, refreshed := 0, false
	if quantity > 0 {
		product, err := s.products.GetProduct(ctx, productID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			return nil, err
		case err != nil:
			s.log.Warn("stock refresh failed", zap.Int64("product_id", productID), zap.Error(err))
		case product.Stock <= 0:
			return nil, domain.ErrOutOfStock
		default:
			stock, refreshed = product.Stock, true
		}
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart, now time.Time) error {
		if _, ok := cart.Item(productID); !ok {
			return domain.ErrItemNotInCart
		}
		if refreshed {
			cart.RefreshStock(productID, stock)
		}
		return cart.UpdateQuantity(productID, quantity, now)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart, now time.Time) error {
		cart.RemoveItem(productID, now)
		return nil
	})
}

// RemoveItems drops every listed product from the cart in one write.
func (s *CartService) RemoveItems(ctx context.Context, userID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, userID, func(cart *domain.Cart, now time.Time) error {
		for _, id := range productIDs {
			cart.RemoveItem(id, now)
		}
		return nil
	})
	return err
}

// ClearCart deletes the stored cart. Clearing a cart that does not exist is
// not an error.
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Error("repo delete cart error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// ClearCartIfUnchangedSince deletes the cart unless it was modified after
// since, so items added after a submitted checkout survive a late clear.
func (s *CartService) ClearCartIfUnchangedSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	deleted, err := s.repo.DeleteCartIfUnchangedSince(ctx, userID, since)
	if err != nil {
		s.log.Error("repo conditional delete cart error", zap.Int64("user_id", userID), zap.Error(err))
		return false, err
	}
	if deleted {
		s.invalidateCache(userID)
	}
	return deleted, nil
}

// Totals prices the current cart with the default rules.
func (s *CartService) Totals(ctx context.Context, userID int64) (domain.OrderTotals, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return domain.OrderTotals{}, err
	}
	return pricing.ComputeTotals(cart.Snapshot())
}

// mutate loads the stored cart, applies change and writes it back. The
// stock clamp warning is not fatal: the clamped cart is stored and returned
// with the warning.
func (s *CartService) mutate(ctx context.Context, userID int64, change func(*domain.Cart, time.Time) error) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = domain.NewCart(userID, s.clock.Now())
	} else if err != nil {
		return nil, err
	}

	changeErr := change(cart, s.clock.Now())
	if changeErr != nil && !errors.Is(changeErr, domain.ErrQuantityExceedsStock) {
		return nil, changeErr
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.log.Error("repo upsert cart error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, changeErr
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}
