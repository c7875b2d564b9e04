package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/looprex/checkout/internal/cart/cache"
	"github.com/looprex/checkout/internal/cart/repository"
	"github.com/looprex/checkout/internal/checkout/catalog"
	"github.com/looprex/checkout/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	m         sync.RWMutex
	cart      *domain.Cart
	err       error
	upsertErr error
	deleted   bool
}

func (m *mockRepository) GetCart(context.Context, int64) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, repository.ErrCartNotFound
	}
	return m.cart.Clone(), nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.cart = c.Clone()
	return nil
}

func (m *mockRepository) DeleteCart(context.Context, int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return repository.ErrCartNotFound
	}
	m.cart = nil
	m.deleted = true
	return nil
}

func (m *mockRepository) DeleteCartIfUnchangedSince(_ context.Context, _ int64, since time.Time) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.cart == nil || m.cart.UpdatedAt.After(since) {
		return false, nil
	}
	m.cart = nil
	m.deleted = true
	return true, nil
}

func (m *mockRepository) stored() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, int64) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ int64, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockProducts struct {
	m        sync.RWMutex
	products map[int64]*catalog.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, productID int64) (*catalog.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func newProducts() *mockProducts {
	return &mockProducts{products: map[int64]*catalog.Product{
		1: {ProductID: 1, Name: "Mug", Price: decimal.NewFromInt(10000), Stock: 10},
		2: {ProductID: 2, Name: "Tee", Price: decimal.NewFromInt(15000), Stock: 3},
	}}
}

func storedCart(items ...domain.LineItem) *domain.Cart {
	now := time.Now()
	return &domain.Cart{UserID: 123, Items: items, CreatedAt: now, UpdatedAt: now}
}

func TestGetCart_Success(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(
		domain.LineItem{ProductID: 1, Quantity: 5, UnitPrice: decimal.NewFromInt(100), Stock: 10},
		domain.LineItem{ProductID: 2, Quantity: 10, UnitPrice: decimal.NewFromInt(100), Stock: 10},
	)}
	mockC := &mockCache{}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	ret, err := sut.GetCart(context.Background(), 123)
	require.NoError(t, err)
	require.Len(t, ret.Items, 2)
	assert.Equal(t, int64(1), ret.Items[0].ProductID)
	assert.Equal(t, 5, ret.Items[0].Quantity)
	assert.Equal(t, int64(2), ret.Items[1].ProductID)
	assert.Equal(t, 10, ret.Items[1].Quantity)

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGetCart_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}
	mockC := &mockCache{}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	ret, err := sut.GetCart(context.Background(), 123)
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, ret)
	assert.Nil(t, mockC.getCart())
}

func TestGetCart_CacheHit(t *testing.T) {
	mockRepo := &mockRepository{err: errors.New("repo must not be called")}
	mockC := &mockCache{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 3})}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	ret, err := sut.GetCart(context.Background(), 123)
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, int64(1), ret.Items[0].ProductID)
}

func TestGetCart_CacheErrorFallsBackToRepo(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 2, Quantity: 1})}
	mockC := &mockCache{err: errors.New("redis down")}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	ret, err := sut.GetCart(context.Background(), 123)
	require.NoError(t, err)
	assert.Len(t, ret.Items, 1)
}

func TestGetCart_CartNotFound_ReturnsEmptyCart(t *testing.T) {
	sut := NewCartService(&mockRepository{}, &mockCache{}, newProducts(), zap.NewNop())
	ret, err := sut.GetCart(context.Background(), 123)
	require.NoError(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, int64(123), ret.UserID)
	assert.Empty(t, ret.Items)
}

func TestGetCart_ConcurrentCallersGetIndependentCopies(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 1, Stock: 10})}
	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())

	var wg sync.WaitGroup
	carts := make([]*domain.Cart, 8)
	for i := range carts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := sut.GetCart(context.Background(), 123)
			assert.NoError(t, err)
			carts[i] = c
		}()
	}
	wg.Wait()

	carts[0].Items[0].Quantity = 99
	for _, c := range carts[1:] {
		assert.Equal(t, 1, c.Items[0].Quantity)
	}
}

func TestAddItem_Success(t *testing.T) {
	mockRepo := &mockRepository{}
	mockC := &mockCache{cart: storedCart()}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	cart, err := sut.AddItem(context.Background(), 123, 1, 5)
	require.NoError(t, err)

	stored := mockRepo.stored()
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(1), stored.Items[0].ProductID)
	assert.Equal(t, "Mug", stored.Items[0].ProductName)
	assert.Equal(t, 5, stored.Items[0].Quantity)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 1, cart.ItemCount())

	// Verify cache was invalidated
	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestAddItem_MergesAndKeepsFirstPrice(t *testing.T) {
	mockRepo := &mockRepository{}
	products := newProducts()
	sut := NewCartService(mockRepo, &mockCache{}, products, zap.NewNop())

	_, err := sut.AddItem(context.Background(), 123, 1, 2)
	require.NoError(t, err)

	products.products[1].Price = decimal.NewFromInt(12000)
	cart, err := sut.AddItem(context.Background(), 123, 1, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].UnitPrice.Equal(decimal.NewFromInt(10000)))
}

func TestAddItem_ClampedToStock(t *testing.T) {
	mockRepo := &mockRepository{}
	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())

	cart, err := sut.AddItem(context.Background(), 123, 2, 7)
	assert.ErrorIs(t, err, domain.ErrQuantityExceedsStock)
	require.NotNil(t, cart)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, mockRepo.stored().Items[0].Quantity)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		quantity  int
		setup     func(*mockProducts)
		wantErr   error
	}{
		{name: "zero quantity", productID: 1, quantity: 0, wantErr: domain.ErrInvalidQuantity},
		{name: "unknown product", productID: 99, quantity: 1, wantErr: catalog.ErrProductNotFound},
		{name: "out of stock", productID: 1, quantity: 1, setup: func(p *mockProducts) { p.products[1].Stock = 0 }, wantErr: domain.ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := newProducts()
			if tt.setup != nil {
				tt.setup(products)
			}
			mockRepo := &mockRepository{}
			sut := NewCartService(mockRepo, &mockCache{}, products, zap.NewNop())

			cart, err := sut.AddItem(context.Background(), 123, tt.productID, tt.quantity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, cart)
			assert.Nil(t, mockRepo.stored())
		})
	}
}

func TestAddItem_RepoError(t *testing.T) {
	mockRepo := &mockRepository{upsertErr: fmt.Errorf("database error")}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	_, err := sut.AddItem(context.Background(), 123, 1, 5)
	require.ErrorContains(t, err, "database error")
}

func TestUpdateQuantity_Success(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(
		domain.LineItem{ProductID: 1, Quantity: 5, Stock: 10},
		domain.LineItem{ProductID: 2, Quantity: 1, Stock: 3},
	)}
	mockC := &mockCache{cart: storedCart()}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	_, err := sut.UpdateQuantity(context.Background(), 123, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, mockRepo.stored().Items[0].Quantity)

	// Verify cache was invalidated
	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestUpdateQuantity_RefreshesStockBeforeClamping(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 2, Stock: 50})}
	products := newProducts()
	products.products[1].Stock = 4

	sut := NewCartService(mockRepo, &mockCache{}, products, zap.NewNop())
	cart, err := sut.UpdateQuantity(context.Background(), 123, 1, 20)
	assert.ErrorIs(t, err, domain.ErrQuantityExceedsStock)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.Items[0].Stock)
}

func TestUpdateQuantity_CatalogUnavailableUsesKnownStock(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 2, Stock: 6})}
	products := newProducts()
	products.err = errors.New("products service down")

	sut := NewCartService(mockRepo, &mockCache{}, products, zap.NewNop())
	cart, err := sut.UpdateQuantity(context.Background(), 123, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestUpdateQuantity_SoldOut(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 2, Stock: 6})}
	products := newProducts()
	products.products[1].Stock = 0

	sut := NewCartService(mockRepo, &mockCache{}, products, zap.NewNop())
	_, err := sut.UpdateQuantity(context.Background(), 123, 1, 5)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, 2, mockRepo.stored().Items[0].Quantity, "stored cart is untouched")
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 2, Stock: 6})}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	cart, err := sut.UpdateQuantity(context.Background(), 123, 1, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestUpdateQuantity_ItemNotInCart(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 2, Stock: 6})}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	_, err := sut.UpdateQuantity(context.Background(), 123, 2, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestUpdateQuantity_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	_, err := sut.UpdateQuantity(context.Background(), 123, 1, 2)
	require.ErrorContains(t, err, "database error")
}

func TestRemoveItem_Success(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(
		domain.LineItem{ProductID: 1, Quantity: 5},
		domain.LineItem{ProductID: 2, Quantity: 10},
	)}
	mockC := &mockCache{cart: storedCart()}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	_, err := sut.RemoveItem(context.Background(), 123, 1)
	require.NoError(t, err)
	require.Len(t, mockRepo.stored().Items, 1)
	assert.Equal(t, int64(2), mockRepo.stored().Items[0].ProductID)

	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestClearCart_Success(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(domain.LineItem{ProductID: 1, Quantity: 5})}
	mockC := &mockCache{cart: storedCart()}

	sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
	require.NoError(t, sut.ClearCart(context.Background(), 123))
	assert.Nil(t, mockRepo.stored())
	assert.True(t, mockRepo.deleted)

	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestRemoveItems(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(
		domain.LineItem{ProductID: 1, Quantity: 5},
		domain.LineItem{ProductID: 2, Quantity: 1},
		domain.LineItem{ProductID: 3, Quantity: 2},
	)}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	require.NoError(t, sut.RemoveItems(context.Background(), 123, []int64{1, 3, 99}))
	require.Len(t, mockRepo.stored().Items, 1)
	assert.Equal(t, int64(2), mockRepo.stored().Items[0].ProductID)
}

func TestClearCartIfUnchangedSince(t *testing.T) {
	submittedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cart untouched since submission is cleared", func(t *testing.T) {
		cart := storedCart(domain.LineItem{ProductID: 1, Quantity: 1})
		cart.UpdatedAt = submittedAt.Add(-time.Minute)
		mockRepo := &mockRepository{cart: cart}
		mockC := &mockCache{cart: storedCart()}

		sut := NewCartService(mockRepo, mockC, newProducts(), zap.NewNop())
		deleted, err := sut.ClearCartIfUnchangedSince(context.Background(), 123, submittedAt)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Nil(t, mockRepo.stored())
		assert.Nil(t, mockC.getCart())
	})

	t.Run("cart changed after submission survives", func(t *testing.T) {
		cart := storedCart(domain.LineItem{ProductID: 2, Quantity: 1})
		cart.UpdatedAt = submittedAt.Add(time.Second)
		mockRepo := &mockRepository{cart: cart}

		sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
		deleted, err := sut.ClearCartIfUnchangedSince(context.Background(), 123, submittedAt)
		require.NoError(t, err)
		assert.False(t, deleted)
		require.NotNil(t, mockRepo.stored())
		assert.Len(t, mockRepo.stored().Items, 1)
	})
}

func TestClearCart_MissingCartIsNotAnError(t *testing.T) {
	sut := NewCartService(&mockRepository{}, &mockCache{}, newProducts(), zap.NewNop())
	require.NoError(t, sut.ClearCart(context.Background(), 123))
}

func TestClearCart_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	err := sut.ClearCart(context.Background(), 123)
	require.ErrorContains(t, err, "database error")
}

func TestTotals(t *testing.T) {
	mockRepo := &mockRepository{cart: storedCart(
		domain.LineItem{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10000), Stock: 10},
		domain.LineItem{ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(15000), Stock: 3},
	)}

	sut := NewCartService(mockRepo, &mockCache{}, newProducts(), zap.NewNop())
	totals, err := sut.Totals(context.Background(), 123)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(35000)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(6650)))
	assert.True(t, totals.Shipping.Equal(decimal.NewFromInt(5990)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(47640)))
}
