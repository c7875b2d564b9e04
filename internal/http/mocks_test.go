package http

import (
	"context"
	"sync"

	d "github.com/looprex/checkout/internal/domain"
)

type mockCartService struct {
	m       sync.RWMutex
	cart    *d.Cart
	totals  d.OrderTotals
	err     error
	lastQty int
	lastPID int64
	lastUID int64
}

func (m *mockCartService) record(userID, productID int64, qty int) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lastUID, m.lastPID, m.lastQty = userID, productID, qty
}

func (m *mockCartService) result() (*d.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil && m.cart == nil {
		return nil, m.err
	}
	return m.cart, m.err
}

func (m *mockCartService) GetCart(_ context.Context, userID int64) (*d.Cart, error) {
	m.record(userID, 0, 0)
	return m.result()
}

func (m *mockCartService) AddItem(_ context.Context, userID, productID int64, quantity int) (*d.Cart, error) {
	m.record(userID, productID, quantity)
	return m.result()
}

func (m *mockCartService) UpdateQuantity(_ context.Context, userID, productID int64, quantity int) (*d.Cart, error) {
	m.record(userID, productID, quantity)
	return m.result()
}

func (m *mockCartService) RemoveItem(_ context.Context, userID, productID int64) (*d.Cart, error) {
	m.record(userID, productID, 0)
	return m.result()
}

func (m *mockCartService) ClearCart(_ context.Context, userID int64) error {
	m.record(userID, 0, 0)
	m.m.RLock()
	defer m.m.RUnlock()
	return m.err
}

func (m *mockCartService) Totals(_ context.Context, userID int64) (d.OrderTotals, error) {
	m.record(userID, 0, 0)
	m.m.RLock()
	defer m.m.RUnlock()
	return m.totals, m.err
}

type mockCheckoutService struct {
	m        sync.RWMutex
	resp     *d.CheckoutResponse
	err      error
	requests []d.CheckoutRequest
	orders   []d.OrderSummary
	updates  [][2]int64
}

func (m *mockCheckoutService) InitiateCheckout(_ context.Context, req d.CheckoutRequest) (*d.CheckoutResponse, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

func (m *mockCheckoutService) GetCheckout(_ context.Context, _ int64, _ string) (*d.CheckoutResponse, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.resp, m.err
}

func (m *mockCheckoutService) ListOrders(_ context.Context, _ int64) ([]d.OrderSummary, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.orders, m.err
}

func (m *mockCheckoutService) UpdateOrderStatus(_ context.Context, orderID, statusID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.updates = append(m.updates, [2]int64{orderID, statusID})
	return m.err
}
