package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looprex/checkout/internal/checkout/catalog"
	r "github.com/looprex/checkout/internal/checkout/repository"
	"github.com/looprex/checkout/internal/checkout/submission"
	d "github.com/looprex/checkout/internal/domain"
)

// MockRepository is an in-memory r.RepoInterface that honours the status
// guards of the real repository.
type MockRepository struct {
	mu       sync.RWMutex
	sessions map[string]*r.CheckoutSession
	events   []*r.OutboxEvent

	CreateErr error
	FinishErr error
	// RaceSession is stored right before CreateCheckoutSession reports a
	// duplicate key, simulating a concurrent request that won the insert.
	RaceSession *r.CheckoutSession
}

func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]*r.CheckoutSession)}
}

func (m *MockRepository) put(s *r.CheckoutSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
}

func (m *MockRepository) CreateCheckoutSession(_ context.Context, s *r.CheckoutSession) error {
	if m.RaceSession != nil {
		m.put(m.RaceSession)
		return r.ErrDuplicateIdempotencyKey
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.IdempotencyKey == s.IdempotencyKey {
			return r.ErrDuplicateIdempotencyKey
		}
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, key string) (*r.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.IdempotencyKey == key {
			cp := *s
			return &cp, nil
		}
	}
	return nil, r.ErrIdempotencyKeyNotFound
}

func (m *MockRepository) GetCheckoutSession(_ context.Context, id string) (*r.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, r.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) ListCheckoutSessionsByUser(_ context.Context, userID int64) ([]*r.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*r.CheckoutSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) UpdateCheckoutSessionStatus(_ context.Context, id string, from, to d.CheckoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s", r.ErrStatusConflict, id)
	}
	s.Status = to
	return nil
}

func (m *MockRepository) FinishCheckoutSession(_ context.Context, f r.Finish) error {
	if m.FinishErr != nil {
		return m.FinishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[f.SessionID]
	if !ok || s.Status != f.From || !f.From.CanTransitionTo(f.To) {
		return fmt.Errorf("%w: %s", r.ErrStatusConflict, f.SessionID)
	}
	s.Status = f.To
	s.OrderID = f.OrderID
	s.SubmissionResult = f.SubmissionResult
	if f.Event != nil {
		ev := *f.Event
		ev.ID = int64(len(m.events) + 1)
		m.events = append(m.events, &ev)
	}
	return nil
}

func (m *MockRepository) GetStuckSessions(_ context.Context, updatedBefore time.Time) ([]*r.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*r.CheckoutSession
	for _, s := range m.sessions {
		if !s.Status.IsTerminal() && s.UpdatedAt.Before(updatedBefore) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	return nil, nil
}

func (m *MockRepository) MarkEventAsProcessed(context.Context, int64) error {
	return nil
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) Session(id string) *r.CheckoutSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

func (m *MockRepository) Events() []*r.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*r.OutboxEvent(nil), m.events...)
}

// MockCartStore implements CartStore for testing
type MockCartStore struct {
	mu       sync.RWMutex
	Cart     *d.Cart
	Err      error
	ClearErr error
	Cleared  []int64
	Removed  []int64
}

func (m *MockCartStore) GetCart(_ context.Context, _ int64) (*d.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Cart, m.Err
}

func (m *MockCartStore) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, userID)
	return m.ClearErr
}

func (m *MockCartStore) RemoveItems(_ context.Context, _ int64, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, productIDs...)
	if m.Cart != nil {
		for _, id := range productIDs {
			m.Cart.RemoveItem(id, time.Now())
		}
	}
	return nil
}

// MockProducts implements catalog.ProductGetter for testing
type MockProducts struct {
	mu       sync.RWMutex
	Products map[int64]*catalog.Product
	Err      error
}

func (m *MockProducts) GetProduct(_ context.Context, productID int64) (*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

// MockSubmitter implements OrderSubmitter for testing
type MockSubmitter struct {
	mu     sync.RWMutex
	Result submission.Result
	Err    error
	Orders []d.Order
}

func (m *MockSubmitter) Submit(_ context.Context, order d.Order) (submission.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = append(m.Orders, order)
	if m.Err != nil {
		return submission.Result{}, m.Err
	}
	res := m.Result
	res.OrderNumber = order.OrderNumber
	return res, nil
}

func (m *MockSubmitter) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Orders)
}

type statusUpdate struct {
	OrderID  int64
	StatusID int64
}

// MockOrders implements OrderStatusUpdater for testing
type MockOrders struct {
	mu      sync.RWMutex
	Err     error
	Updates []statusUpdate
}

func (m *MockOrders) UpdateBuyStatus(_ context.Context, buyID, statusID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, statusUpdate{OrderID: buyID, StatusID: statusID})
	return m.Err
}
