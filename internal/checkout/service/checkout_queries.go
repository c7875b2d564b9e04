package service

import (
	"context"
	"errors"
	"fmt"

	r "github.com/looprex/checkout/internal/checkout/repository"
	d "github.com/looprex/checkout/internal/domain"
)

// GetCheckout returns the session of one checkout. Sessions of other users
// are reported as not found.
func (s *CheckoutServiceImpl) GetCheckout(ctx context.Context, userID int64, checkoutID string) (*d.CheckoutResponse, error) {
	session, err := s.repo.GetCheckoutSession(ctx, checkoutID)
	if errors.Is(err, r.ErrSessionNotFound) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrCheckoutNotFound
	}
	return responseFor(session)
}

func (s *CheckoutServiceImpl) ListOrders(ctx context.Context, userID int64) ([]d.OrderSummary, error) {
	sessions, err := s.repo.ListCheckoutSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]d.OrderSummary, 0, len(sessions))
	for _, session := range sessions {
		orders = append(orders, d.OrderSummary{
			CheckoutID:  session.ID,
			OrderNumber: session.OrderNumber,
			OrderID:     session.OrderID,
			Status:      session.Status,
			Total:       session.TotalAmount,
			CreatedAt:   session.CreatedAt,
		})
	}
	return orders, nil
}

// UpdateOrderStatus forwards a status change of a submitted order to the
// shopping service.
func (s *CheckoutServiceImpl) UpdateOrderStatus(ctx context.Context, orderID, statusID int64) error {
	switch statusID {
	case d.OrderStatusPending, d.OrderStatusCompleted, d.OrderStatusCancelled:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidOrderStatus, statusID)
	}
	if orderID <= 0 {
		return fmt.Errorf("%w: order id %d", ErrInvalidOrderStatus, orderID)
	}
	return s.orders.UpdateBuyStatus(ctx, orderID, statusID)
}
