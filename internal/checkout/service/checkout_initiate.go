package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	r "github.com/looprex/checkout/internal/checkout/repository"
	d "github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/pkg/logger"
	"go.uber.org/zap"
)

// InitiateCheckout prices the user's cart against the live catalog, records
// a checkout session and submits the order. Repeating a request with the
// same idempotency key returns the recorded session instead of submitting
// again.
func (s *CheckoutServiceImpl) InitiateCheckout(ctx context.Context, req d.CheckoutRequest) (*d.CheckoutResponse, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}
	log := logger.FromContext(ctx, s.log).With(
		zap.Int64("user_id", req.UserID),
		zap.String("idempotency_key", req.IdempotencyKey),
	)

	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		log.Info("duplicate checkout request", zap.String("checkout_id", existing.ID), zap.Stringer("status", existing.Status))
		return s.replay(existing, req.UserID)
	}

	cart, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	snapshot, err := s.captureSnapshot(ctx, cart, req)
	if err != nil {
		return nil, err
	}
	order := snapshot.Order

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &r.CheckoutSession{
		ID:             s.newID(),
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         d.CheckoutStatusInitiated,
		OrderNumber:    order.OrderNumber,
		TotalAmount:    order.Totals.Total,
		CartSnapshot:   snapshotJSON,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) {
			// a concurrent request with the same key won the insert
			winner, getErr := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load concurrent checkout: %w", getErr)
			}
			return s.replay(winner, req.UserID)
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	log = log.With(zap.String("checkout_id", session.ID), zap.String("order_number", order.OrderNumber))
	log.Info("checkout session created", zap.String("total", order.Totals.Total.String()))

	return s.submit(ctx, log, session, order)
}

// replay answers a repeated request from the recorded session.
func (s *CheckoutServiceImpl) replay(session *r.CheckoutSession, userID int64) (*d.CheckoutResponse, error) {
	if session.UserID != userID {
		return nil, ErrIdempotencyKeyReused
	}
	return responseFor(session)
}

func responseFor(session *r.CheckoutSession) (*d.CheckoutResponse, error) {
	resp := &d.CheckoutResponse{
		CheckoutID:  session.ID,
		Status:      session.Status,
		OrderNumber: session.OrderNumber,
		OrderID:     session.OrderID,
	}

	var snapshot d.CartSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot of %s: %w", session.ID, err)
	}
	totals := snapshot.Order.Totals
	resp.Totals = &totals

	if len(session.SubmissionResult) > 0 {
		var outcome sessionOutcome
		if err := json.Unmarshal(session.SubmissionResult, &outcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission result of %s: %w", session.ID, err)
		}
		resp.FailedProducts = outcome.FailedProducts
		resp.Message = outcome.Message
	}
	return resp, nil
}
