package service

import (
	"context"
	"encoding/json"
	"fmt"

	r "github.com/looprex/checkout/internal/checkout/repository"
	"github.com/looprex/checkout/internal/checkout/submission"
	d "github.com/looprex/checkout/internal/domain"
	"go.uber.org/zap"
)

// sessionOutcome is stored as the session's submission result.
type sessionOutcome struct {
	submission.Wire
	FailedProducts []int64                  `json:"failedProducts,omitempty"`
	StockFailures  []submission.LineFailure `json:"stockFailures,omitempty"`
}

func (s *CheckoutServiceImpl) submit(ctx context.Context, log *zap.Logger, session *r.CheckoutSession, order d.Order) (*d.CheckoutResponse, error) {
	if err := s.repo.UpdateCheckoutSessionStatus(ctx, session.ID, d.CheckoutStatusInitiated, d.CheckoutStatusSubmitting); err != nil {
		return nil, fmt.Errorf("failed to mark checkout as submitting: %w", err)
	}
	session.Status = d.CheckoutStatusSubmitting

	result, submitErr := s.submitter.Submit(ctx, order)

	// the remote side may have accepted the order already, so the outcome
	// is recorded even when the caller has gone away
	ctx = context.WithoutCancel(ctx)

	if submitErr != nil {
		log.Error("order submission failed", zap.Error(submitErr))
		if err := s.fail(ctx, session, 0, submission.WireError(submitErr), submitErr.Error()); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, submitErr)
	}

	log = log.With(zap.Int64("order_id", result.OrderID))
	outcome := outcomeOf(result)
	for _, f := range result.StockFailures {
		log.Warn("stock reduction failed", zap.Int64("product_id", f.Line.ProductID), zap.String("reason", f.Reason))
	}

	switch {
	case result.AllSucceeded:
		if err := s.complete(ctx, session, order, result, outcome, d.CheckoutStatusCompleted); err != nil {
			return nil, err
		}
		if err := s.carts.ClearCart(ctx, session.UserID); err != nil {
			log.Error("failed to clear cart after checkout", zap.Error(err))
		}
		log.Info("checkout completed")

	case result.NoneSucceeded():
		s.cancelOrder(ctx, log, result.OrderID)
		if err := s.fail(ctx, session, result.OrderID, outcome.Wire, outcome.Message); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrSubmissionFailed, outcome.Message)

	default:
		if err := s.complete(ctx, session, order, result, outcome, d.CheckoutStatusPartiallySubmitted); err != nil {
			return nil, err
		}
		// lines already on the remote order leave the cart so a retry
		// submits only the failed products
		if err := s.carts.RemoveItems(ctx, session.UserID, submittedProducts(result)); err != nil {
			log.Error("failed to remove submitted items from cart", zap.Error(err))
		}
		log.Warn("checkout partially submitted", zap.Int64s("failed_products", outcome.FailedProducts))
	}

	resp := &d.CheckoutResponse{
		CheckoutID:     session.ID,
		Status:         session.Status,
		OrderNumber:    order.OrderNumber,
		OrderID:        result.OrderID,
		Totals:         &order.Totals,
		FailedProducts: outcome.FailedProducts,
		Message:        outcome.Message,
	}
	return resp, nil
}

func (s *CheckoutServiceImpl) complete(
	ctx context.Context,
	session *r.CheckoutSession,
	order d.Order,
	result submission.Result,
	outcome sessionOutcome,
	status d.CheckoutStatus,
) error {
	event := d.OrderSubmittedEvent{
		CheckoutID:     session.ID,
		UserID:         session.UserID,
		OrderNumber:    order.OrderNumber,
		OrderID:        result.OrderID,
		AllSucceeded:   result.AllSucceeded,
		Total:          order.Totals.Total,
		Currency:       d.CurrencyCLP,
		Lines:          result.Succeeded,
		FailedProducts: outcome.FailedProducts,
		SubmittedAt:    s.clock.Now(),
	}
	return s.finish(ctx, session, status, result.OrderID, outcome, d.EventOrderSubmitted, event)
}

func (s *CheckoutServiceImpl) fail(ctx context.Context, session *r.CheckoutSession, orderID int64, wire submission.Wire, reason string) error {
	event := d.CheckoutFailedEvent{
		CheckoutID:  session.ID,
		UserID:      session.UserID,
		OrderNumber: session.OrderNumber,
		OrderID:     orderID,
		Reason:      reason,
		FailedAt:    s.clock.Now(),
	}
	return s.finish(ctx, session, d.CheckoutStatusFailed, orderID, sessionOutcome{Wire: wire}, d.EventCheckoutFailed, event)
}

func (s *CheckoutServiceImpl) finish(
	ctx context.Context,
	session *r.CheckoutSession,
	status d.CheckoutStatus,
	orderID int64,
	outcome sessionOutcome,
	eventType string,
	event any,
) error {
	resultJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal submission result: %w", err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = s.repo.FinishCheckoutSession(ctx, r.Finish{
		SessionID:        session.ID,
		From:             session.Status,
		To:               status,
		OrderID:          orderID,
		SubmissionResult: resultJSON,
		Event: &r.OutboxEvent{
			AggregateID: session.ID,
			EventType:   eventType,
			Payload:     payload,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record checkout outcome: %w", err)
	}

	session.Status = status
	session.OrderID = orderID
	session.SubmissionResult = resultJSON
	return nil
}

// cancelOrder marks an order header without line items as cancelled.
// Failure is logged only; the checkout is failed either way.
func (s *CheckoutServiceImpl) cancelOrder(ctx context.Context, log *zap.Logger, orderID int64) {
	ctx, cancel := context.WithTimeout(ctx, s.compensationTimeout)
	defer cancel()

	if err := s.orders.UpdateBuyStatus(ctx, orderID, d.OrderStatusCancelled); err != nil {
		log.Error("failed to cancel empty order", zap.Error(err))
		return
	}
	log.Info("empty order cancelled")
}

func outcomeOf(result submission.Result) sessionOutcome {
	outcome := sessionOutcome{
		Wire:          result.Wire(),
		StockFailures: result.StockFailures,
	}
	for _, f := range result.Failed {
		outcome.FailedProducts = append(outcome.FailedProducts, f.Line.ProductID)
	}
	return outcome
}

func submittedProducts(result submission.Result) []int64 {
	ids := make([]int64, 0, len(result.Succeeded))
	for _, line := range result.Succeeded {
		ids = append(ids, line.ProductID)
	}
	return ids
}
