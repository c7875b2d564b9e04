// Package submission writes an assembled order to the shopping service:
// the order header first, then one detail per line concurrently, then a
// stock reduction for every line that was created.
package submission

import (
	"context"

	"github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMaxParallel = 8

type ShoppingAPI interface {
	CreateBuy(ctx context.Context, req BuyRequest) (*Buy, error)
	CreateDetail(ctx context.Context, req DetailRequest) (*Detail, error)
}

type StockAPI interface {
	ReduceStock(ctx context.Context, productID int64, quantity int) error
}

type Adapter struct {
	shopping    ShoppingAPI
	stock       StockAPI
	log         *zap.Logger
	maxParallel int
}

func NewAdapter(shopping ShoppingAPI, stock StockAPI, log *zap.Logger) *Adapter {
	return &Adapter{
		shopping:    shopping,
		stock:       stock,
		log:         log,
		maxParallel: defaultMaxParallel,
	}
}

type lineOutcome struct {
	created  bool
	err      error
	stockErr error
}

// Submit writes order. A failed header is returned as *SubmissionError and
// nothing else is attempted. Otherwise the per-line outcome is reported in
// Result and the error is nil; the created header is never rolled back here.
func (a *Adapter) Submit(ctx context.Context, order domain.Order) (Result, error) {
	log := logger.FromContext(ctx, a.log).With(zap.String("order_number", order.OrderNumber))

	buy, err := a.shopping.CreateBuy(ctx, newBuyRequest(order))
	if err != nil {
		log.Error("order header creation failed", zap.Error(err))
		return Result{}, &SubmissionError{OrderNumber: order.OrderNumber, Stage: StageHeader, Err: err}
	}
	log = log.With(zap.Int64("order_id", buy.BuyID))

	outcomes := make([]lineOutcome, len(order.LineItems))

	var g errgroup.Group
	g.SetLimit(a.maxParallel)
	for i, line := range order.LineItems {
		g.Go(func() error {
			_, err := a.shopping.CreateDetail(ctx, newDetailRequest(buy.BuyID, line))
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].created = true
			outcomes[i].stockErr = a.stock.ReduceStock(ctx, line.ProductID, line.Quantity)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{OrderID: buy.BuyID, OrderNumber: order.OrderNumber}
	for i, line := range order.LineItems {
		o := outcomes[i]
		if !o.created {
			log.Warn("line item creation failed", zap.Int64("product_id", line.ProductID), zap.Error(o.err))
			result.Failed = append(result.Failed, LineFailure{Line: line, Stage: StageLineItem, Reason: o.err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, line)
		if o.stockErr != nil {
			log.Warn("stock reduction failed", zap.Int64("product_id", line.ProductID), zap.Error(o.stockErr))
			result.StockFailures = append(result.StockFailures, LineFailure{Line: line, Stage: StageStock, Reason: o.stockErr.Error()})
		}
	}
	result.AllSucceeded = len(result.Failed) == 0

	log.Info("order submitted",
		zap.Bool("all_succeeded", result.AllSucceeded),
		zap.Int("created", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("stock_failures", len(result.StockFailures)),
	)
	return result, nil
}

func newBuyRequest(order domain.Order) BuyRequest {
	return BuyRequest{
		OrderNumber:   order.OrderNumber,
		BuyDate:       order.Timestamp.UnixMilli(),
		Subtotal:      order.Totals.Subtotal.InexactFloat64(),
		IVA:           order.Totals.Tax.InexactFloat64(),
		Shipping:      order.Totals.Shipping.InexactFloat64(),
		Total:         order.Totals.Total.InexactFloat64(),
		PaymentMethod: order.PaymentMethod.String(),
		StatusID:      domain.OrderStatusPending,
		AddressID:     order.AddressID,
		UserID:        order.UserID,
	}
}

func newDetailRequest(buyID int64, line domain.OrderLine) DetailRequest {
	return DetailRequest{
		BuyID:     buyID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice.InexactFloat64(),
		Subtotal:  line.Subtotal.InexactFloat64(),
	}
}
