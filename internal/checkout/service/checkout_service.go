package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/looprex/checkout/internal/checkout/catalog"
	r "github.com/looprex/checkout/internal/checkout/repository"
	"github.com/looprex/checkout/internal/checkout/submission"
	d "github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/internal/pricing"
	"go.uber.org/zap"
)

type CartStore interface {
	GetCart(ctx context.Context, userID int64) (*d.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
	RemoveItems(ctx context.Context, userID int64, productIDs []int64) error
}

type OrderSubmitter interface {
	Submit(ctx context.Context, order d.Order) (submission.Result, error)
}

type OrderStatusUpdater interface {
	UpdateBuyStatus(ctx context.Context, buyID, statusID int64) error
}

type CheckoutServiceImpl struct {
	repo        r.RepoInterface
	carts       CartStore
	products    catalog.ProductGetter
	submitter   OrderSubmitter
	orders      OrderStatusUpdater
	log         *zap.Logger
	clock       pricing.Clock
	orderNumber pricing.OrderNumberFunc
	newID       func() string
	// compensationTimeout bounds the header cancellation issued after every
	// line item failed.
	compensationTimeout time.Duration
}

type Option func(*CheckoutServiceImpl)

func WithClock(c pricing.Clock) Option {
	return func(s *CheckoutServiceImpl) { s.clock = c }
}

func WithOrderNumber(f pricing.OrderNumberFunc) Option {
	return func(s *CheckoutServiceImpl) { s.orderNumber = f }
}

func NewCheckoutService(
	repo r.RepoInterface,
	carts CartStore,
	products catalog.ProductGetter,
	submitter OrderSubmitter,
	orders OrderStatusUpdater,
	log *zap.Logger,
	opts ...Option,
) *CheckoutServiceImpl {
	s := &CheckoutServiceImpl{
		repo:                repo,
		carts:               carts,
		products:            products,
		submitter:           submitter,
		orders:              orders,
		log:                 log,
		clock:               pricing.SystemClock,
		orderNumber:         pricing.TimestampOrderNumber,
		newID:               uuid.NewString,
		compensationTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
