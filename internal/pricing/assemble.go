package pricing

import (
	"fmt"

	"github.com/looprex/checkout/internal/domain"
	"github.com/shopspring/decimal"
)

// PricePolicy selects which unit price an order is assembled with.
type PricePolicy int

const (
	// PriceAtAddTime keeps the price captured when the item entered the cart.
	PriceAtAddTime PricePolicy = iota
	// PriceAtCheckout re-prices every item from a PriceSource.
	PriceAtCheckout
)

func (p PricePolicy) String() string {
	switch p {
	case PriceAtAddTime:
		return "price_at_add_time"
	case PriceAtCheckout:
		return "price_at_checkout"
	default:
		return fmt.Sprintf("price_policy(%d)", int(p))
	}
}

// Quote is the current catalog price and stock of a product.
type Quote struct {
	UnitPrice decimal.Decimal
	Stock     int
}

type PriceSource interface {
	Quote(productID int64) (Quote, bool)
}

// Quotes is an in-memory PriceSource keyed by product id.
type Quotes map[int64]Quote

func (q Quotes) Quote(productID int64) (Quote, bool) {
	quote, ok := q[productID]
	return quote, ok
}

type Option func(*assembleConfig)

type assembleConfig struct {
	rules       Rules
	policy      PricePolicy
	prices      PriceSource
	orderNumber OrderNumberFunc
}

func WithRules(r Rules) Option {
	return func(c *assembleConfig) { c.rules = r }
}

func WithOrderNumber(f OrderNumberFunc) Option {
	return func(c *assembleConfig) {
		if f != nil {
			c.orderNumber = f
		}
	}
}

// WithPriceAtCheckout re-prices items from src and checks their quantity
// against its stock.
func WithPriceAtCheckout(src PriceSource) Option {
	return func(c *assembleConfig) {
		c.policy = PriceAtCheckout
		c.prices = src
	}
}

// AssembleOrder validates items, prices them according to the selected
// policy and returns the finished order. Nothing is computed when validation
// fails.
func AssembleOrder(
	items []domain.LineItem,
	userID, addressID int64,
	method domain.PaymentMethod,
	clock Clock,
	opts ...Option,
) (domain.Order, error) {
	cfg := assembleConfig{
		rules:       DefaultRules(),
		policy:      PriceAtAddTime,
		orderNumber: TimestampOrderNumber,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if clock == nil {
		clock = SystemClock
	}

	if userID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: user id %d", ErrInvalidOrder, userID)
	}
	if addressID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: address id %d", ErrInvalidOrder, addressID)
	}
	if !method.Valid() {
		return domain.Order{}, fmt.Errorf("%w: payment method %q", ErrInvalidOrder, method)
	}

	priced, err := cfg.price(items)
	if err != nil {
		return domain.Order{}, err
	}

	totals, err := cfg.rules.ComputeTotals(priced)
	if err != nil {
		return domain.Order{}, err
	}

	lines := make([]domain.OrderLine, 0, len(priced))
	for _, item := range priced {
		lines = append(lines, domain.OrderLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal(),
		})
	}

	now := clock.Now()
	return domain.Order{
		OrderNumber:   cfg.orderNumber(now),
		LineItems:     lines,
		Totals:        totals,
		UserID:        userID,
		AddressID:     addressID,
		PaymentMethod: method,
		Timestamp:     now,
	}, nil
}

// price validates items and returns a copy carrying the unit prices the
// order is assembled with.
func (c assembleConfig) price(items []domain.LineItem) ([]domain.LineItem, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(items))
	priced := make([]domain.LineItem, len(items))
	for i, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %d appears more than once", ErrInvalidLineItem, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}

		stock := item.Stock
		if c.policy == PriceAtCheckout {
			if c.prices == nil {
				return nil, fmt.Errorf("%w: no price source configured", ErrPriceUnavailable)
			}
			quote, ok := c.prices.Quote(item.ProductID)
			if !ok {
				return nil, fmt.Errorf("%w: product %d", ErrPriceUnavailable, item.ProductID)
			}
			if quote.UnitPrice.IsNegative() {
				return nil, fmt.Errorf("%w: product %d: catalog price %s is negative", ErrInvalidLineItem, item.ProductID, quote.UnitPrice)
			}
			item.UnitPrice = quote.UnitPrice
			stock = quote.Stock
			item.Stock = quote.Stock
			if stock <= 0 {
				return nil, fmt.Errorf("%w: product %d is out of stock", ErrInsufficientStock, item.ProductID)
			}
		}

		if stock > 0 && item.Quantity > stock {
			return nil, fmt.Errorf("%w: product %d: requested %d, available %d", ErrInsufficientStock, item.ProductID, item.Quantity, stock)
		}
		priced[i] = item
	}
	return priced, nil
}
