package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	UserID         int64
	AddressID      int64
	PaymentMethod  PaymentMethod
	IdempotencyKey string
}

type CheckoutResponse struct {
	CheckoutID  string         `json:"checkoutId"`
	Status      CheckoutStatus `json:"status"`
	OrderNumber string         `json:"orderNumber,omitempty"`
	OrderID     int64          `json:"orderId,omitempty"`
	Totals      *OrderTotals   `json:"totals,omitempty"`
	// FailedProducts lists products whose line item could not be created.
	FailedProducts []int64 `json:"failedProducts,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// OrderSummary is one entry of a user's order history.
type OrderSummary struct {
	CheckoutID  string          `json:"checkoutId"`
	OrderNumber string          `json:"orderNumber"`
	OrderID     int64           `json:"orderId,omitempty"`
	Status      CheckoutStatus  `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}
