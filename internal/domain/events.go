package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outbox event types published on the checkout topic.
const (
	EventOrderSubmitted = "order.submitted"
	EventCheckoutFailed = "checkout.failed"
)

type OrderSubmittedEvent struct {
	CheckoutID     string          `json:"checkoutId"`
	UserID         int64           `json:"userId"`
	OrderNumber    string          `json:"orderNumber"`
	OrderID        int64           `json:"orderId"`
	AllSucceeded   bool            `json:"allSucceeded"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Lines          []OrderLine     `json:"lines"`
	FailedProducts []int64         `json:"failedProducts,omitempty"`
	SubmittedAt    time.Time       `json:"submittedAt"`
}

type CheckoutFailedEvent struct {
	CheckoutID  string    `json:"checkoutId"`
	UserID      int64     `json:"userId"`
	OrderNumber string    `json:"orderNumber"`
	OrderID     int64     `json:"orderId,omitempty"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failedAt"`
}
