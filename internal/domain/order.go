package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodTransfer || m == PaymentMethodCard
}

func (m PaymentMethod) String() string {
	return string(m)
}

type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// OrderLine is a priced line item of an assembled order.
type OrderLine struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is produced by the pricing engine and not modified afterwards.
type Order struct {
	OrderNumber   string        `json:"orderNumber"`
	LineItems     []OrderLine   `json:"lineItems"`
	Totals        OrderTotals   `json:"totals"`
	UserID        int64         `json:"userId"`
	AddressID     int64         `json:"addressId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Timestamp     time.Time     `json:"timestamp"`
}
