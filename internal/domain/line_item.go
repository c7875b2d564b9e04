package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry of a cart. UnitPrice is the price captured
// when the product was added; Stock is the stock level known at that time.
type LineItem struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName,omitempty"`
	ProductPhoto string          `json:"productPhoto,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	Stock        int             `json:"stock,omitempty"`
	AddedAt      time.Time       `json:"addedAt,omitempty"`
}

// Subtotal returns unitPrice × quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
