package pricing

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to price")
	ErrInvalidLineItem   = errors.New("invalid line item")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPriceUnavailable  = errors.New("price unavailable for product")
)
