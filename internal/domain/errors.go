package domain

import "errors"

var (
	// ErrQuantityExceedsStock is non-fatal: the cart was updated with the
	// quantity clamped to the known stock.
	ErrQuantityExceedsStock = errors.New("requested quantity exceeds stock")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("unit price must not be negative")
	ErrItemNotInCart        = errors.New("item not in cart")
	ErrIllegalTransition    = errors.New("illegal transition of checkout status")
)
