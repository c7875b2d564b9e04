package service

import "errors"

var (
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrIdempotencyKeyReused  = errors.New("idempotency key belongs to another user")
	ErrSubmissionFailed      = errors.New("order submission failed")
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrInvalidOrderStatus    = errors.New("invalid order status")
)
