package cache

import (
	"context"
	"errors"

	"github.com/looprex/checkout/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Set(ctx context.Context, userID int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
