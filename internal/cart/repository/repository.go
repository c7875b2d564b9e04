package repository

import (
	"context"
	"errors"
	"time"

	"github.com/looprex/checkout/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository persists whole carts. Cart mutations are applied by the
// domain.Cart value and written back with UpsertCart.
type CartRepository interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID int64) error
	// DeleteCartIfUnchangedSince deletes the cart only when it was last
	// updated at or before since. It reports whether a cart was deleted.
	DeleteCartIfUnchangedSince(ctx context.Context, userID int64, since time.Time) (bool, error)
}
