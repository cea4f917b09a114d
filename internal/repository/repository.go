package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository keeps the carts of signed-in customers so they follow them across devices.
type CartRepository interface {
	GetCart(ctx context.Context, customerID string) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, customerID string, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, customerID string) error
}
