package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartStore persists the lines of one owner's cart between requests and restarts.
type CartStore interface {
	Get(ctx context.Context, owner string) ([]domain.CartLine, error)
	Set(ctx context.Context, owner string, lines []domain.CartLine) error
	Delete(ctx context.Context, owner string) error
}

var ErrCacheMiss = errors.New("cache miss")
