package coupon

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("coupon not found")
	ErrBelowMinimum = errors.New("subtotal below coupon minimum")
	ErrExpired      = errors.New("coupon expired")
)

// BelowMinimumError carries how much more the shopper has to add to the cart.
type BelowMinimumError struct {
	Minimum   decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum purchase is ৳%s, add ৳%s more to use this coupon",
		e.Minimum.StringFixed(2), e.Shortfall.StringFixed(2))
}

func (e *BelowMinimumError) Unwrap() error {
	return ErrBelowMinimum
}
