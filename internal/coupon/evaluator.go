// Package coupon decides whether a code is applicable to a cart. It never computes the discount
// itself; pricing does that from the coupon it returns.
package coupon

import (
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Evaluator struct {
	now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewEvaluatorWithClock is used by tests that need a fixed "now".
func NewEvaluatorWithClock(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Apply finds the approved coupon matching code (case-insensitive) and checks it against the subtotal.
// Errors are ErrNotFound, ErrExpired or a *BelowMinimumError wrapping ErrBelowMinimum.
func (e *Evaluator) Apply(code string, subtotal decimal.Decimal, available []domain.Coupon) (domain.Coupon, error) {
	c, ok := Find(code, available)
	if !ok {
		return domain.Coupon{}, ErrNotFound
	}
	if !c.ExpireDate.IsZero() && c.ExpireDate.Before(e.now()) {
		return domain.Coupon{}, ErrExpired
	}
	if subtotal.LessThan(c.MinimumPurchaseAmount) {
		return domain.Coupon{}, &BelowMinimumError{
			Minimum:   c.MinimumPurchaseAmount,
			Shortfall: c.MinimumPurchaseAmount.Sub(subtotal),
		}
	}
	return c, nil
}

// Find returns the first approved coupon whose code matches, ignoring case and surrounding space.
func Find(code string, available []domain.Coupon) (domain.Coupon, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Coupon{}, false
	}
	for _, c := range available {
		if c.IsApproved && strings.EqualFold(strings.TrimSpace(c.Code), code) {
			return c, true
		}
	}
	return domain.Coupon{}, false
}
