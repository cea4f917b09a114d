// Package pricing turns cart lines and an optional coupon into PricedTotals.
//
// Compute is pure: the same lines and coupon always give the same totals, and nothing is cached
// between calls. Amounts are kept exact; rounding happens only through PricedTotals.Rounded.
package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	StandardShipping = "Standard Shipping"
	FreeShipping     = "Free Shipping"
)

var hundred = decimal.NewFromInt(100)

// DefaultShipping is the baseline shipping descriptor; delivery is currently free.
func DefaultShipping() domain.ShippingInfo {
	return domain.ShippingInfo{Name: StandardShipping, Type: domain.ShippingAmount, Value: decimal.Zero}
}

func Compute(lines []domain.CartLine, coupon *domain.Coupon) domain.PricedTotals {
	subTotal := cart.Subtotal(lines)
	t := domain.PricedTotals{
		SubTotal: subTotal,
		Discount: Discount(subTotal, coupon),
		Shipping: Shipping(coupon),
		Tax:      decimal.Zero,
	}
	t.Total = decimal.Max(decimal.Zero, t.SubTotal.Add(t.Tax).Sub(t.Discount))
	return t
}

// Discount is the coupon's effect on subTotal, always within [0, subTotal].
func Discount(subTotal decimal.Decimal, coupon *domain.Coupon) decimal.Decimal {
	if coupon == nil {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch coupon.Type {
	case domain.CouponPercentage:
		d = subTotal.Mul(coupon.DiscountAmount.Div(hundred))
	case domain.CouponFixed:
		d = coupon.DiscountAmount
	default:
		return decimal.Zero
	}
	return clamp(d, decimal.Zero, decimal.Max(decimal.Zero, subTotal))
}

func Shipping(coupon *domain.Coupon) domain.ShippingInfo {
	if coupon != nil && coupon.Type == domain.CouponFreeShipping {
		return domain.ShippingInfo{Name: FreeShipping, Type: domain.ShippingAmount, Value: decimal.Zero}
	}
	return DefaultShipping()
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}
