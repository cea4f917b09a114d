// Package order assembles the order-creation payload from a cart snapshot and summarises orders
// returned by the backend for the order history page.
package order

import (
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// CommissionType is the only commission kind this service computes.
const CommissionType = "percentage"

// DefaultCommissionRate is the platform's cut, in percent of a line total.
var DefaultCommissionRate = decimal.NewFromInt(5)

// ProductLookup resolves a product id against the catalog.
type ProductLookup interface {
	Lookup(productID string) (domain.Product, bool)
}

// Input is everything the shopper has chosen at the moment they place the order.
type Input struct {
	Lines    []domain.CartLine
	Customer domain.CustomerInfo
	Method   domain.PaymentMethod
	Coupon   *domain.Coupon
}

type Builder struct {
	tokens         TokenSource
	commissionRate decimal.Decimal
	schema         *jsonschema.Schema
}

// NewBuilder compiles the payload schema; tokens nil selects NewTokenSource.
func NewBuilder(tokens TokenSource, commissionRate decimal.Decimal) (*Builder, error) {
	if tokens == nil {
		tokens = NewTokenSource()
	}
	if commissionRate.IsNegative() {
		return nil, fmt.Errorf("commission rate must not be negative, got %s", commissionRate)
	}
	s, err := compilePayloadSchema()
	if err != nil {
		return nil, err
	}
	return &Builder{tokens: tokens, commissionRate: commissionRate, schema: s}, nil
}

// Build returns a fresh payload. Lines whose product is not in the catalog are dropped;
// ErrEmptyCart is returned when none remain. It performs no network calls.
func (b *Builder) Build(in Input, catalog ProductLookup) (*domain.OrderPayload, error) {
	resolved := make([]domain.CartLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.ProductID == "" {
			continue
		}
		if _, ok := catalog.Lookup(l.ProductID); !ok {
			continue
		}
		resolved = append(resolved, l)
	}
	if len(resolved) == 0 {
		return nil, ErrEmptyCart
	}

	customer := in.Customer.Trimmed()
	if errs := customer.Validate(); errs != nil {
		return nil, fmt.Errorf("%w: %d invalid field(s)", ErrIncompleteCustomer, len(errs))
	}

	paymentInfo, ok := in.Method.PaymentInfo()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, in.Method)
	}

	totals := pricing.Compute(resolved, in.Coupon)
	shipping := totals.Shipping
	shipping.Value = domain.RoundMoney(shipping.Value)

	lines := make([]domain.OrderLine, 0, len(resolved))
	for _, l := range resolved {
		lineTotal := l.LineTotal()
		lines = append(lines, domain.OrderLine{
			ProductInfo:    l.ProductID,
			TrackingNumber: b.tokens.Next(),
			Quantity:       l.Quantity,
			IsCancelled:    false,
			Status:         domain.OrderStatusPending,
			TotalAmount: domain.LineTotals{
				SubTotal: domain.RoundMoney(lineTotal),
				Discount: decimal.Zero,
				Shipping: shipping,
				Total:    domain.RoundMoney(lineTotal),
			},
			Commission: b.commission(lineTotal),
		})
	}

	payload := &domain.OrderPayload{
		OrderInfo:    lines,
		CustomerInfo: customer,
		PaymentInfo:  paymentInfo,
		TotalAmount:  domain.RoundMoney(totals.Total),
	}
	if err := validatePayload(b.schema, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// commission is advisory: the backend settles the real figure.
func (b *Builder) commission(lineTotal decimal.Decimal) domain.Commission {
	return domain.Commission{
		Type:   CommissionType,
		Value:  b.commissionRate,
		Amount: domain.RoundMoney(lineTotal.Mul(b.commissionRate).Div(decimal.NewFromInt(100))),
	}
}
