// Package checkout drives a shopper through Shipping, Payment and Review and places the order.
//
// A Session is safe for concurrent use. At most one order placement runs per session; a second
// PlaceOrder while one is in flight fails with ErrSubmitInProgress without reaching the backend.
// Reset bumps a generation counter so a placement that completes afterwards leaves the new state
// alone.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Carts interface {
	Lines(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error)
	Clear(ctx context.Context, owner domain.Owner) error
}

type CouponSource interface {
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
}

type ProductCatalog interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, p *domain.OrderPayload) (domain.CreatedOrder, error)
}

// PlacementRecorder is told about every order the backend accepted.
type PlacementRecorder interface {
	Record(ctx context.Context, p Placement) error
}

// Placement is an order the backend accepted, as handed to a PlacementRecorder.
type Placement struct {
	OrderID  string
	Owner    domain.Owner
	Payload  *domain.OrderPayload
	Totals   domain.PricedTotals
	PlacedAt time.Time
}

// PlacedOrder is shown to the shopper after a successful placement.
type PlacedOrder struct {
	OrderID         string          `json:"orderId"`
	TrackingNumbers []string        `json:"trackingNumbers"`
	Total           decimal.Decimal `json:"total"`
	PlacedAt        time.Time       `json:"placedAt"`
}

// Deps are shared by every session. Recorder may be nil.
type Deps struct {
	Carts     Carts
	Coupons   CouponSource
	Catalog   ProductCatalog
	Orders    OrderCreator
	Builder   *order.Builder
	Evaluator *coupon.Evaluator
	Recorder  PlacementRecorder
	Now       func() time.Time
}

// View is a read-only picture of a session and the cart it checks out.
type View struct {
	Step          Step                 `json:"step"`
	NextAction    string               `json:"nextAction"`
	Form          domain.CustomerInfo  `json:"form"`
	FormErrors    domain.FieldErrors   `json:"formErrors,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	Coupon        *domain.Coupon       `json:"coupon,omitempty"`
	Lines         []domain.CartLine    `json:"lines"`
	Totals        domain.PricedTotals  `json:"totals"`
	Submitting    bool                 `json:"submitting"`
	SubmitError   string               `json:"submitError,omitempty"`
	LastOrder     *PlacedOrder         `json:"lastOrder,omitempty"`
}

type Session struct {
	deps *Deps

	mu          sync.Mutex
	owner       domain.Owner
	step        Step
	form        domain.CustomerInfo
	formErrors  domain.FieldErrors
	method      domain.PaymentMethod
	coupon      *domain.Coupon
	submitting  bool
	submitError string
	lastOrder   *PlacedOrder
	generation  uint64
	lastSeen    time.Time
}

func NewSession(deps *Deps, owner domain.Owner, form domain.CustomerInfo) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if form.Country == "" {
		form.Country = domain.DefaultCountry
	}
	return &Session{
		deps:     deps,
		owner:    owner,
		step:     StepShipping,
		form:     form,
		lastSeen: deps.Now(),
	}
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Snapshot returns the session state with totals recomputed from the current cart.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	s.mu.Lock()
	owner := s.owner
	v := View{
		Step:          s.step,
		NextAction:    s.step.NextAction(),
		Form:          s.form,
		FormErrors:    copyErrors(s.formErrors),
		PaymentMethod: s.method,
		Coupon:        copyCoupon(s.coupon),
		Submitting:    s.submitting,
		SubmitError:   s.submitError,
		LastOrder:     s.lastOrder,
	}
	s.mu.Unlock()

	lines, err := s.deps.Carts.Lines(ctx, owner)
	if err != nil {
		return View{}, err
	}
	v.Lines = lines
	v.Totals = pricing.Compute(lines, v.Coupon).Rounded()
	return v, nil
}

// Totals recomputes the priced totals for the current cart and coupon.
func (s *Session) Totals(ctx context.Context) (domain.PricedTotals, error) {
	s.mu.Lock()
	owner, c := s.owner, copyCoupon(s.coupon)
	s.mu.Unlock()

	lines, err := s.deps.Carts.Lines(ctx, owner)
	if err != nil {
		return domain.PricedTotals{}, err
	}
	return pricing.Compute(lines, c), nil
}

// UpdateShipping replaces the shipping form. Errors for fields whose value changed are cleared.
func (s *Session) UpdateShipping(info domain.CustomerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := fieldValues(s.form)
	after := fieldValues(info)
	for field := range s.formErrors {
		if before[field] != after[field] {
			delete(s.formErrors, field)
		}
	}
	s.form = info
}

func (s *Session) SelectPayment(m domain.PaymentMethod) error {
	if _, ok := m.PaymentInfo(); !ok {
		return fmt.Errorf("%w: %q", order.ErrUnknownPaymentMethod, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = m
	return nil
}

// Next advances one step. Leaving Shipping requires a valid form, leaving Payment a chosen method.
// Review is left only through PlaceOrder.
func (s *Session) Next() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepShipping:
		if errs := s.form.Validate(); errs != nil {
			s.formErrors = errs
			return s.step, &ValidationError{Fields: copyErrors(errs)}
		}
		s.formErrors = nil
		s.step = StepPayment
	case StepPayment:
		if s.method == "" {
			return s.step, ErrPaymentRequired
		}
		s.step = StepReview
	default:
		return s.step, fmt.Errorf("%w: %s is left by placing the order", ErrIllegalTransition, s.step)
	}
	return s.step, nil
}

// Back moves one step towards Shipping without validating anything.
func (s *Session) Back() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > StepShipping {
		s.step--
	}
	return s.step
}

// GoTo jumps back to an earlier (or the current) step.
func (s *Session) GoTo(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step < StepShipping || step > s.step {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, s.step, step)
	}
	s.step = step
	return nil
}

// ApplyCoupon validates code against the cart subtotal and replaces any applied coupon.
// The session is unchanged on error.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()

	available, err := s.deps.Coupons.ListCoupons(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("coupon list unavailable", zap.Error(err))
		return domain.Coupon{}, fmt.Errorf("%w: %v", ErrCouponsUnavailable, err)
	}
	lines, err := s.deps.Carts.Lines(ctx, owner)
	if err != nil {
		return domain.Coupon{}, err
	}

	c, err := s.deps.Evaluator.Apply(code, pricing.Compute(lines, nil).SubTotal, available)
	if err != nil {
		return domain.Coupon{}, err
	}

	s.mu.Lock()
	s.coupon = &c
	s.mu.Unlock()
	return c, nil
}

func (s *Session) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = nil
}

// Reset starts a fresh checkout. A placement still in flight will not touch the new state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.lastOrder = nil
}

func (s *Session) resetLocked() {
	s.generation++
	s.step = StepShipping
	s.form = domain.NewCustomerInfo()
	s.formErrors = nil
	s.method = ""
	s.coupon = nil
	s.submitError = ""
}

// PlaceOrder builds a fresh payload from the current cart and sends it to the backend.
// On success the cart is cleared and the session starts over at Shipping with LastOrder set.
// On failure the session stays at Review with SubmitError set and nothing else changed.
func (s *Session) PlaceOrder(ctx context.Context) (PlacedOrder, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return PlacedOrder{}, ErrSubmitInProgress
	}
	if s.step != StepReview {
		step := s.step
		s.mu.Unlock()
		return PlacedOrder{}, fmt.Errorf("%w: cannot place order from %s", ErrIllegalTransition, step)
	}
	if errs := s.form.Validate(); errs != nil {
		s.formErrors = errs
		s.step = StepShipping
		s.mu.Unlock()
		return PlacedOrder{}, &ValidationError{Fields: copyErrors(errs)}
	}
	s.submitting = true
	s.submitError = ""
	gen := s.generation
	owner := s.owner
	in := order.Input{
		Customer: s.form,
		Method:   s.method,
		Coupon:   copyCoupon(s.coupon),
	}
	s.mu.Unlock()

	placed, placement, err := s.submit(ctx, owner, in)

	s.mu.Lock()
	s.submitting = false
	stale := s.generation != gen
	switch {
	case stale:
	case err != nil:
		var se *SubmitError
		if errors.As(err, &se) {
			s.submitError = se.Message
		}
	default:
		s.resetLocked()
		s.lastOrder = &placed
	}
	s.mu.Unlock()

	// The backend holds the order from here on, so the follow-up writes outlive the request deadline.
	after := context.WithoutCancel(ctx)
	if stale {
		if err == nil {
			logger.FromContext(ctx).Warn("order placed for a session that was reset, keeping current state",
				zap.String("owner", owner.Key()), zap.String("order_id", placed.OrderID))
			s.record(after, placement)
		}
		return placed, ErrStaleSession
	}
	if err != nil {
		return PlacedOrder{}, err
	}

	if errClear := s.deps.Carts.Clear(after, owner); errClear != nil {
		logger.FromContext(ctx).Error("failed to clear cart after order",
			zap.String("owner", owner.Key()), zap.String("order_id", placed.OrderID), zap.Error(errClear))
	}
	s.record(after, placement)
	return placed, nil
}

func (s *Session) submit(ctx context.Context, owner domain.Owner, in order.Input) (PlacedOrder, Placement, error) {
	lines, err := s.deps.Carts.Lines(ctx, owner)
	if err != nil {
		return PlacedOrder{}, Placement{}, &SubmitError{Message: GenericSubmitMessage, Err: err}
	}
	if len(lines) == 0 {
		return PlacedOrder{}, Placement{}, &SubmitError{Message: EmptyCartMessage, Err: ErrEmptyCart}
	}
	in.Lines = lines

	snap, err := s.deps.Catalog.Snapshot(ctx)
	if err != nil {
		return PlacedOrder{}, Placement{}, &SubmitError{Message: GenericSubmitMessage, Err: err}
	}

	payload, err := s.deps.Builder.Build(in, snap)
	if err != nil {
		msg := GenericSubmitMessage
		if errors.Is(err, order.ErrEmptyCart) {
			msg = NoValidItemsMessage
		}
		logger.FromContext(ctx).Warn("order payload rejected", zap.String("owner", owner.Key()), zap.Error(err))
		return PlacedOrder{}, Placement{}, &SubmitError{Message: msg, Err: err}
	}

	created, err := s.deps.Orders.CreateOrder(ctx, payload)
	if err != nil {
		logger.FromContext(ctx).Warn("order creation failed", zap.String("owner", owner.Key()), zap.Error(err))
		return PlacedOrder{}, Placement{}, &SubmitError{Message: submitMessage(err), Err: err}
	}

	placedAt := created.CreatedAt
	if placedAt.IsZero() {
		placedAt = s.deps.Now()
	}
	placed := PlacedOrder{
		OrderID:         created.ID,
		TrackingNumbers: payload.TrackingNumbers(),
		Total:           payload.TotalAmount,
		PlacedAt:        placedAt,
	}
	placement := Placement{
		OrderID:  created.ID,
		Owner:    owner,
		Payload:  payload,
		Totals:   pricing.Compute(in.Lines, in.Coupon).Rounded(),
		PlacedAt: placedAt,
	}
	logger.FromContext(ctx).Info("order placed",
		zap.String("owner", owner.Key()),
		zap.String("order_id", created.ID),
		zap.Int("lines", len(payload.OrderInfo)),
		zap.String("total", payload.TotalAmount.String()))
	return placed, placement, nil
}

// record never fails the placement: the backend already holds the order.
func (s *Session) record(ctx context.Context, p Placement) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.Record(ctx, p); err != nil {
		logger.FromContext(ctx).Error("failed to record placed order",
			zap.String("order_id", p.OrderID), zap.Error(err))
	}
}

func (s *Session) touch(owner domain.Owner, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	s.lastSeen = now
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.submitting && s.lastSeen.Before(cutoff)
}

func fieldValues(c domain.CustomerInfo) map[string]string {
	return map[string]string{
		"firstName":  c.FirstName,
		"lastName":   c.LastName,
		"phone":      c.Phone,
		"email":      c.Email,
		"address":    c.Address,
		"city":       c.City,
		"postalCode": c.PostalCode,
		"country":    c.Country,
	}
}

func copyErrors(errs domain.FieldErrors) domain.FieldErrors {
	if len(errs) == 0 {
		return nil
	}
	out := make(domain.FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

func copyCoupon(c *domain.Coupon) *domain.Coupon {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
