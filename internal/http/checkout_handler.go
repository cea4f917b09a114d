package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type SessionRegistry interface {
	Session(ctx context.Context, owner domain.Owner) *checkout.Session
}

type CheckoutHandler struct {
	sessions SessionRegistry
	timeout  time.Duration
}

func NewCheckoutHandler(sessions SessionRegistry, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

type PaymentRequestDTO struct {
	Method domain.PaymentMethod `json:"method"`
}

type StepRequestDTO struct {
	Step string `json:"step"`
}

type CouponRequestDTO struct {
	Code string `json:"code"`
}

type CouponResponseDTO struct {
	Coupon domain.Coupon       `json:"coupon"`
	Totals domain.PricedTotals `json:"totals"`
}

func (h *CheckoutHandler) session(ctx context.Context) *checkout.Session {
	owner, _ := ownerFromContext(ctx)
	return h.sessions.Session(ctx, owner)
}

// respondView answers with the session's current view.
func (h *CheckoutHandler) respondView(w http.ResponseWriter, r *http.Request, s *checkout.Session, status int) {
	v, err := s.Snapshot(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, status, v)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	h.respondView(w, r, h.session(ctx), http.StatusOK)
}

// PUT /api/v1/checkout/shipping
func (h *CheckoutHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	var form domain.CustomerInfo
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.session(ctx)
	s.UpdateShipping(form)
	h.respondView(w, r, s, http.StatusOK)
}

// PUT /api/v1/checkout/payment
func (h *CheckoutHandler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	var req PaymentRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.session(ctx)
	if err := s.SelectPayment(req.Method); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK)
}

// POST /api/v1/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	s := h.session(ctx)
	if _, err := s.Next(); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK)
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	s := h.session(ctx)
	s.Back()
	h.respondView(w, r, s, http.StatusOK)
}

// PUT /api/v1/checkout/step jumps back to an earlier step.
func (h *CheckoutHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	var req StepRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	step, err := checkout.ParseStep(req.Step)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_step", err.Error())
		return
	}

	s := h.session(ctx)
	if err := s.GoTo(step); err != nil {
		handleError(w, r, err)
		return
	}
	h.respondView(w, r, s, http.StatusOK)
}

// POST /api/v1/checkout/coupon
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	var req CouponRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.session(ctx)
	c, err := s.ApplyCoupon(ctx, req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	totals, err := s.Totals(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CouponResponseDTO{Coupon: c, Totals: totals.Rounded()})
}

// DELETE /api/v1/checkout/coupon
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	s := h.session(ctx)
	s.RemoveCoupon()
	h.respondView(w, r, s, http.StatusOK)
}

// DELETE /api/v1/checkout starts the checkout over.
func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	s := h.session(ctx)
	s.Reset()
	h.respondView(w, r, s, http.StatusOK)
}

// POST /api/v1/checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	r = r.WithContext(ctx)

	placed, err := h.session(ctx).PlaceOrder(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, placed)
}
