package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleError converts domain and upstream errors into HTTP answers.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *checkout.ValidationError
		submit     *checkout.SubmitError
		below      *coupon.BelowMinimumError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  validation.Error(),
			Code:   "invalid_shipping",
			Fields: validation.Fields,
		})
	case errors.Is(err, checkout.ErrSubmitInProgress):
		respondError(w, http.StatusConflict, "submit_in_progress", err.Error())
	case errors.Is(err, checkout.ErrStaleSession):
		respondError(w, http.StatusConflict, "stale_session", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrPaymentRequired):
		respondError(w, http.StatusUnprocessableEntity, "payment_required", err.Error())
	case errors.Is(err, order.ErrUnknownPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	case errors.As(err, &submit):
		respondSubmitError(w, r, submit)
	case errors.As(err, &below):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   below.Error(),
			Code:    "coupon_below_minimum",
			Details: below.Shortfall.StringFixed(2),
		})
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, "coupon_not_found", "Invalid coupon code")
	case errors.Is(err, coupon.ErrExpired):
		respondError(w, http.StatusUnprocessableEntity, "coupon_expired", "This coupon has expired")
	case errors.Is(err, checkout.ErrCouponsUnavailable), errors.Is(err, catalog.ErrCatalogUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, receipts.ErrReceiptNotFound), errors.Is(err, backend.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "not found")
	default:
		respondUpstreamError(w, r, err)
	}
}

// respondSubmitError always shows the shopper the submit message, never the wrapped cause.
func respondSubmitError(w http.ResponseWriter, r *http.Request, se *checkout.SubmitError) {
	status, code := http.StatusInternalServerError, "order_failed"
	switch {
	case errors.Is(se, checkout.ErrEmptyCart), errors.Is(se, order.ErrEmptyCart):
		status, code = http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(se, order.ErrIncompleteCustomer):
		status, code = http.StatusUnprocessableEntity, "invalid_shipping"
	case errors.Is(se, backend.ErrUnavailable), errors.Is(se, catalog.ErrCatalogUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(se, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		var apiErr *backend.APIError
		if errors.As(se, &apiErr) {
			status, code = http.StatusUnprocessableEntity, "order_rejected"
		}
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("order placement failed", zap.Error(se))
	}
	respondError(w, status, code, se.Message)
}

func respondUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream request timed out")
	case errors.Is(err, backend.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "backend unavailable")
	case errors.Is(err, backend.ErrMalformedResponse):
		logger.FromContext(r.Context()).Error("malformed backend response", zap.Error(err))
		respondError(w, http.StatusBadGateway, "bad_gateway", "unexpected backend response")
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "upstream_error", apiErr.ServerMessage())
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
