package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"github.com/go-chi/chi/v5"
)

type OrderHistory interface {
	ListCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error)
}

type ReceiptFinder interface {
	FindByTracking(ctx context.Context, tracking string) (*receipts.Receipt, error)
}

type OrdersHandler struct {
	history  OrderHistory
	receipts ReceiptFinder
	timeout  time.Duration
}

func NewOrdersHandler(history OrderHistory, finder ReceiptFinder, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		history:  history,
		receipts: finder,
		timeout:  timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, _ := ownerFromContext(ctx)
	if !owner.SignedIn() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.history.ListCustomerOrders(ctx, owner.CustomerID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	summaries := make([]order.Summary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, order.Summarize(o))
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GET /api/v1/orders/track/{tracking}
func (h *OrdersHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tracking := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "tracking")))
	if !order.ValidTracking(tracking) {
		respondError(w, http.StatusBadRequest, "invalid_tracking_number", "tracking number must look like TRK-XXXXXXXX")
		return
	}

	rc, err := h.receipts.FindByTracking(ctx, tracking)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rc)
}
