package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxQuantity = 99

type CartService interface {
	Lines(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error)
	AddItem(ctx context.Context, owner domain.Owner, line domain.CartLine) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, owner domain.Owner, key domain.LineKey, quantity int) ([]domain.CartLine, bool, error)
	RemoveItem(ctx context.Context, owner domain.Owner, key domain.LineKey) ([]domain.CartLine, bool, error)
	Clear(ctx context.Context, owner domain.Owner) error
}

type SnapshotSource interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type CartHandler struct {
	carts    CartService
	products SnapshotSource
	timeout  time.Duration
}

func NewCartHandler(carts CartService, products SnapshotSource, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	domain.CartLine
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartResponseDTO struct {
	Lines    []CartLineDTO   `json:"lines"`
	Count    int             `json:"count"`
	SubTotal decimal.Decimal `json:"subTotal"`
}

func cartResponse(lines []domain.CartLine) CartResponseDTO {
	c := cart.New(lines)
	resp := CartResponseDTO{
		Lines:    make([]CartLineDTO, 0, c.Len()),
		Count:    c.Count(),
		SubTotal: domain.RoundMoney(c.Subtotal()),
	}
	for _, l := range c.Lines() {
		resp.Lines = append(resp.Lines, CartLineDTO{CartLine: l, LineTotal: domain.RoundMoney(l.LineTotal())})
	}
	return resp
}

// lineKey reads the line identity from the {product_id} path segment and the size/color query.
func lineKey(r *http.Request) (domain.LineKey, bool) {
	productID := strings.TrimSpace(chi.URLParam(r, "product_id"))
	if productID == "" {
		return domain.LineKey{}, false
	}
	q := r.URL.Query()
	return domain.LineKey{
		ProductID: productID,
		Variant:   domain.Variant{Size: q.Get("size"), Color: q.Get("color")},
	}, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, _ := ownerFromContext(ctx)
	lines, err := h.carts.Lines(ctx, owner)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(lines))
}

// AddItem prices the line from the catalog; the client only names the product and variant.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	snap, err := h.products.Snapshot(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	p, ok := snap.Lookup(req.ProductID)
	if !ok {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}

	owner, _ := ownerFromContext(ctx)
	lines, err := h.carts.AddItem(ctx, owner, domain.CartLine{
		ProductID:    p.ID,
		ProductName:  p.Description.Name,
		ProductImage: p.FeaturedImg,
		UnitPrice:    p.EffectivePrice(),
		Quantity:     req.Quantity,
		Variant:      domain.Variant{Size: strings.TrimSpace(req.Size), Color: strings.TrimSpace(req.Color)},
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(lines))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := lineKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	owner, _ := ownerFromContext(ctx)
	lines, found, err := h.carts.UpdateQuantity(ctx, owner, key, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "line_not_found", "item is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(lines))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := lineKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	owner, _ := ownerFromContext(ctx)
	lines, found, err := h.carts.RemoveItem(ctx, owner, key)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "line_not_found", "item is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(lines))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner, _ := ownerFromContext(ctx)
	if err := h.carts.Clear(ctx, owner); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(nil))
}
