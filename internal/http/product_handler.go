package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

const defaultPageSize = 20

type ProductCatalog interface {
	SnapshotSource
	Page(ctx context.Context, page, limit int) ([]domain.Product, error)
}

type SettingsSource interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

type ProductHandler struct {
	catalog  ProductCatalog
	settings SettingsSource
	timeout  time.Duration
	now      func() time.Time
}

func NewProductHandler(c ProductCatalog, settings SettingsSource, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog:  c,
		settings: settings,
		timeout:  timeout,
		now:      time.Now,
	}
}

type ProductListDTO struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Filter   catalog.Filter   `json:"filter,omitempty"`
}

// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	limit, err := positiveParam(q.Get("limit"), defaultPageSize)
	if err != nil || limit > 100 {
		respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
		return
	}
	filter := catalog.Filter(q.Get("filter"))
	if !filter.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_filter", "filter must be one of discount, deal, reviews")
		return
	}

	resp := ProductListDTO{Page: page, Limit: limit, Filter: filter}
	if filter == catalog.FilterNone {
		resp.Products, err = h.catalog.Page(ctx, page, limit)
	} else {
		var snap *catalog.Snapshot
		snap, err = h.catalog.Snapshot(ctx)
		if err == nil {
			resp.Products = catalog.Apply(snap.Products(), filter, h.now())
		}
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	if resp.Products == nil {
		resp.Products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /api/v1/settings
func (h *ProductHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.settings.GetSettings(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func positiveParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
