// Package catalog keeps an in-memory snapshot of the product list, used to resolve cart lines
// when an order is built.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCatalogUnavailable = errors.New("product catalog unavailable")

const (
	defaultPageSize = 100
	defaultMaxPages = 50
)

type ProductSource interface {
	ListProducts(ctx context.Context, page, limit int) ([]domain.Product, error)
}

// Snapshot is an immutable id index over every product seen in one refresh.
type Snapshot struct {
	products  []domain.Product
	byID      map[string]domain.Product
	fetchedAt time.Time
}

func NewSnapshot(products []domain.Product, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		products:  make([]domain.Product, 0, len(products)),
		byID:      make(map[string]domain.Product, len(products)),
		fetchedAt: fetchedAt,
	}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := s.byID[p.ID]; dup {
			continue
		}
		s.byID[p.ID] = p
		s.products = append(s.products, p)
	}
	return s
}

func (s *Snapshot) Lookup(productID string) (domain.Product, bool) {
	p, ok := s.byID[productID]
	return p, ok
}

func (s *Snapshot) Products() []domain.Product {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *Snapshot) Len() int {
	return len(s.products)
}

type Catalog struct {
	src      ProductSource
	ttl      time.Duration
	pageSize int
	maxPages int
	now      func() time.Time

	mu      sync.RWMutex
	current *Snapshot
	sfg     singleflight.Group
}

func New(src ProductSource, ttl time.Duration) *Catalog {
	return &Catalog{src: src, ttl: ttl, pageSize: defaultPageSize, maxPages: defaultMaxPages, now: time.Now}
}

// WithMaxPages bounds the pages fetched per refresh; n <= 0 keeps the default.
func (c *Catalog) WithMaxPages(n int) *Catalog {
	if n > 0 {
		c.maxPages = n
	}
	return c
}

// Snapshot returns the cached snapshot while it is fresh and refreshes it otherwise.
// A failed refresh falls back to the stale snapshot when there is one.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur != nil && c.now().Sub(cur.fetchedAt) < c.ttl {
		return cur, nil
	}

	v, err, _ := c.sfg.Do("snapshot", func() (interface{}, error) {
		products, err := c.fetchAll(ctx)
		if err != nil {
			return nil, err
		}
		snap := NewSnapshot(products, c.now())
		c.mu.Lock()
		c.current = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		if cur != nil {
			logger.FromContext(ctx).Warn("catalog refresh failed, serving stale snapshot",
				zap.Error(err), zap.Time("fetched_at", cur.fetchedAt))
			return cur, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return v.(*Snapshot), nil
}

// Page passes a single catalog page through from the backend.
func (c *Catalog) Page(ctx context.Context, page, limit int) ([]domain.Product, error) {
	products, err := c.src.ListProducts(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return products, nil
}

func (c *Catalog) fetchAll(ctx context.Context) ([]domain.Product, error) {
	var all []domain.Product
	for page := 1; page <= c.maxPages; page++ {
		products, err := c.src.ListProducts(ctx, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, products...)
		if len(products) < c.pageSize {
			return all, nil
		}
	}
	logger.FromContext(ctx).Warn("catalog page cap reached, products beyond it cannot be ordered",
		zap.Int("max_pages", c.maxPages), zap.Int("page_size", c.pageSize), zap.Int("products", len(all)))
	return all, nil
}
