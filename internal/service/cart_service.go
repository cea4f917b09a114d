package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	store cache.CartStore
	repo  repository.CartRepository // nil when there is no durable store
	sfg   singleflight.Group        // Prevents cache stampede

	mu    sync.Mutex
	locks map[string]*ownerLock
}

// ownerLock is dropped from the map once no caller holds or waits on it.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func NewCartService(store cache.CartStore, repo repository.CartRepository) *CartService {
	return &CartService{
		store: store,
		repo:  repo,
		locks: make(map[string]*ownerLock),
	}
}

// Lines returns the owner's current cart lines.
func (s *CartService) Lines(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return c.Lines(), nil
}

func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, line domain.CartLine) ([]domain.CartLine, error) {
	return s.mutate(ctx, owner, func(c *cart.Cart) bool {
		c.AddItem(line)
		return true
	})
}

// UpdateQuantity reports changed=false when the line is absent or quantity < 1; nothing is persisted then.
func (s *CartService) UpdateQuantity(ctx context.Context, owner domain.Owner, key domain.LineKey, quantity int) ([]domain.CartLine, bool, error) {
	changed := false
	lines, err := s.mutate(ctx, owner, func(c *cart.Cart) bool {
		changed = c.UpdateQuantity(key, quantity)
		return changed
	})
	return lines, changed, err
}

func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, key domain.LineKey) ([]domain.CartLine, bool, error) {
	removed := false
	lines, err := s.mutate(ctx, owner, func(c *cart.Cart) bool {
		removed = c.RemoveItem(key)
		return removed
	})
	return lines, removed, err
}

func (s *CartService) Clear(ctx context.Context, owner domain.Owner) error {
	_, err := s.mutate(ctx, owner, func(c *cart.Cart) bool {
		c.Clear()
		return true
	})
	return err
}

func (s *CartService) mutate(ctx context.Context, owner domain.Owner, apply func(*cart.Cart) bool) ([]domain.CartLine, error) {
	unlock := s.lockOwner(owner.Key())
	defer unlock()

	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !apply(c) {
		return c.Lines(), nil
	}
	lines := c.Lines()
	if err := s.persist(ctx, owner, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *CartService) load(ctx context.Context, owner domain.Owner) (*cart.Cart, error) {
	key := owner.Key()
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		lines, err := s.store.Get(ctx, key)
		if err == nil {
			return lines, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("cart store get failed", zap.String("owner", key), zap.Error(err))
		}

		if !owner.SignedIn() || s.repo == nil {
			return []domain.CartLine(nil), nil
		}

		lines, errGet := s.repo.GetCart(ctx, owner.CustomerID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return []domain.CartLine(nil), nil
		}
		if errGet != nil {
			logger.FromContext(ctx).Error("cart repository get failed", zap.String("owner", key), zap.Error(errGet))
			return nil, errGet
		}

		if errSet := s.store.Set(ctx, key, lines); errSet != nil {
			logger.FromContext(ctx).Warn("cart store set failed", zap.String("owner", key), zap.Error(errSet))
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return cart.New(v.([]domain.CartLine)), nil
}

// persist writes the repository first for signed-in owners; for guests the store is the only copy.
func (s *CartService) persist(ctx context.Context, owner domain.Owner, lines []domain.CartLine) error {
	key := owner.Key()
	if owner.SignedIn() && s.repo != nil {
		if err := s.repo.SaveCart(ctx, owner.CustomerID, lines); err != nil {
			logger.FromContext(ctx).Error("cart repository save failed", zap.String("owner", key), zap.Error(err))
			return err
		}
		if err := s.store.Set(ctx, key, lines); err != nil {
			logger.FromContext(ctx).Warn("cart store set failed, invalidating", zap.String("owner", key), zap.Error(err))
			s.invalidate(ctx, key)
		}
		return nil
	}

	if err := s.store.Set(ctx, key, lines); err != nil {
		logger.FromContext(ctx).Error("cart store set failed", zap.String("owner", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) invalidate(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.FromContext(ctx).Warn("cart store invalidate failed", zap.String("owner", key), zap.Error(err))
	}
}

func (s *CartService) lockOwner(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &ownerLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
