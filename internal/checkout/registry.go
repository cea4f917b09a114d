package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

// ProfileSource prefills the shipping form of signed-in customers.
type ProfileSource interface {
	ShippingForm(ctx context.Context, customerID string) (domain.CustomerInfo, error)
}

// Registry hands out one Session per owner, creating it on first use.
type Registry struct {
	deps     *Deps
	profiles ProfileSource

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry; profiles may be nil.
func NewRegistry(deps *Deps, profiles ProfileSource) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		deps:     deps,
		profiles: profiles,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Session(ctx context.Context, owner domain.Owner) *Session {
	key := owner.Key()

	r.mu.Lock()
	s, ok := r.sessions[key]
	r.mu.Unlock()
	if ok {
		s.touch(owner, r.deps.Now())
		return s
	}

	form := r.prefill(ctx, owner)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.touch(owner, r.deps.Now())
		return s
	}
	s = NewSession(r.deps, owner, form)
	r.sessions[key] = s
	return s
}

// Sweep drops sessions idle for longer than maxIdle, except those placing an order.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.deps.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, key)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// prefill treats any profile error as "no saved data".
func (r *Registry) prefill(ctx context.Context, owner domain.Owner) domain.CustomerInfo {
	form := domain.NewCustomerInfo()
	if !owner.SignedIn() {
		return form
	}
	form.Email = owner.Email
	if r.profiles == nil {
		return form
	}
	saved, err := r.profiles.ShippingForm(ctx, owner.CustomerID)
	if err != nil {
		logger.FromContext(ctx).Debug("no saved customer data", zap.String("customer_id", owner.CustomerID), zap.Error(err))
		return form
	}
	if saved.Email == "" {
		saved.Email = owner.Email
	}
	if saved.Country == "" {
		saved.Country = domain.DefaultCountry
	}
	return saved
}
