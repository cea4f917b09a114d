package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type fakeCarts struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine
	err   error

	// honorCtx makes Clear fail once ctx is done, like a network-backed store.
	honorCtx bool
	// clearing and release, when set, hold Clear until the test lets it go.
	clearing chan struct{}
	release  chan struct{}
}

func (f *fakeCarts) Lines(_ context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.CartLine, len(f.lines[owner.Key()]))
	copy(out, f.lines[owner.Key()])
	return out, nil
}

func (f *fakeCarts) Clear(ctx context.Context, owner domain.Owner) error {
	if f.clearing != nil {
		f.clearing <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, owner.Key())
	return nil
}

func (f *fakeCarts) count(owner domain.Owner) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines[owner.Key()])
}

type fakeCoupons struct {
	coupons []domain.Coupon
	err     error
}

func (f *fakeCoupons) ListCoupons(context.Context) ([]domain.Coupon, error) {
	return f.coupons, f.err
}

type fakeCatalog struct {
	products []domain.Product
	err      error
}

func (f *fakeCatalog) Snapshot(context.Context) (*catalog.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return catalog.NewSnapshot(f.products, time.Now()), nil
}

type fakeOrders struct {
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
	err      error
	mu       sync.Mutex
	payloads []*domain.OrderPayload
	// accepted runs after the order is accepted, before CreateOrder returns.
	accepted func()
}

func (f *fakeOrders) CreateOrder(_ context.Context, p *domain.OrderPayload) (domain.CreatedOrder, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return domain.CreatedOrder{}, f.err
	}
	if f.accepted != nil {
		f.accepted()
	}
	return domain.CreatedOrder{ID: "ord-" + string(rune('0'+n)), CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}, nil
}

type fakeRecorder struct {
	mu         sync.Mutex
	placements []Placement
	err        error
	honorCtx   bool
}

func (f *fakeRecorder) Record(ctx context.Context, p Placement) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placements = append(f.placements, p)
	return f.err
}

type fakeProfiles struct {
	form domain.CustomerInfo
	err  error
}

func (f *fakeProfiles) ShippingForm(context.Context, string) (domain.CustomerInfo, error) {
	return f.form, f.err
}

// serverError mimics a backend error carrying a shopper-facing message.
type serverError struct {
	msg string
}

func (e *serverError) Error() string         { return "backend returned 400: " + e.msg }
func (e *serverError) ServerMessage() string { return e.msg }

var errNetwork = errors.New("connection reset")
