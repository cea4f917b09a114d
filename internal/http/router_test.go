package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	products []domain.Product
	err      error
}

func (f *fakeCatalog) Snapshot(context.Context) (*catalog.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return catalog.NewSnapshot(f.products, now), nil
}

func (f *fakeCatalog) Page(_ context.Context, page, limit int) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	start := (page - 1) * limit
	if start >= len(f.products) {
		return nil, nil
	}
	end := min(start+limit, len(f.products))
	return f.products[start:end], nil
}

type fakeBackend struct {
	mu       sync.Mutex
	coupons  []domain.Coupon
	orderErr error
	created  []*domain.OrderPayload
	orders   map[string][]domain.Order
	settings domain.Settings
	asked    []string
}

func (f *fakeBackend) ListCoupons(context.Context) ([]domain.Coupon, error) {
	return f.coupons, nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, p *domain.OrderPayload) (domain.CreatedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return domain.CreatedOrder{}, f.orderErr
	}
	f.created = append(f.created, p)
	return domain.CreatedOrder{ID: fmt.Sprintf("order-%d", len(f.created)), CreatedAt: now}, nil
}

func (f *fakeBackend) ListCustomerOrders(_ context.Context, customerID string) ([]domain.Order, error) {
	f.asked = append(f.asked, customerID)
	return f.orders[customerID], nil
}

func (f *fakeBackend) GetSettings(context.Context) (domain.Settings, error) {
	return f.settings, nil
}

type fakeReceipts struct {
	receipts map[string]*receipts.Receipt
}

func (f *fakeReceipts) FindByTracking(_ context.Context, tracking string) (*receipts.Receipt, error) {
	if rc, ok := f.receipts[tracking]; ok {
		return rc, nil
	}
	return nil, receipts.ErrReceiptNotFound
}

type sequenceTokens struct {
	n int
}

func (s *sequenceTokens) Next() string {
	s.n++
	return fmt.Sprintf("TRK-%08d", s.n)
}

type testEnv struct {
	handler  http.Handler
	backend  *fakeBackend
	catalog  *fakeCatalog
	receipts *fakeReceipts
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestEnv(t *testing.T) *testEnv {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	carts := service.NewCartService(cache.NewRedisCartStore(client, time.Hour), nil)

	sale := price(40)
	cat := &fakeCatalog{products: []domain.Product{
		{ID: "P1", Description: domain.ProductDescription{Name: "Lamp"}, FeaturedImg: "lamp.png",
			ProductInfo: domain.ProductPricing{Price: price(100)}, CreatedAt: now},
		{ID: "P2", Description: domain.ProductDescription{Name: "Rug"},
			ProductInfo: domain.ProductPricing{Price: price(50), SalePrice: &sale}, CreatedAt: now.Add(-48 * time.Hour)},
	}}
	be := &fakeBackend{
		coupons: []domain.Coupon{
			{Code: "SAVE10", Type: domain.CouponPercentage, DiscountAmount: price(10),
				MinimumPurchaseAmount: price(50), IsApproved: true, ExpireDate: now.Add(24 * time.Hour)},
			{Code: "BIG", Type: domain.CouponFixed, DiscountAmount: price(100),
				MinimumPurchaseAmount: price(1000), IsApproved: true},
		},
		orders: map[string][]domain.Order{},
	}
	rcpts := &fakeReceipts{receipts: map[string]*receipts.Receipt{}}

	builder, err := order.NewBuilder(&sequenceTokens{}, order.DefaultCommissionRate)
	require.NoError(t, err)
	registry := checkout.NewRegistry(&checkout.Deps{
		Carts:     carts,
		Coupons:   be,
		Catalog:   cat,
		Orders:    be,
		Builder:   builder,
		Evaluator: coupon.NewEvaluatorWithClock(func() time.Time { return now }),
		Now:       func() time.Time { return now },
	}, nil)

	products := NewProductHandler(cat, be, 5*time.Second)
	products.now = func() time.Time { return now }

	h := NewRouter(RouterConfig{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		Validator:          NewTokenValidator(testSecret),
	}, Handlers{
		Cart:     NewCartHandler(carts, cat, 5*time.Second),
		Checkout: NewCheckoutHandler(registry, 5*time.Second),
		Products: products,
		Orders:   NewOrdersHandler(be, rcpts, 5*time.Second),
	})
	return &testEnv{handler: h, backend: be, catalog: cat, receipts: rcpts}
}

// client keeps the guest session id between calls.
type client struct {
	t       *testing.T
	env     *testEnv
	session string
	token   string
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e, session: uuid.NewString()}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func signToken(t *testing.T, subject, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: email,
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type viewDTO struct {
	Step          string                `json:"step"`
	NextAction    string                `json:"nextAction"`
	Form          domain.CustomerInfo   `json:"form"`
	FormErrors    map[string]string     `json:"formErrors"`
	PaymentMethod string                `json:"paymentMethod"`
	Coupon        *domain.Coupon        `json:"coupon"`
	Lines         []domain.CartLine     `json:"lines"`
	Totals        domain.PricedTotals   `json:"totals"`
	SubmitError   string                `json:"submitError"`
	LastOrder     *checkout.PlacedOrder `json:"lastOrder"`
}

func validForm() domain.CustomerInfo {
	return domain.CustomerInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "01700000000",
		Email:     "ada@example.com",
		Address:   "12 Lake Road",
		City:      "Dhaka",
		Country:   "Bangladesh",
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOwnerMiddleware_IssuesGuestSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.session = ""

	rec := c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	issued := rec.Header().Get(SessionHeader)
	_, err := uuid.Parse(issued)
	require.NoError(t, err)

	// the issued id finds the same cart again
	c.session = issued
	rec = c.do(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, issued, rec.Header().Get(SessionHeader))
	assert.Equal(t, 1, decode[CartResponseDTO](t, rec).Count)

	// a different session sees an empty cart
	other := env.client(t)
	rec = other.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 0, decode[CartResponseDTO](t, rec).Count)
}

func TestOwnerMiddleware_RejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	c.token = "not-a-jwt"
	rec := c.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "c-1"})
	c.token, _ = other.SignedString([]byte("someone-else"))
	rec = c.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Code)
}

func TestCart_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1", Quantity: 2, Size: "L"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cart := decode[CartResponseDTO](t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Lamp", cart.Lines[0].ProductName)
	assert.Equal(t, "lamp.png", cart.Lines[0].ProductImage)
	assert.True(t, price(200).Equal(cart.Lines[0].LineTotal))
	assert.True(t, price(200).Equal(cart.SubTotal))

	// sale price wins
	rec = c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P2"})
	cart = decode[CartResponseDTO](t, rec)
	assert.Equal(t, 3, cart.Count)
	assert.True(t, price(240).Equal(cart.SubTotal))

	rec = c.do(http.MethodPut, "/api/v1/cart/items/P1?size=L", UpdateQuantityRequestDTO{Quantity: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, price(540).Equal(decode[CartResponseDTO](t, rec).SubTotal))

	// same product, other variant: not in the cart
	rec = c.do(http.MethodPut, "/api/v1/cart/items/P1?size=M", UpdateQuantityRequestDTO{Quantity: 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/cart/items/P1?size=L", UpdateQuantityRequestDTO{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodDelete, "/api/v1/cart/items/P2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[CartResponseDTO](t, rec).Count)

	rec = c.do(http.MethodDelete, "/api/v1/cart/items/P2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)
}

func TestCart_AddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "NOPE"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1", Quantity: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "P1", "unitPrice": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "clients cannot set prices")

	env.catalog.err = catalog.ErrCatalogUnavailable
	rec = c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckout_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1", Quantity: 2}).Code)

	rec := c.do(http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[viewDTO](t, rec)
	assert.Equal(t, "shipping", v.Step)
	assert.Equal(t, "Continue to Payment", v.NextAction)
	assert.Equal(t, domain.DefaultCountry, v.Form.Country)
	assert.True(t, price(200).Equal(v.Totals.Total))

	rec = c.do(http.MethodPut, "/api/v1/checkout/shipping", validForm())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment", decode[viewDTO](t, rec).Step)

	rec = c.do(http.MethodPost, "/api/v1/checkout/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "payment_required", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodPut, "/api/v1/checkout/payment", PaymentRequestDTO{Method: domain.PaymentCOD})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review", decode[viewDTO](t, rec).Step)

	rec = c.do(http.MethodPost, "/api/v1/checkout/coupon", CouponRequestDTO{Code: "save10"})
	require.Equal(t, http.StatusOK, rec.Code)
	applied := decode[CouponResponseDTO](t, rec)
	assert.Equal(t, "SAVE10", applied.Coupon.Code)
	assert.True(t, price(20).Equal(applied.Totals.Discount))
	assert.True(t, price(180).Equal(applied.Totals.Total))

	rec = c.do(http.MethodPost, "/api/v1/checkout/place-order", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[checkout.PlacedOrder](t, rec)
	assert.Equal(t, "order-1", placed.OrderID)
	assert.Equal(t, []string{"TRK-00000001"}, placed.TrackingNumbers)
	assert.True(t, price(180).Equal(placed.Total))

	require.Len(t, env.backend.created, 1)
	payload := env.backend.created[0]
	assert.Equal(t, domain.PaymentInfoCashOn, payload.PaymentInfo)
	assert.Equal(t, "Ada", payload.CustomerInfo.FirstName)

	// the cart is cleared and checkout starts over
	rec = c.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 0, decode[CartResponseDTO](t, rec).Count)

	rec = c.do(http.MethodGet, "/api/v1/checkout", nil)
	v = decode[viewDTO](t, rec)
	assert.Equal(t, "shipping", v.Step)
	assert.Nil(t, v.Coupon)
	require.NotNil(t, v.LastOrder)
	assert.Equal(t, "order-1", v.LastOrder.OrderID)
}

func TestCheckout_InvalidShipping(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodPut, "/api/v1/checkout/shipping", domain.CustomerInfo{FirstName: "Ada", Email: "nope"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_shipping", resp.Code)
	assert.Equal(t, "Last name is required", resp.Fields["lastName"])
	assert.Equal(t, "Email is invalid", resp.Fields["email"])
	assert.NotContains(t, resp.Fields, "firstName")

	rec = c.do(http.MethodGet, "/api/v1/checkout", nil)
	v := decode[viewDTO](t, rec)
	assert.Equal(t, "shipping", v.Step)
	assert.Contains(t, v.FormErrors, "phone")
}

func TestCheckout_IllegalTransitions(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodPost, "/api/v1/checkout/place-order", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodPut, "/api/v1/checkout/step", StepRequestDTO{Step: "review"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/checkout/step", StepRequestDTO{Step: "elsewhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/checkout/payment", PaymentRequestDTO{Method: "barter"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/checkout/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shipping", decode[viewDTO](t, rec).Step)
}

// reachReview walks a fresh session to the Review step with one lamp in the cart.
func reachReview(t *testing.T, c *client) {
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1"}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/v1/checkout/shipping", validForm()).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/checkout/next", nil).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/v1/checkout/payment", PaymentRequestDTO{Method: domain.PaymentBkash}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/checkout/next", nil).Code)
}

func TestCheckout_Coupons(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	reachReview(t, c)

	rec := c.do(http.MethodPost, "/api/v1/checkout/coupon", CouponRequestDTO{Code: "BIG"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "coupon_below_minimum", resp.Code)
	assert.Equal(t, "900.00", resp.Details)

	rec = c.do(http.MethodPost, "/api/v1/checkout/coupon", CouponRequestDTO{Code: "NOPE"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "coupon_not_found", decode[ErrorResponse](t, rec).Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/checkout/coupon", CouponRequestDTO{Code: "SAVE10"}).Code)
	rec = c.do(http.MethodDelete, "/api/v1/checkout/coupon", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[viewDTO](t, rec)
	assert.Nil(t, v.Coupon)
	assert.True(t, price(100).Equal(v.Totals.Total))
}

func TestCheckout_BackendRejectsOrder(t *testing.T) {
	env := newTestEnv(t)
	env.backend.orderErr = &backend.APIError{Status: http.StatusBadRequest, Message: "Product out of stock"}
	c := env.client(t)
	reachReview(t, c)

	rec := c.do(http.MethodPost, "/api/v1/checkout/place-order", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "order_rejected", resp.Code)
	assert.Equal(t, "Product out of stock", resp.Error)

	rec = c.do(http.MethodGet, "/api/v1/checkout", nil)
	v := decode[viewDTO](t, rec)
	assert.Equal(t, "review", v.Step)
	assert.Equal(t, "Product out of stock", v.SubmitError)
	assert.Len(t, v.Lines, 1, "cart is kept")
}

func TestCheckout_BackendUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.backend.orderErr = fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
	c := env.client(t)
	reachReview(t, c)

	rec := c.do(http.MethodPost, "/api/v1/checkout/place-order", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, checkout.GenericSubmitMessage, decode[ErrorResponse](t, rec).Error)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	reachReview(t, c)
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/v1/cart", nil).Code)

	rec := c.do(http.MethodPost, "/api/v1/checkout/place-order", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "empty_cart", resp.Code)
	assert.Equal(t, checkout.EmptyCartMessage, resp.Error)
}

func TestCheckout_SignedInAndGuestAreSeparate(t *testing.T) {
	env := newTestEnv(t)
	guest := env.client(t)
	user := env.client(t)
	user.session = guest.session
	user.token = signToken(t, "c-1", "ada@example.com")

	require.Equal(t, http.StatusCreated, guest.do(http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "P1"}).Code)

	rec := user.do(http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[CartResponseDTO](t, rec).Count)

	rec = user.do(http.MethodGet, "/api/v1/checkout", nil)
	assert.Equal(t, "ada@example.com", decode[viewDTO](t, rec).Form.Email)
}

func TestOrders_History(t *testing.T) {
	env := newTestEnv(t)
	env.backend.orders["c-1"] = []domain.Order{{
		ID: "o-1",
		OrderInfo: []domain.OrderLine{
			{TrackingNumber: "TRK-AAAAAAAA", Status: domain.OrderStatusCompleted},
			{TrackingNumber: "TRK-BBBBBBBB", Status: domain.OrderStatusCompleted},
		},
		CustomerInfo: domain.CustomerRef{Ref: "c-1"},
		TotalAmount:  domain.OrderAmount{Value: decimal.RequireFromString("180.5")},
		CreatedAt:    now,
	}}

	guest := env.client(t)
	rec := guest.do(http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := env.client(t)
	user.token = signToken(t, "c-1", "")
	rec = user.do(http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summaries := decode[[]order.Summary](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Delivered", summaries[0].Status)
	assert.Equal(t, 2, summaries[0].Items)
	assert.Equal(t, "TRK-AAAAAAAA", summaries[0].TrackingNumber)
	assert.Equal(t, "2026-05-10", summaries[0].PlacedOn)
	assert.Equal(t, []string{"c-1"}, env.backend.asked)
}

func TestOrders_Track(t *testing.T) {
	env := newTestEnv(t)
	env.receipts.receipts["TRK-ABCD1234"] = &receipts.Receipt{
		OrderID: "o-1",
		Total:   price(100),
		Lines:   []receipts.Line{{TrackingNumber: "TRK-ABCD1234", Status: domain.OrderStatusProcessing}},
	}
	c := env.client(t)

	rec := c.do(http.MethodGet, "/api/v1/orders/track/trk-abcd1234", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rc := decode[receipts.Receipt](t, rec)
	assert.Equal(t, "o-1", rc.OrderID)
	assert.Equal(t, domain.OrderStatusProcessing, rc.Lines[0].Status)

	rec = c.do(http.MethodGet, "/api/v1/orders/track/TRK-ZZZZ9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/orders/track/12345", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	rec := c.do(http.MethodGet, "/api/v1/products?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ProductListDTO](t, rec)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "P1", list.Products[0].ID)

	rec = c.do(http.MethodGet, "/api/v1/products?filter=discount", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[ProductListDTO](t, rec)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "P2", list.Products[0].ID)

	rec = c.do(http.MethodGet, "/api/v1/products?page=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ProductListDTO](t, rec).Products)

	for _, q := range []string{"filter=cheap", "page=0", "limit=abc", "limit=500"} {
		rec = c.do(http.MethodGet, "/api/v1/products?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	env.backend.settings = domain.Settings{ReturnPolicy: domain.PolicyInfo{Title: "Returns"}}

	rec := env.client(t).do(http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Returns", decode[domain.Settings](t, rec).ReturnPolicy.Title)
}

func TestHandleError_Upstream(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: dial tcp", backend.ErrUnavailable), http.StatusServiceUnavailable, "service_unavailable"},
		{&backend.APIError{Status: http.StatusBadGateway}, http.StatusServiceUnavailable, "service_unavailable"},
		{&backend.APIError{Status: http.StatusBadRequest, Message: "bad page"}, http.StatusBadGateway, "upstream_error"},
		{&backend.APIError{Status: http.StatusNotFound}, http.StatusNotFound, "not_found"},
		{backend.ErrMalformedResponse, http.StatusBadGateway, "bad_gateway"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{checkout.ErrSubmitInProgress, http.StatusConflict, "submit_in_progress"},
		{checkout.ErrStaleSession, http.StatusConflict, "stale_session"},
		{fmt.Errorf("%w: x", checkout.ErrCouponsUnavailable), http.StatusServiceUnavailable, "service_unavailable"},
		{coupon.ErrExpired, http.StatusUnprocessableEntity, "coupon_expired"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}
