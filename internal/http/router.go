package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Validator          *TokenValidator
	Logger             *zap.Logger
}

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Products *ProductHandler
	Orders   *OrdersHandler
}

func NewRouter(cfg RouterConfig, hs Handlers) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.L()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(OwnerMiddleware(cfg.Validator))

		r.Get("/products", hs.Products.ListProducts)
		r.Get("/settings", hs.Products.GetSettings)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", hs.Cart.GetCart)
			r.Delete("/", hs.Cart.ClearCart)
			r.Post("/items", hs.Cart.AddItem)
			r.Put("/items/{product_id}", hs.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", hs.Cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", hs.Checkout.GetCheckout)
			r.Delete("/", hs.Checkout.Reset)
			r.Put("/shipping", hs.Checkout.UpdateShipping)
			r.Put("/payment", hs.Checkout.SelectPayment)
			r.Put("/step", hs.Checkout.GoTo)
			r.Post("/next", hs.Checkout.Next)
			r.Post("/back", hs.Checkout.Back)
			r.Post("/coupon", hs.Checkout.ApplyCoupon)
			r.Delete("/coupon", hs.Checkout.RemoveCoupon)
			r.Post("/place-order", hs.Checkout.PlaceOrder)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", hs.Orders.ListOrders)
			r.Get("/track/{tracking}", hs.Orders.Track)
		})
	})

	return r
}
