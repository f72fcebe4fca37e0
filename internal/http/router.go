package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Logger         *zap.Logger
	Tokens         TokenParser
	Orders         *OrdersHandler
	Cart           *CartHandler
	Auth           *AuthHandler
	Artworks       *ArtworkHandler
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
	MaxBodySize    int64
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(MaxBodySize(d.MaxBodySize))

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	authenticate := Authenticate(d.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", d.Auth.Signup)
			r.Post("/login", d.Auth.Login)
			r.With(authenticate).Get("/me", d.Auth.Me)
		})

		r.Route("/artworks", func(r chi.Router) {
			r.Get("/", d.Artworks.List)
			r.Get("/popular", d.Artworks.Popular)
			r.Get("/{artwork_id}", d.Artworks.Get)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", d.Cart.GetCart)
			r.Delete("/", d.Cart.ClearCart)
			r.Post("/items", d.Cart.AddItem)
			r.Put("/items/{artwork_id}", d.Cart.UpdateQuantity)
			r.Delete("/items/{artwork_id}", d.Cart.RemoveItem)
			r.With(authenticate).Post("/checkout", d.Cart.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", d.Orders.CreateOrder)
			r.Get("/myorders", d.Orders.ListMyOrders)
			r.Get("/{order_id}", d.Orders.GetOrder)
			r.Put("/{order_id}/payment", d.Orders.AttachPayment)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", d.Orders.ListOrders)
				r.Get("/recent", d.Orders.RecentSales)
				r.Put("/{order_id}", d.Orders.UpdateStatus)
			})
		})

		r.With(authenticate, RequireAdmin).Get("/dashboard/stats", d.Orders.Stats)
	})

	return otelhttp.NewHandler(r, "artshop-http")
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		respondJSON(w, status, body)
	}
}
