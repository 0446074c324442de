package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartzfindery/storefront-backend/api/controllers"
	"github.com/smartzfindery/storefront-backend/api/middleware"
	cartsvc "github.com/smartzfindery/storefront-backend/internal/cart"
	checkoutsvc "github.com/smartzfindery/storefront-backend/internal/checkout"
	ordersvc "github.com/smartzfindery/storefront-backend/internal/orders"
	paymentsvc "github.com/smartzfindery/storefront-backend/internal/payments"
	productsvc "github.com/smartzfindery/storefront-backend/internal/products"
	usersvc "github.com/smartzfindery/storefront-backend/internal/users"
	"github.com/smartzfindery/storefront-backend/pkg/config"
	"github.com/smartzfindery/storefront-backend/pkg/db"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
	"github.com/smartzfindery/storefront-backend/pkg/metrics"
	"github.com/smartzfindery/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Users    usersvc.Service
	Products productsvc.Service
	Cart     cartsvc.Store
	Orders   ordersvc.Service
	Payments paymentsvc.Service
	Checkout *checkoutsvc.Manager
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	adminOnly := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Users, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthMe(deps.Users, logg))
		r.With(middleware.OptionalAuth(cfg.JWT, logg)).
			Post("/logout", controllers.AuthLogout(deps.Cart, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/categories", controllers.ProductCategories(deps.Products, logg))
		r.Get("/price-range", controllers.ProductPriceRange(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg), adminOnly)
			r.Post("/", controllers.ProductCreate(deps.Products, logg))
			r.Put("/{productId}", controllers.ProductUpdate(deps.Products, logg))
			r.Delete("/{productId}", controllers.ProductDelete(deps.Products, logg))
			r.With(middleware.Idempotency(deps.Redis, logg)).
				Post("/seed", controllers.ProductSeed(deps.Products, cfg.FeatureFlags.AllowSeed, logg))
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", controllers.CartFetch(deps.Cart, logg))
		r.Post("/add", controllers.CartAdd(deps.Cart, logg))
		r.Put("/update/{productId}", controllers.CartUpdateQuantity(deps.Cart, logg))
		r.Delete("/remove/{productId}", controllers.CartRemove(deps.Cart, logg))
		r.Delete("/clear", controllers.CartClear(deps.Cart, logg))
		r.Post("/discount", controllers.CartApplyDiscount(deps.Cart, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.With(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/", controllers.OrderCreate(deps.Orders, logg))

		r.With(middleware.Auth(cfg.JWT, logg)).
			Get("/my-orders", controllers.OrderListMine(deps.Orders, logg))

		r.With(middleware.Auth(cfg.JWT, logg)).
			Get("/user/{userId}", controllers.OrderListForUser(deps.Orders, logg))

		r.With(middleware.OptionalAuth(cfg.JWT, logg)).
			Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg), adminOnly)
			r.Get("/", controllers.OrderListAll(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.OrderUpdateStatus(deps.Orders, logg))
		})
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.Idempotency(deps.Redis, logg),
		)
		r.Post("/create-payment-intent", controllers.PaymentCreateIntent(deps.Payments, logg))
		r.Post("/confirm-payment", controllers.PaymentConfirm(deps.Payments, logg))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/state", controllers.CheckoutState(deps.Checkout, logg))
		r.With(middleware.Idempotency(deps.Redis, logg)).
			Post("/details", controllers.CheckoutDetails(deps.Checkout, logg))
		r.Post("/edit", controllers.CheckoutEdit(deps.Checkout, logg))
		r.With(middleware.Idempotency(deps.Redis, logg)).
			Post("/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
	})

	return r
}
