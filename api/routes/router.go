package routes

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercadito-app/mercadito-backend/api/controllers"
	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/internal/address"
	"github.com/mercadito-app/mercadito-backend/internal/auth"
	"github.com/mercadito-app/mercadito-backend/internal/cart"
	"github.com/mercadito-app/mercadito-backend/pkg/auth/session"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	"github.com/mercadito-app/mercadito-backend/pkg/db"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/metrics"
	"github.com/mercadito-app/mercadito-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager session.AccessSessionChecker
	AuthService    auth.Service
	AddressService address.Service
	Carts          *cart.Manager
	HTTPMetrics    *metrics.HTTPMetrics
	Registry       *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientID(),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
	)

	passthrough := func(next http.Handler) http.Handler { return next }
	limitLogin, limitRegister := passthrough, passthrough
	if deps.Redis != nil {
		limitLogin = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"login",
			cfg.AuthRateLimit.LoginWindow,
			cfg.AuthRateLimit.LoginIPLimit,
			cfg.AuthRateLimit.LoginEmailLimit,
		), deps.Redis, logg)
		limitRegister = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"register",
			cfg.AuthRateLimit.RegisterWindow,
			cfg.AuthRateLimit.RegisterIPLimit,
			cfg.AuthRateLimit.RegisterEmailLimit,
		), deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		if deps.Redis != nil {
			r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
		} else {
			r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, nil))
		}
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(limitLogin).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(limitRegister).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
		r.Get("/session", controllers.AuthSession(deps.AuthService, logg))
	})

	// Guest surface: scoped by X-Client-Id, no credentials required.
	r.Route("/api/v1/guest", func(r chi.Router) {
		r.Route("/address", func(r chi.Router) {
			r.Get("/", controllers.GuestAddressGet(deps.AddressService.Stores(), logg))
			r.Put("/", controllers.GuestAddressSet(deps.AddressService.Stores(), logg))
			r.Delete("/", controllers.GuestAddressClear(deps.AddressService.Stores(), logg))
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(deps.Carts, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
		})
	})

	// Address lookup works for guests and signed-in users alike.
	r.Route("/api/v1/places", func(r chi.Router) {
		r.Post("/suggest", controllers.AddressSuggest(deps.AddressService, logg))
		r.Post("/resolve", controllers.AddressResolve(deps.AddressService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.AddressService, logg))
			r.Post("/", controllers.AddressCreate(deps.AddressService, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(deps.AddressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(deps.AddressService, logg))
			r.Post("/{addressId}/primary", controllers.AddressSetPrimary(deps.AddressService, logg))
			r.Post("/active", controllers.AddressSetActive(deps.AddressService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(deps.Carts, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
		})
	})

	return r
}
