package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/floristeria-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/floristeria-backend/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/floristeria-backend/api/controllers/checkout"
	ordercontrollers "github.com/angelmondragon/floristeria-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/floristeria-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/floristeria-backend/api/controllers/webhooks"
	"github.com/angelmondragon/floristeria-backend/api/middleware"
	"github.com/angelmondragon/floristeria-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/floristeria-backend/internal/checkout"
	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/pkg/config"
	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/redis"
)

// WompiService is everything the router needs from the payment reconciler.
type WompiService interface {
	webhookcontrollers.WompiWebhookService
	paymentcontrollers.Verifier
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersSvc orders.Service,
	wompiService WompiService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// a nil *redis.Client must not leak into the interfaces as non-nil
	var (
		idemStore redis.IdempotencyStore
		limiter   middleware.WindowLimiter
		readiness = map[string]controllers.Pinger{"db": dbP}
	)
	if redisClient != nil {
		idemStore = redisClient
		limiter = redisClient
		readiness["redis"] = redisClient
	}
	guestLimit := middleware.RateLimit(middleware.GuestOrderPolicy, limiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks/transaction/complete", webhookcontrollers.WompiWebhook(wompiService, logg))

	r.Route("/api/v1/guest", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))
		r.With(guestLimit).Post("/orders", ordercontrollers.GuestCreate(ordersSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
			r.Get("/cart", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/cart/lines", cartcontrollers.CartAddLine(cartService, logg))
			r.Patch("/cart/lines/{lineId}", cartcontrollers.CartAdjustLine(cartService, logg))
			r.Delete("/cart/lines/{lineId}", cartcontrollers.CartRemoveLine(cartService, logg))
			r.Post("/checkout", checkoutcontrollers.Checkout(checkoutService, logg))
			r.Get("/orders", ordercontrollers.List(ordersSvc, logg))
			r.Post("/orders/{orderId}/payment", checkoutcontrollers.RetryPayment(checkoutService, logg))
			r.Get("/payments/verify", paymentcontrollers.Verify(verifierOrNil(wompiService), logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/orders", ordercontrollers.AdminList(ordersSvc, logg))
			r.Post("/orders/{orderId}/state", ordercontrollers.AdminTransition(ordersSvc, logg))
		})
	})

	return r
}

func verifierOrNil(svc WompiService) paymentcontrollers.Verifier {
	if svc == nil {
		return nil
	}
	return svc
}
