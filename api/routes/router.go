package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/retailops-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/retailops-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/retailops-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/retailops-backend/api/controllers/webhooks"
	"github.com/angelmondragon/retailops-backend/api/middleware"
	"github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	ordersSvc orders.Service,
	paymentsSvc paymentcontrollers.Service,
	mpesaCallbacks webhookcontrollers.CallbackProcessor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		redisP    controllers.Pinger
		idemStore middleware.IdempotencyStore
	)
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}
	commit := middleware.Idempotent(idemStore, logg, middleware.CommitPolicy)
	update := middleware.Idempotent(idemStore, logg, middleware.UpdatePolicy)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mpesa/stk", webhookcontrollers.MpesaSTKCallback(mpesaCallbacks, cfg.Mpesa.CallbackToken, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/sales", func(r chi.Router) {
			r.With(commit).Post("/", ordercontrollers.CreateSale(ordersSvc, logg))
			r.Get("/{saleId}", ordercontrollers.GetSale(ordersSvc, logg))
			r.With(update).Post("/{saleId}/status", ordercontrollers.UpdateSaleStatus(ordersSvc, logg))
		})
		r.Route("/purchases", func(r chi.Router) {
			r.With(commit).Post("/", ordercontrollers.CreatePurchase(ordersSvc, logg))
			r.Get("/{purchaseId}", ordercontrollers.GetPurchase(ordersSvc, logg))
			r.With(update).Post("/{purchaseId}/status", ordercontrollers.UpdatePurchaseStatus(ordersSvc, logg))
			r.With(commit).Post("/{purchaseId}/receive", ordercontrollers.ReceivePurchase(ordersSvc, logg))
		})
		r.Route("/payments", func(r chi.Router) {
			r.With(update).Post("/stk-push", paymentcontrollers.InitiateSTKPush(paymentsSvc, logg))
			r.Get("/{checkoutRequestId}", paymentcontrollers.GetAttempt(paymentsSvc, logg))
			r.Post("/{checkoutRequestId}/query", paymentcontrollers.QueryAttempt(paymentsSvc, logg))
		})
	})

	return r
}
