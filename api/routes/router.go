package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/paytm-adapter/api/controllers"
	paymentcontrollers "github.com/angelmondragon/paytm-adapter/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/paytm-adapter/api/controllers/webhooks"
	"github.com/angelmondragon/paytm-adapter/api/middleware"
	"github.com/angelmondragon/paytm-adapter/pkg/config"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
)

const scopePaymentsWrite = "payments:write"

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	gatherer prometheus.Gatherer,
	idempotencyStore middleware.IdempotencyStore,
	paymentService paymentcontrollers.PaymentService,
	cartStore paymentcontrollers.CartStore,
	paymentStore paymentcontrollers.PaymentStore,
	paytmWebhookService webhookcontrollers.PaytmWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/paytm/hooks", webhookcontrollers.PaytmWebhook(paytmWebhookService, logg))

	if !cfg.Auth.Enabled() {
		if logg != nil {
			logg.Warn(context.Background(), "jwt secret not configured, internal payments api disabled")
		}
		return r
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))

		r.Route("/carts/{cartId}/payment-session", func(r chi.Router) {
			r.Get("/status", paymentcontrollers.PaymentSessionStatus(paymentService, cartStore, logg))
			r.With(middleware.RequireScope(scopePaymentsWrite, logg)).
				Post("/", paymentcontrollers.PaymentSession(paymentService, cartStore, logg))
		})

		r.Route("/payments/{cartId}", func(r chi.Router) {
			r.Use(middleware.RequireScope(scopePaymentsWrite, logg))
			// Idempotency keys off the full route pattern, known only once the endpoint matched.
			idem := r.With(middleware.Idempotency(idempotencyStore, logg))
			idem.Post("/capture", paymentcontrollers.Capture(paymentService, paymentStore, logg))
			idem.Post("/refund", paymentcontrollers.Refund(paymentService, paymentStore, logg))
			idem.Post("/cancel", paymentcontrollers.Cancel(paymentService, paymentStore, logg))
		})
	})

	return r
}
