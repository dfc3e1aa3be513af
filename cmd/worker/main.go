package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/paytm-adapter/api/controllers"
	"github.com/angelmondragon/paytm-adapter/internal/carts"
	"github.com/angelmondragon/paytm-adapter/internal/cartsync"
	"github.com/angelmondragon/paytm-adapter/internal/orders"
	"github.com/angelmondragon/paytm-adapter/internal/payments"
	"github.com/angelmondragon/paytm-adapter/pkg/checksum"
	"github.com/angelmondragon/paytm-adapter/pkg/config"
	"github.com/angelmondragon/paytm-adapter/pkg/db"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/metrics"
	"github.com/angelmondragon/paytm-adapter/pkg/paytm"
	"github.com/angelmondragon/paytm-adapter/pkg/pubsub"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)

	subscription := pubsubClient.CartEventsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "cart events subscription", errors.New("subscription not configured"))
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	verifier, err := checksum.NewVerifier(cfg.Paytm.MerchantKey)
	requireResource(ctx, logg, "checksum verifier", err)

	paytmClient, err := paytm.NewClient(ctx, cfg.Paytm, logg,
		paytm.WithSigner(verifier),
		paytm.WithObserver(paymentMetrics),
	)
	requireResource(ctx, logg, "paytm client", err)

	// Session updates never capture, so the in-process capture lock is enough here.
	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:  paytmClient,
		Verifier: verifier,
		Orders:   orders.NewRepository(dbClient.DB()),
		Logger:   logg,
		Metrics:  paymentMetrics,
	})
	requireResource(ctx, logg, "payment service", err)

	reconciler, err := cartsync.NewReconciler(carts.NewRepository(dbClient.DB()), paymentService, logg, paymentMetrics)
	requireResource(ctx, logg, "cart reconciler", err)

	bus := pubsub.NewBus(logg)
	reconciler.Register(bus)

	router := chi.NewRouter()
	router.Get("/health/live", controllers.HealthLive(cfg))
	router.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		"db":     dbClient,
		"pubsub": pubsubClient,
	}))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	probe := &http.Server{Addr: ":" + cfg.App.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := probe.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "worker probe server stopped", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.CartEventsSubscription,
	})
	logg.Info(runCtx, "cart events worker ready")

	exitCode := 0
	if err := bus.Run(runCtx, subscription); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cart events worker failed", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, probe.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, pubsubClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	for _, e := range multierr.Errors(errs) {
		logg.Error(shutdownCtx, "shutdown error", e)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
