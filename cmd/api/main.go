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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/paytm-adapter/api/routes"
	"github.com/angelmondragon/paytm-adapter/internal/carts"
	"github.com/angelmondragon/paytm-adapter/internal/orders"
	"github.com/angelmondragon/paytm-adapter/internal/payments"
	paytmwebhook "github.com/angelmondragon/paytm-adapter/internal/webhooks/paytm"
	"github.com/angelmondragon/paytm-adapter/pkg/checksum"
	"github.com/angelmondragon/paytm-adapter/pkg/config"
	"github.com/angelmondragon/paytm-adapter/pkg/db"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
	"github.com/angelmondragon/paytm-adapter/pkg/metrics"
	"github.com/angelmondragon/paytm-adapter/pkg/migrate"
	"github.com/angelmondragon/paytm-adapter/pkg/paytm"
	"github.com/angelmondragon/paytm-adapter/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	verifier, err := checksum.NewVerifier(cfg.Paytm.MerchantKey)
	requireResource(ctx, logg, "checksum verifier", err)

	paytmClient, err := paytm.NewClient(ctx, cfg.Paytm, logg,
		paytm.WithSigner(verifier),
		paytm.WithObserver(paymentMetrics),
	)
	requireResource(ctx, logg, "paytm client", err)

	locker, err := redis.NewLocker(redisClient, "capture", cfg.Capture.LockTTL, cfg.Capture.LockRetries)
	requireResource(ctx, logg, "capture locker", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	cartsRepo := carts.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:  paytmClient,
		Verifier: verifier,
		Orders:   ordersRepo,
		Locker:   locker,
		Logger:   logg,
		Metrics:  paymentMetrics,
	})
	requireResource(ctx, logg, "payment service", err)

	webhookGuard, err := paytmwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "paytm-webhook")
	requireResource(ctx, logg, "webhook idempotency guard", err)

	webhookService, err := paytmwebhook.NewService(paytmwebhook.ServiceParams{
		MerchantID: cfg.Paytm.MerchantID,
		Verifier:   verifier,
		Orders:     ordersRepo,
		Capturer:   paymentService,
		Guard:      webhookGuard,
		Logger:     logg,
		Metrics:    paymentMetrics,
	})
	requireResource(ctx, logg, "paytm webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			redisClient,
			paymentService,
			cartsRepo,
			paymentsRepo,
			webhookService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"paytm_env":   paytmClient.Environment(),
		"paytm_site":  paytmClient.Website(),
		"api_enabled": cfg.Auth.Enabled(),
	})
	logg.Info(runCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		for _, e := range multierr.Errors(errs) {
			logg.Error(shutdownCtx, "shutdown error", e)
		}
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
