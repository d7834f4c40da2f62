package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/catalog"
	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/notify"
	"github.com/jcmexdev/checkout-service/internal/checkout/adapters/sqlite"
	"github.com/jcmexdev/checkout-service/internal/checkout/app"
	"github.com/jcmexdev/checkout-service/internal/checkout/httpx"
	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
	"github.com/jcmexdev/checkout-service/internal/pkg/cache"
	"github.com/jcmexdev/checkout-service/internal/pkg/config"
	"github.com/jcmexdev/checkout-service/internal/pkg/telemetry"
)

const serviceName = "checkout-service"

func main() {
	telemetry.InitLogger()

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var priceSource ports.PriceSource = catalog.NewClient(cfg.CatalogBaseURL, catalog.Config{
		Timeout: cfg.CatalogTimeout,
		Retries: cfg.CatalogRetries,
		Backoff: cfg.CatalogRetryBackoff,
	})

	opts := app.Options{
		OpLog:         store,
		NotifyTimeout: cfg.NotifyTimeout,
	}

	// Redis is optional: without it checkouts still work, just without
	// price caching and idempotency replay.
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, serviceName)
		priceSource = catalog.NewCachedSource(priceSource, redisCache, cfg.PriceCacheTTL)
		opts.Idempotency = app.NewIdempotencyStore(redisCache, cfg.IdempotencyTTL)
	}

	notifier := notify.NewClient(cfg.NotifyBaseURL, cfg.NotifyTimeout, nil)

	service := app.NewService(priceSource, store, notifier, opts)

	handler := httpx.NewHandler(service)
	router := otelhttp.NewHandler(httpx.NewRouter(handler), serviceName)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("checkout service listening",
			"addr", cfg.HTTPAddr,
			"catalog_url", cfg.CatalogBaseURL,
			"notify_url", cfg.NotifyBaseURL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	// Drain in-flight order notifications before closing the store.
	if err := service.Shutdown(shutdownCtx); err != nil {
		slog.Error("notification drain timed out", "error", err)
	}
	return nil
}
