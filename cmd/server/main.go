package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	webAdapter "inventory-console/internal/adapters/web"
	"inventory-console/internal/app"
	"inventory-console/internal/config"
	"inventory-console/internal/db"
	"inventory-console/internal/fx"
	"inventory-console/internal/logger"
	"inventory-console/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	source := fx.NewDolarAPISource(cfg.FXRateURL, cfg.FXRateField, cfg.FXTimeout)
	rates := fx.NewRateProvider(source, cfg.FXFallbackRate, cfg.FXCacheTTL).WithRetryBackoff(cfg.FXRetryBackoff)
	// Warm the rate so the first request does not wait on the network.
	rates.Refresh(ctx)

	svc := app.NewAppService(app.NewStores(pool), rates, app.Options{
		LocalCurrency:     cfg.LocalCurrency,
		DraftTTL:          cfg.DraftTTL,
		DashboardCacheTTL: cfg.DashboardCacheTTL,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("shutdown", "error", err)
		}
	}()

	logger.L.Info("server starting", "port", cfg.Port, "local_currency", cfg.LocalCurrency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	logger.L.Info("server stopped")
}
