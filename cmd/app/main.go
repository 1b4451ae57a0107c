// app is the operator CLI: exchange rate, conversions, stock alerts and
// period reports against the live database.
//
// Usage: app <rate|convert|low-stock|dashboard|period|expenses> [args]
package main

import (
	"context"
	"log"
	"os"

	"inventory-console/internal/adapters/cli"
	"inventory-console/internal/app"
	"inventory-console/internal/config"
	"inventory-console/internal/db"
	"inventory-console/internal/fx"
	"inventory-console/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	// Keep warnings off stdout so reports stay clean.
	logger.InitWriter(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	source := fx.NewDolarAPISource(cfg.FXRateURL, cfg.FXRateField, cfg.FXTimeout)
	rates := fx.NewRateProvider(source, cfg.FXFallbackRate, cfg.FXCacheTTL).WithRetryBackoff(cfg.FXRetryBackoff)
	svc := app.NewAppService(app.NewStores(pool), rates, app.Options{
		LocalCurrency:     cfg.LocalCurrency,
		DraftTTL:          cfg.DraftTTL,
		DashboardCacheTTL: cfg.DashboardCacheTTL,
	})

	cli.Run(ctx, svc, os.Args[1:])
}
