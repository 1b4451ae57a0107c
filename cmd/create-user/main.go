// create-user is a one-shot tool that adds a console login.
//
// Usage: create-user <username> <email> <password> [role]
package main

import (
	"context"
	"log"
	"os"

	"inventory-console/internal/app"
	"inventory-console/internal/config"
	"inventory-console/internal/db"
	"inventory-console/internal/fx"
	"inventory-console/migrations"
)

func main() {
	if len(os.Args) < 4 {
		log.Fatal("Usage: create-user <username> <email> <password> [role]")
	}
	role := ""
	if len(os.Args) > 4 {
		role = os.Args[4]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	// No rate lookups happen here; a static source avoids the network.
	rates := fx.NewRateProvider(fx.StaticSource{Rate: cfg.FXFallbackRate}, cfg.FXFallbackRate, cfg.FXCacheTTL)
	svc := app.NewAppService(app.NewStores(pool), rates, app.Options{LocalCurrency: cfg.LocalCurrency})

	user, err := svc.CreateUser(ctx, os.Args[1], os.Args[2], os.Args[3], role)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("created user %q (id %d, role %s)", user.Username, user.UserID, user.Role)
}
