// migrate applies or rolls back the embedded schema migrations.
//
// Usage: migrate [up|down|version]
package main

import (
	"fmt"
	"log"
	"os"

	"inventory-console/internal/config"
	"inventory-console/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := migrations.Down(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("migrations rolled back")
	case "version":
		v, dirty, err := migrations.Version(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Printf("version %d dirty=%t\n", v, dirty)
	default:
		log.Fatalf("Unknown command: %s\nAvailable: up, down, version", cmd)
	}
}
