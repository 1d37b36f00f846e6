package main

import (
	"context"
	"flag"
	"log"

	"smartpark-backend/internal/app"
	"smartpark-backend/internal/config"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("data", "config/seed.dev.yaml", "Path to seed data file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	data, err := readSeedFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	result, err := apply(ctx, a.Store, a.Services.Ledger, data)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("Seed data loaded", "zones", result.Zones, "slots", result.Slots, "users", result.Users, "vehicles", result.Vehicles)

	// Dev tokens so the API can be exercised with curl right away.
	tokens := security.NewTokenManager(cfg.JWT.Secret)
	for _, u := range result.CreatedUsers {
		token, err := tokens.GenerateAccessToken(u.ID, u.Email, u.Roles)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		logger.Info("Access token", "email", u.Email, "roles", u.Roles, "token", token)
	}
}
