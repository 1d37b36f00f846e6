package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpcapi "smartpark-backend/internal/api/grpc"
	httpapi "smartpark-backend/internal/api/http"
	"smartpark-backend/internal/app"
	"smartpark-backend/internal/config"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SmartPark Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "type", cfg.Database.Type, "host", cfg.Database.Host, "database", cfg.Database.Database)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	metricsHandler := a.Metrics
	if !cfg.Metrics.Enabled {
		metricsHandler = nil
	}
	router := httpapi.NewRouter(httpapi.Dependencies{
		Sessions:      a.Services.Sessions,
		Reservations:  a.Services.Reservations,
		Zones:         a.Services.Zones,
		Wallets:       a.Services.Ledger,
		Violations:    a.Services.Violations,
		Notifications: a.Services.Notifications,
		Tokens:        security.NewTokenManager(cfg.JWT.Secret),
		Health:        a.Store,
		Metrics:       metricsHandler,
		MetricsPath:   cfg.Metrics.Path,
	})

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if addr := cfg.GetGRPCAddress(); addr != "" {
		health := grpcapi.NewHealthServer(a.Store, 10*time.Second)
		grpcServer := grpcapi.NewServer(health)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}

		g.Go(func() error {
			health.Run(gctx)
			return nil
		})
		g.Go(func() error {
			logger.Info("gRPC server listening", "address", addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
