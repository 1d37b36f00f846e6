package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"smartpark-backend/internal/app"
	"smartpark-backend/internal/config"
	"smartpark-backend/internal/jobs"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-sessions', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SmartPark Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	jobRunner := a.JobRunner()

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()

	if a.SQS != nil {
		consumer := jobs.NewReservationExpiryConsumer(a.SQS, cfg.SQS.QueueURL, a.Services.Reservations, a.Clock)
		go consumer.Start(ctx)
	} else {
		logger.Info("SQS not configured; unpaid reservations expire through the periodic sweep only")
	}

	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and reports whether the name was known
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "expire-sessions":
		jobRunner.ExpireSessions()
	case "send-expiry-alerts":
		jobRunner.SendExpiryAlerts()
	case "expire-unpaid-reservations":
		jobRunner.ExpireUnpaidReservations()
	case "complete-reservations":
		jobRunner.CompleteReservations()
	case "reconcile-wallets":
		jobRunner.ReconcileWallets()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-sessions\n")
		fmt.Printf("  - send-expiry-alerts\n")
		fmt.Printf("  - expire-unpaid-reservations\n")
		fmt.Printf("  - complete-reservations\n")
		fmt.Printf("  - reconcile-wallets\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
