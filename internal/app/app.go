// Package app assembles the store, caches, senders and services shared by the
// server and cronjob binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"smartpark-backend/internal/cache"
	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/config"
	"smartpark-backend/internal/jobs"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/migration"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/repository/memory"
	"smartpark-backend/internal/repository/postgres"
	"smartpark-backend/internal/scheduler"
	"smartpark-backend/internal/service"
)

// Services are the domain services built on one store.
type Services struct {
	Allocator     service.SlotAllocator
	Ledger        service.WalletLedger
	Notifier      service.Notifier
	Violations    service.ViolationIssuer
	Sessions      service.SessionService
	Reservations  service.ReservationService
	Zones         service.ZoneService
	Notifications service.NotificationService
}

// App holds every long-lived dependency. Close releases them.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	Store       repository.Store
	Redis       *redis.Client
	Locker      *cache.Locker
	SQS         *sqs.Client
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	Services    Services
	localExpiry *scheduler.LocalExpiryScheduler
}

// New connects to the configured backends and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Clock: clock.New()}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(reg)

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	client, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if client != nil {
		a.Redis = client
		a.Locker = cache.NewLocker(client)
	}

	if cfg.SQS.QueueURL != "" {
		if a.SQS, err = NewSQSClient(ctx, cfg.SQS); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.buildServices(ctx)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		a.Store = memory.NewStore()
		return nil
	}

	logger.Debug("Connecting to database...", "connection", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)

	if cfg.Database.AutoMigrate {
		if err := migration.RunMigrations(db); err != nil {
			db.Close()
			return err
		}
	}

	a.DB = db
	a.Store = postgres.NewStore(db)
	return nil
}

func (a *App) buildServices(ctx context.Context) {
	cfg := a.Config
	m := a.Metrics
	policy := service.BillingPolicy{
		ChargeExtensions: cfg.Billing.ChargeExtensions,
		ReservationHold:  cfg.ReservationHold(),
		StartSkew:        cfg.StartSkew(),
	}

	var push service.PushSender
	if cfg.Firebase.CredentialsFile != "" || cfg.Firebase.ProjectID != "" {
		sender, err := service.NewFirebasePushSender(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID)
		if err != nil {
			logger.Error("Push notifications disabled", "error", err)
		} else {
			push = sender
		}
	}
	var email service.EmailSender
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}

	var availability service.AvailabilityCache
	if a.Redis != nil {
		availability = cache.NewAvailabilityCache(a.Redis, cfg.OccupancyTTL())
	}

	var expiry service.ExpiryScheduler
	if a.SQS != nil {
		expiry = scheduler.NewSQSExpiryScheduler(a.SQS, cfg.SQS.QueueURL, a.Clock)
	} else {
		a.localExpiry = scheduler.NewLocalExpiryScheduler()
		expiry = a.localExpiry
	}

	s := Services{Allocator: service.NewSlotAllocator()}
	s.Ledger = service.NewWalletLedger(a.Store, a.Clock, m)
	s.Notifier = service.NewNotificationDispatcher(a.Store, a.Clock, push, email, m)
	s.Violations = service.NewViolationIssuer(a.Store, s.Ledger, s.Notifier, a.Clock, m)
	s.Sessions = service.NewSessionService(a.Store, s.Allocator, s.Ledger, s.Violations, s.Notifier, a.Clock, policy, m)
	s.Reservations = service.NewReservationService(a.Store, s.Allocator, s.Ledger, s.Notifier, expiry, a.Clock, policy, m)
	s.Zones = service.NewZoneService(a.Store, s.Allocator, availability)
	s.Notifications = service.NewNotificationService(a.Store)

	if a.localExpiry != nil {
		a.localExpiry.Bind(s.Reservations.ExpireUnpaid)
	}
	a.Services = s
}

// JobRunner builds the sweep runner over the app's services.
func (a *App) JobRunner() *jobs.JobRunner {
	var locker jobs.JobLocker
	if a.Locker != nil {
		locker = a.Locker
	}
	return jobs.NewJobRunner(&jobs.Services{
		Sessions:     a.Services.Sessions,
		Reservations: a.Services.Reservations,
		Wallets:      a.Services.Ledger,
	}, a.Config, locker, a.Metrics)
}

// Close stops pending in-process expiries and closes connections.
func (a *App) Close() {
	if a.localExpiry != nil {
		a.localExpiry.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
}

// NewSQSClient loads AWS credentials from the default chain. A non-empty
// endpoint points the client at a local emulator.
func NewSQSClient(ctx context.Context, cfg config.SQSConfig) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
