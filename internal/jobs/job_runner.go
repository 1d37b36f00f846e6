package jobs

import (
	"context"
	"errors"
	"time"

	"smartpark-backend/internal/config"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
)

// SessionSweeper is the part of the session service the jobs drive.
type SessionSweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
	SendExpiryAlerts(ctx context.Context) (int, error)
}

// ReservationSweeper is the part of the reservation service the jobs drive.
type ReservationSweeper interface {
	ExpireStaleUnpaid(ctx context.Context) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
	ExpireUnpaid(ctx context.Context, reservationID int32) (bool, error)
}

type WalletAuditor interface {
	FindInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error)
}

// JobLocker grants a short lease so only one worker runs a job at a time.
type JobLocker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, name, token string) error
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Sessions     SessionSweeper
	Reservations ReservationSweeper
	Wallets      WalletAuditor
}

var errJobPanicked = errors.New("job panicked")

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	locker   JobLocker
	metrics  *metrics.Metrics
}

// NewJobRunner creates a job runner. locker may be nil, in which case every
// worker runs every job.
func NewJobRunner(services *Services, cfg *config.Config, locker JobLocker, m *metrics.Metrics) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		locker:   locker,
		metrics:  m,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with the job lease, panic recovery and
// run metrics.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	ttl := jr.config.LockTTL()
	ctx, cancel := context.WithTimeout(context.Background(), ttl)
	defer cancel()

	if jr.locker != nil {
		token, ok, err := jr.locker.TryLock(ctx, jobName, ttl)
		if err != nil {
			logger.Error("Failed to acquire job lock", "job", jobName, "error", err)
			return
		}
		if !ok {
			logger.Debug("Job already running elsewhere", "job", jobName)
			return
		}
		defer func() {
			if err := jr.locker.Release(context.Background(), jobName, token); err != nil {
				logger.Warn("Failed to release job lock", "job", jobName, "error", err)
			}
		}()
	}

	started := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = errJobPanicked
		}
		jr.metrics.JobRun(jobName, started, err)
	}()

	logger.Info("Starting job", "job", jobName)
	err = jobFunc(ctx)
	if err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(started))
		return
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(started))
}

// RunAll runs every job once, in dependency order (for manual execution).
func (jr *JobRunner) RunAll() {
	jr.ExpireSessions()
	jr.SendExpiryAlerts()
	jr.ExpireUnpaidReservations()
	jr.CompleteReservations()
	jr.ReconcileWallets()
}
