package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"smartpark-backend/internal/jobs"
	"smartpark-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	entries := []struct {
		name string
		spec string
		run  func()
	}{
		{"ExpireSessions", cfg.ExpireSessions, s.jobs.ExpireSessions},
		{"SendExpiryAlerts", cfg.SendExpiryAlerts, s.jobs.SendExpiryAlerts},
		{"ExpireUnpaidReservations", cfg.ExpireUnpaidReservations, s.jobs.ExpireUnpaidReservations},
		{"CompleteReservations", cfg.CompleteReservations, s.jobs.CompleteReservations},
		{"ReconcileWallets", cfg.ReconcileWallets, s.jobs.ReconcileWallets},
	}

	registered := 0
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, e.run); err != nil {
			logger.Error("Failed to register job", "job", e.name, "spec", e.spec, "error", err)
			continue
		}
		registered++
	}

	logger.Info("Cron jobs registered", "count", registered)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop waits for running jobs and stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// EntryCount is the number of registered jobs.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
