package jobs

import (
	"context"

	"smartpark-backend/internal/logger"
)

// ExpireSessions ends active sessions whose planned end has passed, charging
// overdue time and issuing violations where the wallet cannot cover it.
func (jr *JobRunner) ExpireSessions() {
	jr.runWithRecovery("ExpireSessions", func(ctx context.Context) error {
		count, err := jr.services.Sessions.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info("Expired overdue sessions", "count", count)
		return nil
	})
}

// SendExpiryAlerts reminds drivers shortly before their parking runs out.
func (jr *JobRunner) SendExpiryAlerts() {
	jr.runWithRecovery("SendExpiryAlerts", func(ctx context.Context) error {
		count, err := jr.services.Sessions.SendExpiryAlerts(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			logger.Info("Sent expiry alerts", "count", count)
		}
		return nil
	})
}
