package jobs

import (
	"context"

	"smartpark-backend/internal/logger"
)

// ExpireUnpaidReservations is the fallback for the delayed expiry message:
// it expires pending reservations older than the payment hold.
func (jr *JobRunner) ExpireUnpaidReservations() {
	jr.runWithRecovery("ExpireUnpaidReservations", func(ctx context.Context) error {
		count, err := jr.services.Reservations.ExpireStaleUnpaid(ctx)
		if err != nil {
			return err
		}
		logger.Info("Expired unpaid reservations", "count", count)
		return nil
	})
}

// CompleteReservations closes confirmed reservations whose window has ended.
func (jr *JobRunner) CompleteReservations() {
	jr.runWithRecovery("CompleteReservations", func(ctx context.Context) error {
		count, err := jr.services.Reservations.CompleteElapsed(ctx)
		if err != nil {
			return err
		}
		logger.Info("Completed elapsed reservations", "count", count)
		return nil
	})
}
