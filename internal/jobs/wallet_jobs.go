package jobs

import (
	"context"

	"smartpark-backend/internal/logger"
)

// ReconcileWallets compares every wallet balance with its ledger and reports
// the users whose balance has drifted.
func (jr *JobRunner) ReconcileWallets() {
	jr.runWithRecovery("ReconcileWallets", func(ctx context.Context) error {
		mismatches, err := jr.services.Wallets.FindInconsistent(ctx)
		if err != nil {
			return err
		}
		jr.metrics.WalletMismatches(len(mismatches))

		for _, m := range mismatches {
			logger.Error("Wallet balance does not match ledger",
				"userID", m.UserID,
				logger.Money("balance", m.Balance),
				logger.Money("ledgerSum", m.LedgerSum))
		}
		logger.Info("Wallet reconciliation finished", "mismatches", len(mismatches))
		return nil
	})
}
