package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/utils"
)

type walletLedger struct {
	store   repository.Store
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewWalletLedger(store repository.Store, clk clock.Clock, m *metrics.Metrics) WalletLedger {
	return &walletLedger{store: store, clock: clk, metrics: m}
}

func (l *walletLedger) EnsureFunds(ctx context.Context, repos repository.Repositories, userID int32, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := repos.Wallet.LockBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock wallet: %w", err)
	}
	if balance.LessThan(amount) {
		return balance, fmt.Errorf("%w: balance %s, required %s", domain.ErrInsufficientFunds, balance.StringFixed(2), amount.StringFixed(2))
	}
	return balance, nil
}

func (l *walletLedger) Debit(ctx context.Context, repos repository.Repositories, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	if entry.Type == "" {
		entry.Type = domain.TransactionTypePayment
	}
	if !entry.Type.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a debit type", domain.ErrInvalidInput, entry.Type)
	}
	return l.post(ctx, repos, entry)
}

func (l *walletLedger) Credit(ctx context.Context, repos repository.Repositories, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	if entry.Type == "" {
		entry.Type = domain.TransactionTypeRefund
	}
	if entry.Type.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a credit type", domain.ErrInvalidInput, entry.Type)
	}
	return l.post(ctx, repos, entry)
}

// post applies the entry to the balance and records it. No lower bound is
// enforced here; callers that need one use EnsureFunds first.
func (l *walletLedger) post(ctx context.Context, repos repository.Repositories, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	amount := utils.RoundCurrency(entry.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: ledger amount must be positive", domain.ErrInvalidInput)
	}

	tx := &domain.WalletTransaction{
		Reference:         uuid.NewString(),
		UserID:            entry.UserID,
		Amount:            amount,
		Type:              entry.Type,
		Status:            domain.TransactionStatusCompleted,
		Description:       entry.Description,
		ParkingSessionID:  entry.ParkingSessionID,
		ReservationID:     entry.ReservationID,
		ExternalReference: entry.ExternalReference,
		Metadata:          entry.Metadata,
		CreatedOn:         l.clock.Now(),
	}

	balance, err := repos.Wallet.ApplyDelta(ctx, entry.UserID, tx.SignedAmount())
	if err != nil {
		return nil, fmt.Errorf("apply wallet delta: %w", err)
	}
	tx.BalanceAfter = balance

	if err := repos.Wallet.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("record wallet transaction: %w", err)
	}

	logger.Info("Wallet entry posted",
		"userID", tx.UserID, "type", tx.Type, "reference", tx.Reference,
		logger.Money("amount", tx.Amount), logger.Money("balanceAfter", tx.BalanceAfter))
	l.metrics.LedgerEntry(string(tx.Type), tx.Amount)
	return tx, nil
}

func (l *walletLedger) Balance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	return l.store.Repos().Wallet.GetBalance(ctx, userID)
}

func (l *walletLedger) Transactions(ctx context.Context, userID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	return l.store.Repos().Wallet.ListTransactions(ctx, userID, page, pageSize)
}

func (l *walletLedger) TopUp(ctx context.Context, userID int32, amount decimal.Decimal, externalReference string) (*domain.WalletTransaction, error) {
	logger.EnterMethod("walletLedger.TopUp", "userID", userID, "amount", amount.StringFixed(2))

	var tx *domain.WalletTransaction
	err := l.store.RunInTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return fmt.Errorf("user: %w", err)
		}
		var err error
		tx, err = l.Credit(ctx, repos, domain.LedgerEntry{
			UserID:            userID,
			Amount:            amount,
			Type:              domain.TransactionTypeTopup,
			Description:       "Wallet top-up",
			ExternalReference: externalReference,
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("walletLedger.TopUp", err, "userID", userID)
		return nil, err
	}

	logger.ExitMethod("walletLedger.TopUp", "reference", tx.Reference)
	return tx, nil
}

func (l *walletLedger) Reconcile(ctx context.Context, userID int32) (*domain.WalletReconciliation, error) {
	repos := l.store.Repos()
	balance, err := repos.Wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := repos.Wallet.SumSigned(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.WalletReconciliation{
		UserID:     userID,
		Balance:    balance,
		LedgerSum:  sum,
		Consistent: balance.Equal(sum),
	}, nil
}

func (l *walletLedger) FindInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error) {
	return l.store.Repos().Wallet.ListInconsistent(ctx)
}
