package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/repository"
)

type walletRepository struct {
	q Querier
}

func NewWalletRepository(q Querier) repository.WalletRepository {
	return &walletRepository{q: q}
}

func (r *walletRepository) GetBalance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	return balance, nil
}

func (r *walletRepository) LockBalance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	return balance, nil
}

func (r *walletRepository) ApplyDelta(ctx context.Context, userID int32, delta decimal.Decimal) (decimal.Decimal, error) {
	logger.DatabaseCall("UPDATE", "users", "userID", userID, "delta", delta.StringFixed(2))

	var balance decimal.Decimal
	query := `UPDATE users SET wallet_balance = wallet_balance + $1, updated_on = NOW() WHERE id = $2 RETURNING wallet_balance`
	err := r.q.QueryRowContext(ctx, query, delta, userID).Scan(&balance)
	logger.DatabaseResult("UPDATE", 1, err, "userID", userID)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	return balance, nil
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	logger.EnterMethod("walletRepository.CreateTransaction", "userID", tx.UserID, "type", tx.Type, "reference", tx.Reference)

	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		logger.ExitMethodWithError("walletRepository.CreateTransaction", err, "reason", "failed to marshal metadata")
		return err
	}

	query := `INSERT INTO wallet_transactions (reference, user_id, amount, transaction_type, status, description,
	              parking_session_id, reservation_id, external_reference, metadata, balance_after, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err = r.q.QueryRowContext(ctx, query, tx.Reference, tx.UserID, tx.Amount, tx.Type, tx.Status, tx.Description,
		tx.ParkingSessionID, tx.ReservationID, tx.ExternalReference, metadata, tx.BalanceAfter, tx.CreatedOn).Scan(&tx.ID)
	if err != nil {
		logger.ExitMethodWithError("walletRepository.CreateTransaction", err, "userID", tx.UserID)
		return err
	}

	logger.ExitMethod("walletRepository.CreateTransaction", "transactionID", tx.ID)
	return nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	var count int32
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM wallet_transactions WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, reference, user_id, amount, transaction_type, status, description, parking_session_id,
	                 reservation_id, external_reference, metadata, balance_after, created_on
	          FROM wallet_transactions WHERE user_id = $1
	          ORDER BY created_on DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.QueryContext(ctx, query, userID, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		var sessionID, reservationID sql.NullInt32
		var metadata []byte
		if err := rows.Scan(&tx.ID, &tx.Reference, &tx.UserID, &tx.Amount, &tx.Type, &tx.Status, &tx.Description,
			&sessionID, &reservationID, &tx.ExternalReference, &metadata, &tx.BalanceAfter, &tx.CreatedOn); err != nil {
			return nil, 0, err
		}
		tx.ParkingSessionID = nullInt32(sessionID)
		tx.ReservationID = nullInt32(reservationID)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, 0, err
			}
		}
		txs = append(txs, tx)
	}
	return txs, count, rows.Err()
}

const signedSum = `COALESCE(SUM(CASE WHEN transaction_type IN ('payment', 'fine_payment') THEN -amount ELSE amount END), 0)`

func (r *walletRepository) SumSigned(ctx context.Context, userID int32) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT ` + signedSum + ` FROM wallet_transactions WHERE user_id = $1 AND status = 'completed'`
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&sum)
	return sum, err
}

func (r *walletRepository) ListInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error) {
	query := `SELECT u.id, u.wallet_balance, COALESCE(l.total, 0)
	          FROM users u
	          LEFT JOIN (
	              SELECT user_id, ` + signedSum + ` AS total
	              FROM wallet_transactions WHERE status = 'completed' GROUP BY user_id
	          ) l ON l.user_id = u.id
	          WHERE u.wallet_balance <> COALESCE(l.total, 0)
	          ORDER BY u.id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalletReconciliation
	for rows.Next() {
		var rec domain.WalletReconciliation
		if err := rows.Scan(&rec.UserID, &rec.Balance, &rec.LedgerSum); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
