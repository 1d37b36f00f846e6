package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTopup       TransactionType = "topup"
	TransactionTypePayment     TransactionType = "payment"
	TransactionTypeFinePayment TransactionType = "fine_payment"
	TransactionTypeRefund      TransactionType = "refund"
)

// IsDebit reports whether entries of this type reduce the wallet balance.
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypePayment || t == TransactionTypeFinePayment
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// WalletTransaction is an append-only ledger entry. Amount is always a
// positive magnitude; the direction comes from Type.
type WalletTransaction struct {
	ID                int32             `json:"id"`
	Reference         string            `json:"reference"`
	UserID            int32             `json:"user_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Type              TransactionType   `json:"transaction_type"`
	Status            TransactionStatus `json:"status"`
	Description       string            `json:"description"`
	ParkingSessionID  *int32            `json:"parking_session_id,omitempty"`
	ReservationID     *int32            `json:"reservation_id,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	BalanceAfter      decimal.Decimal   `json:"balance_after"`
	CreatedOn         time.Time         `json:"created_on"`
}

// SignedAmount is the effect of the entry on the wallet balance.
func (t *WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// LedgerEntry describes a balance movement requested by a caller.
type LedgerEntry struct {
	UserID            int32
	Amount            decimal.Decimal
	Type              TransactionType
	Description       string
	ParkingSessionID  *int32
	ReservationID     *int32
	ExternalReference string
	Metadata          map[string]string
}

type WalletReconciliation struct {
	UserID     int32           `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Consistent bool            `json:"consistent"`
}
