package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
	SessionStatusCancelled SessionStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodWallet      PaymentMethod = "wallet"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodCash        PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentMethodWallet, PaymentMethodMobileMoney, PaymentMethodCard, PaymentMethodCash:
		return true
	}
	return false
}

// ParkingSession is one vehicle's timed occupancy of a zone. A session leaves
// the active state exactly once, through end, cancel or expire.
type ParkingSession struct {
	ID             int32               `json:"id"`
	VehicleID      int32               `json:"vehicle_id"`
	UserID         int32               `json:"user_id"`
	ZoneID         int32               `json:"zone_id"`
	SlotID         *int32              `json:"slot_id,omitempty"`
	StartTime      time.Time           `json:"start_time"`
	PlannedEndTime time.Time           `json:"planned_end_time"`
	ActualEndTime  *time.Time          `json:"actual_end_time,omitempty"`
	Status         SessionStatus       `json:"status"`
	PaymentMethod  PaymentMethod       `json:"payment_method"`
	EstimatedCost  decimal.Decimal     `json:"estimated_cost"`
	FinalCost      decimal.NullDecimal `json:"final_cost"`
	CreatedOn      time.Time           `json:"created_on"`
	UpdatedOn      time.Time           `json:"updated_on"`
}

func (s *ParkingSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// PlannedDuration is the span between start and the planned end.
func (s *ParkingSession) PlannedDuration() time.Duration {
	return s.PlannedEndTime.Sub(s.StartTime)
}

// ElapsedAt returns the billable span: up to the actual end when set, else up to now.
func (s *ParkingSession) ElapsedAt(now time.Time) time.Duration {
	if s.ActualEndTime != nil {
		return s.ActualEndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// SessionOutcome is the result of a terminal transition.
type SessionOutcome struct {
	Session       *ParkingSession `json:"session"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	OverdueCharge decimal.Decimal `json:"overdue_charge"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Violation     *Violation      `json:"violation,omitempty"`
}
