package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPendingPayment ReservationStatus = "pending_payment"
	ReservationStatusConfirmed      ReservationStatus = "confirmed"
	ReservationStatusCancelled      ReservationStatus = "cancelled"
	ReservationStatusExpired        ReservationStatus = "expired"
	ReservationStatusCompleted      ReservationStatus = "completed"
)

// Reservation is a future-dated capacity hold on a zone.
type Reservation struct {
	ID               int32             `json:"id"`
	VehicleID        int32             `json:"vehicle_id"`
	UserID           int32             `json:"user_id"`
	ZoneID           int32             `json:"zone_id"`
	SlotID           *int32            `json:"slot_id,omitempty"`
	ReservedFrom     time.Time         `json:"reserved_from"`
	ReservedUntil    time.Time         `json:"reserved_until"`
	Cost             decimal.Decimal   `json:"cost"`
	Status           ReservationStatus `json:"status"`
	IsActive         bool              `json:"is_active"`
	PaymentMethod    PaymentMethod     `json:"payment_method,omitempty"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	CreatedOn        time.Time         `json:"created_on"`
	UpdatedOn        time.Time         `json:"updated_on"`
}

func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationStatusCancelled, ReservationStatusExpired, ReservationStatusCompleted:
		return true
	}
	return false
}

// HoldingStatuses are the statuses that count against zone capacity.
var HoldingStatuses = []ReservationStatus{
	ReservationStatusConfirmed,
	ReservationStatusPendingPayment,
}
