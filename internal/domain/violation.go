package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ViolationType string

const (
	ViolationTypeExpired      ViolationType = "expired"
	ViolationTypeNoPayment    ViolationType = "no_payment"
	ViolationTypeWrongZone    ViolationType = "wrong_zone"
	ViolationTypeDisabledSpot ViolationType = "disabled_spot"
)

func (v ViolationType) Valid() bool {
	switch v {
	case ViolationTypeExpired, ViolationTypeNoPayment, ViolationTypeWrongZone, ViolationTypeDisabledSpot:
		return true
	}
	return false
}

type Violation struct {
	ID               int32           `json:"id"`
	VehicleID        int32           `json:"vehicle_id"`
	ZoneID           int32           `json:"zone_id"`
	ParkingSessionID *int32          `json:"parking_session_id,omitempty"`
	OfficerID        *int32          `json:"officer_id,omitempty"`
	Type             ViolationType   `json:"violation_type"`
	Description      string          `json:"description"`
	FineAmount       decimal.Decimal `json:"fine_amount"`
	IsPaid           bool            `json:"is_paid"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedOn        time.Time       `json:"created_on"`
}
