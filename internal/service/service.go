package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

// SlotAllocator decides where a vehicle parks. Every method runs on the
// repositories of the caller's unit of work.
type SlotAllocator interface {
	Capacity(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error)
	AvailableCount(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error)
	OccupiedCount(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error)
	OccupancyRate(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (float64, error)
	// Assign claims a slot in the zone with the given status. A nil result with
	// a nil error is a capacity-only assignment for zones without slot rows.
	Assign(ctx context.Context, repos repository.Repositories, zone *domain.Zone, slotID *int32, status domain.SlotStatus) (*int32, error)
	Release(ctx context.Context, repos repository.Repositories, slotID *int32) error
}

// WalletLedger moves money in and out of user wallets. Debit and Credit
// write the balance and the ledger entry together on the caller's repositories.
type WalletLedger interface {
	EnsureFunds(ctx context.Context, repos repository.Repositories, userID int32, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, repos repository.Repositories, entry domain.LedgerEntry) (*domain.WalletTransaction, error)
	Credit(ctx context.Context, repos repository.Repositories, entry domain.LedgerEntry) (*domain.WalletTransaction, error)
	Balance(ctx context.Context, userID int32) (decimal.Decimal, error)
	Transactions(ctx context.Context, userID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error)
	TopUp(ctx context.Context, userID int32, amount decimal.Decimal, externalReference string) (*domain.WalletTransaction, error)
	Reconcile(ctx context.Context, userID int32) (*domain.WalletReconciliation, error)
	FindInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error)
}

type IssueViolationRequest struct {
	VehicleID        int32
	ZoneID           int32
	ParkingSessionID *int32
	OfficerID        *int32
	Type             domain.ViolationType
	FineAmount       decimal.Decimal
	Description      string
}

type ViolationIssuer interface {
	Issue(ctx context.Context, repos repository.Repositories, req IssueViolationRequest) (*domain.Violation, error)
	IssueByOfficer(ctx context.Context, officerID int32, req IssueViolationRequest) (*domain.Violation, error)
	ListForUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Violation, int32, error)
}

type StartSessionRequest struct {
	UserID        int32
	VehicleID     int32
	ZoneID        int32
	DurationHours decimal.Decimal
	SlotID        *int32
	PaymentMethod domain.PaymentMethod
}

// Session list filters.
const (
	SessionFilterActive    = "active"
	SessionFilterCompleted = "completed"
	SessionFilterAll       = "all"
)

type SessionService interface {
	Start(ctx context.Context, req StartSessionRequest) (*domain.ParkingSession, error)
	Extend(ctx context.Context, userID, sessionID int32, additionalHours decimal.Decimal) (*domain.ParkingSession, error)
	End(ctx context.Context, userID, sessionID int32) (*domain.SessionOutcome, error)
	Cancel(ctx context.Context, userID, sessionID int32) (*domain.SessionOutcome, error)
	// Expire ends an overdue session. It returns nil without error when the
	// session is no longer active or not yet due.
	Expire(ctx context.Context, sessionID int32) (*domain.SessionOutcome, error)
	ExpireOverdue(ctx context.Context) (int, error)
	SendExpiryAlerts(ctx context.Context) (int, error)
	Get(ctx context.Context, userID, sessionID int32) (*domain.ParkingSession, error)
	ActiveForVehicle(ctx context.Context, userID, vehicleID int32) (*domain.ParkingSession, error)
	List(ctx context.Context, userID int32, filter string, page, pageSize int32) ([]domain.ParkingSession, int32, error)
}

type CreateReservationRequest struct {
	UserID        int32
	VehicleID     int32
	ZoneID        int32
	ReservedFrom  time.Time
	ReservedUntil time.Time
	SlotID        *int32
}

type ReservationService interface {
	CheckAvailability(ctx context.Context, zoneID int32, from, until time.Time) (bool, error)
	Create(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error)
	Confirm(ctx context.Context, userID, reservationID int32, method domain.PaymentMethod, paymentReference string) (*domain.Reservation, error)
	Cancel(ctx context.Context, userID, reservationID int32) (*domain.Reservation, error)
	// ExpireUnpaid reports whether the reservation moved to expired.
	ExpireUnpaid(ctx context.Context, reservationID int32) (bool, error)
	ExpireStaleUnpaid(ctx context.Context) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
	Get(ctx context.Context, userID, reservationID int32) (*domain.Reservation, error)
	List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Reservation, int32, error)
}

type ZoneService interface {
	ListActive(ctx context.Context, countryCode string) ([]domain.Zone, error)
	Availability(ctx context.Context, zoneID int32) (*domain.ZoneAvailability, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

// Notice is a message for one user, delivered to the in-app inbox and any
// configured external channels.
type Notice struct {
	UserID     int32
	Title      string
	Message    string
	Category   domain.NotificationCategory
	Attributes map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, body string) error
}

// ExpiryScheduler arranges for an unpaid reservation to be expired later.
type ExpiryScheduler interface {
	ScheduleReservationExpiry(ctx context.Context, reservationID int32, delay time.Duration) error
}

// AvailabilityCache stores computed zone availability for a short time.
type AvailabilityCache interface {
	Get(ctx context.Context, zoneID int32) (*domain.ZoneAvailability, bool, error)
	Set(ctx context.Context, availability *domain.ZoneAvailability) error
}

// BillingPolicy carries the configurable parts of pricing and payment.
type BillingPolicy struct {
	ChargeExtensions bool
	ReservationHold  time.Duration
	StartSkew        time.Duration
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		ReservationHold: 15 * time.Minute,
		StartSkew:       10 * time.Minute,
	}
}

const sweepBatchSize = 500
