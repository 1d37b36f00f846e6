package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
)

type ZoneRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Zone, error)
	// LockForUpdate takes an exclusive lock on the zone row for the rest of the
	// enclosing transaction.
	LockForUpdate(ctx context.Context, id int32) (*domain.Zone, error)
	ListActive(ctx context.Context, countryCode string) ([]domain.Zone, error)
	Create(ctx context.Context, zone *domain.Zone) error
}

type SlotRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.ParkingSlot, error)
	CountByZone(ctx context.Context, zoneID int32) (int32, error)
	CountByStatus(ctx context.Context, zoneID int32) (map[domain.SlotStatus]int32, error)
	// FindFirstAvailable returns the oldest available slot of the zone, locked
	// for the enclosing transaction, or domain.ErrNotFound.
	FindFirstAvailable(ctx context.Context, zoneID int32) (*domain.ParkingSlot, error)
	// Claim moves an available slot of the zone to the given status and fails
	// with domain.ErrSlotUnavailable otherwise.
	Claim(ctx context.Context, zoneID, slotID int32, status domain.SlotStatus) error
	// SetStatus writes the status unconditionally.
	SetStatus(ctx context.Context, slotID int32, status domain.SlotStatus) error
	Create(ctx context.Context, slot *domain.ParkingSlot) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Vehicle, error)
	Create(ctx context.Context, vehicle *domain.Vehicle) error
}

type SessionRepository interface {
	// Create inserts an active session and fails with
	// domain.ErrActiveSessionExists if the vehicle already has one.
	Create(ctx context.Context, session *domain.ParkingSession) error
	GetByID(ctx context.Context, id int32) (*domain.ParkingSession, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.ParkingSession, error)
	Update(ctx context.Context, session *domain.ParkingSession) error
	FindActiveForVehicle(ctx context.Context, vehicleID int32) (*domain.ParkingSession, error)
	CountActiveInZone(ctx context.Context, zoneID int32) (int32, error)
	ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error)
	ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]domain.ParkingSession, error)
	ListByUser(ctx context.Context, userID int32, statuses []domain.SessionStatus, page, pageSize int32) ([]domain.ParkingSession, int32, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Reservation, error)
	Update(ctx context.Context, reservation *domain.Reservation) error
	// CountOverlapping counts reservations of the zone in the given statuses
	// whose window intersects [from, until).
	CountOverlapping(ctx context.Context, zoneID int32, from, until time.Time, statuses []domain.ReservationStatus) (int32, error)
	// ListHoldingForSlot returns pending or confirmed reservations booked on
	// the slot whose window intersects [from, until).
	ListHoldingForSlot(ctx context.Context, slotID int32, from, until time.Time) ([]domain.Reservation, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error)
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error)
	ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Reservation, int32, error)
}

type WalletRepository interface {
	GetBalance(ctx context.Context, userID int32) (decimal.Decimal, error)
	// LockBalance reads the balance holding a row lock until the enclosing
	// transaction ends.
	LockBalance(ctx context.Context, userID int32) (decimal.Decimal, error)
	// ApplyDelta adds delta to the balance and returns the new value.
	ApplyDelta(ctx context.Context, userID int32, delta decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	ListTransactions(ctx context.Context, userID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error)
	// SumSigned totals completed entries, debits negative.
	SumSigned(ctx context.Context, userID int32) (decimal.Decimal, error)
	ListInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error)
}

type ViolationRepository interface {
	Create(ctx context.Context, violation *domain.Violation) error
	GetByID(ctx context.Context, id int32) (*domain.Violation, error)
	MarkPaid(ctx context.Context, id int32, paidAt time.Time) error
	ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Violation, int32, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
	// ExistsSince reports whether the user received a notification carrying all
	// the given attributes at or after since.
	ExistsSince(ctx context.Context, userID int32, attrs map[string]string, since time.Time) (bool, error)
}

// Repositories is a set of repositories bound to one connection or transaction.
type Repositories struct {
	Zones         ZoneRepository
	Slots         SlotRepository
	Users         UserRepository
	Vehicles      VehicleRepository
	Sessions      SessionRepository
	Reservations  ReservationRepository
	Wallet        WalletRepository
	Violations    ViolationRepository
	Notifications NotificationRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	Repos() Repositories
	// RunInTx runs fn against repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(repos Repositories) error) error
	Ping(ctx context.Context) error
}
