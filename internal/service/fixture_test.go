package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository/memory"
	"smartpark-backend/internal/service"
)

var fixtureStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	ctx          context.Context
	store        *memory.Store
	clock        *clock.FakeClock
	scheduler    *MockExpiryScheduler
	policy       service.BillingPolicy
	allocator    service.SlotAllocator
	ledger       service.WalletLedger
	violations   service.ViolationIssuer
	notifier     service.Notifier
	sessions     service.SessionService
	reservations service.ReservationService
	zones        service.ZoneService
}

func newFixture(t *testing.T, opts ...func(*service.BillingPolicy)) *fixture {
	t.Helper()

	f := &fixture{
		ctx:       context.Background(),
		store:     memory.NewStore(),
		clock:     clock.NewFakeClock(fixtureStart),
		scheduler: new(MockExpiryScheduler),
		policy:    service.DefaultBillingPolicy(),
	}
	for _, opt := range opts {
		opt(&f.policy)
	}
	f.scheduler.On("ScheduleReservationExpiry", mock.Anything, mock.AnythingOfType("int32"), mock.AnythingOfType("time.Duration")).Return(nil).Maybe()

	m := metrics.New(prometheus.NewRegistry())
	f.allocator = service.NewSlotAllocator()
	f.ledger = service.NewWalletLedger(f.store, f.clock, m)
	f.notifier = service.NewNotificationDispatcher(f.store, f.clock, nil, nil, m)
	f.violations = service.NewViolationIssuer(f.store, f.ledger, f.notifier, f.clock, m)
	f.sessions = service.NewSessionService(f.store, f.allocator, f.ledger, f.violations, f.notifier, f.clock, f.policy, m)
	f.reservations = service.NewReservationService(f.store, f.allocator, f.ledger, f.notifier, f.scheduler, f.clock, f.policy, m)
	f.zones = service.NewZoneService(f.store, f.allocator, nil)
	return f
}

// addZone creates a zone with the given rate, configured capacity and number
// of physical slot rows.
func (f *fixture) addZone(t *testing.T, rate string, totalSlots int32, physical int) (*domain.Zone, []*domain.ParkingSlot) {
	t.Helper()
	repos := f.store.Repos()

	zone := &domain.Zone{
		CountryCode:      "UG",
		Name:             "Kampala Road",
		HourlyRate:       decimal.RequireFromString(rate),
		TotalSlots:       totalSlots,
		MaxDurationHours: 24,
		IsActive:         true,
		CreatedOn:        fixtureStart,
		UpdatedOn:        fixtureStart,
	}
	require.NoError(t, repos.Zones.Create(f.ctx, zone))

	var slots []*domain.ParkingSlot
	for i := 0; i < physical; i++ {
		slot := &domain.ParkingSlot{
			ZoneID:    zone.ID,
			SlotCode:  fmt.Sprintf("A%d", i+1),
			SlotType:  domain.SlotTypeRegular,
			Status:    domain.SlotStatusAvailable,
			CreatedOn: fixtureStart.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repos.Slots.Create(f.ctx, slot))
		slots = append(slots, slot)
	}
	return zone, slots
}

// addDriver creates a user owning one vehicle, funded through the ledger.
func (f *fixture) addDriver(t *testing.T, plate, balance string) (*domain.User, *domain.Vehicle) {
	t.Helper()
	repos := f.store.Repos()

	user := &domain.User{Email: plate + "@test.com", Name: "Driver " + plate, Roles: []string{domain.RoleDriver}}
	require.NoError(t, repos.Users.Create(f.ctx, user))
	vehicle := &domain.Vehicle{UserID: user.ID, PlateNumber: plate, IsActive: true}
	require.NoError(t, repos.Vehicles.Create(f.ctx, vehicle))

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err := f.ledger.TopUp(f.ctx, user.ID, amount, "seed")
		require.NoError(t, err)
	}
	return user, vehicle
}

func (f *fixture) balance(t *testing.T, userID int32) string {
	t.Helper()
	b, err := f.ledger.Balance(f.ctx, userID)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func (f *fixture) slotStatus(t *testing.T, slotID int32) domain.SlotStatus {
	t.Helper()
	slot, err := f.store.Repos().Slots.GetByID(f.ctx, slotID)
	require.NoError(t, err)
	return slot.Status
}

func (f *fixture) transactions(t *testing.T, userID int32, txType domain.TransactionType) []domain.WalletTransaction {
	t.Helper()
	all, _, err := f.ledger.Transactions(f.ctx, userID, 1, 100)
	require.NoError(t, err)
	var out []domain.WalletTransaction
	for _, tx := range all {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

// requireConsistent asserts the wallet balance equals the ledger sum.
func (f *fixture) requireConsistent(t *testing.T, userID int32) {
	t.Helper()
	rec, err := f.ledger.Reconcile(f.ctx, userID)
	require.NoError(t, err)
	require.True(t, rec.Consistent, "balance %s, ledger %s", rec.Balance, rec.LedgerSum)
}

func hours(h string) decimal.Decimal {
	return decimal.RequireFromString(h)
}
