package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/repository/memory"
)

func TestStore_RunInTx(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	user := &domain.User{Email: "driver@test.com", Name: "Driver"}
	assert.NoError(t, store.Repos().Users.Create(ctx, user))

	t.Run("Commit", func(t *testing.T) {
		err := store.RunInTx(ctx, func(repos repository.Repositories) error {
			_, err := repos.Wallet.ApplyDelta(ctx, user.ID, decimal.NewFromInt(500))
			return err
		})
		assert.NoError(t, err)

		balance, err := store.Repos().Wallet.GetBalance(ctx, user.ID)
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(500).Equal(balance))
	})

	t.Run("Rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(repos repository.Repositories) error {
			if _, err := repos.Wallet.ApplyDelta(ctx, user.ID, decimal.NewFromInt(-500)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		balance, err := store.Repos().Wallet.GetBalance(ctx, user.ID)
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(500).Equal(balance))
	})
}

func TestSessionRepository_OneActivePerVehicle(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := store.Repos().Sessions
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := &domain.ParkingSession{VehicleID: 1, ZoneID: 1, Status: domain.SessionStatusActive, StartTime: now, PlannedEndTime: now.Add(time.Hour)}
	assert.NoError(t, repo.Create(ctx, first))

	second := &domain.ParkingSession{VehicleID: 1, ZoneID: 2, Status: domain.SessionStatusActive, StartTime: now, PlannedEndTime: now.Add(time.Hour)}
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrActiveSessionExists)

	first.Status = domain.SessionStatusCompleted
	assert.NoError(t, repo.Update(ctx, first))
	assert.NoError(t, repo.Create(ctx, second))

	active, err := repo.FindActiveForVehicle(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestSlotRepository_FindFirstAvailable(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := store.Repos().Slots
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := &domain.ParkingSlot{ZoneID: 1, SlotCode: "A2", Status: domain.SlotStatusAvailable, CreatedOn: base.Add(time.Minute)}
	older := &domain.ParkingSlot{ZoneID: 1, SlotCode: "A1", Status: domain.SlotStatusAvailable, CreatedOn: base}
	taken := &domain.ParkingSlot{ZoneID: 1, SlotCode: "A0", Status: domain.SlotStatusOccupied, CreatedOn: base.Add(-time.Hour)}
	for _, s := range []*domain.ParkingSlot{newer, older, taken} {
		assert.NoError(t, repo.Create(ctx, s))
	}

	slot, err := repo.FindFirstAvailable(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "A1", slot.SlotCode)

	assert.NoError(t, repo.Claim(ctx, 1, older.ID, domain.SlotStatusOccupied))
	assert.ErrorIs(t, repo.Claim(ctx, 1, older.ID, domain.SlotStatusOccupied), domain.ErrSlotUnavailable)
	assert.ErrorIs(t, repo.Claim(ctx, 2, newer.ID, domain.SlotStatusOccupied), domain.ErrSlotUnavailable)

	slot, err = repo.FindFirstAvailable(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "A2", slot.SlotCode)

	assert.NoError(t, repo.Claim(ctx, 1, newer.ID, domain.SlotStatusReserved))
	_, err = repo.FindFirstAvailable(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationRepository_CountOverlapping(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := store.Repos().Reservations
	base := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	assert.NoError(t, repo.Create(ctx, &domain.Reservation{ZoneID: 1, ReservedFrom: base, ReservedUntil: base.Add(2 * time.Hour), Status: domain.ReservationStatusConfirmed}))
	assert.NoError(t, repo.Create(ctx, &domain.Reservation{ZoneID: 1, ReservedFrom: base, ReservedUntil: base.Add(time.Hour), Status: domain.ReservationStatusCancelled}))

	n, err := repo.CountOverlapping(ctx, 1, base.Add(time.Hour), base.Add(3*time.Hour), domain.HoldingStatuses)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	// Touching windows do not overlap.
	n, err = repo.CountOverlapping(ctx, 1, base.Add(2*time.Hour), base.Add(3*time.Hour), domain.HoldingStatuses)
	assert.NoError(t, err)
	assert.Equal(t, int32(0), n)
}

func TestNotificationRepository_ExistsSince(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := store.Repos().Notifications
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, repo.Create(ctx, &domain.Notification{
		UserID:     1,
		Attributes: map[string]string{"parking_session_id": "5", "minutes_left": "10"},
		CreatedOn:  now,
	}))

	found, err := repo.ExistsSince(ctx, 1, map[string]string{"parking_session_id": "5", "minutes_left": "10"}, now.Add(-2*time.Minute))
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsSince(ctx, 1, map[string]string{"parking_session_id": "5", "minutes_left": "5"}, now.Add(-2*time.Minute))
	assert.NoError(t, err)
	assert.False(t, found)

	found, err = repo.ExistsSince(ctx, 1, map[string]string{"parking_session_id": "5"}, now.Add(time.Minute))
	assert.NoError(t, err)
	assert.False(t, found)
}
