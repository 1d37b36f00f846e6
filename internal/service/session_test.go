package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/service"
)

func TestSessionService_Start(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 2, 2)
		user, vehicle := f.addDriver(t, "UAX001", "5000")

		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID:        user.ID,
			VehicleID:     vehicle.ID,
			ZoneID:        zone.ID,
			DurationHours: hours("2"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusActive, session.Status)
		assert.Equal(t, domain.PaymentMethodWallet, session.PaymentMethod)
		assert.Equal(t, "2000.00", session.EstimatedCost.StringFixed(2))
		assert.Equal(t, fixtureStart.Add(2*time.Hour), session.PlannedEndTime)
		require.NotNil(t, session.SlotID)
		assert.Equal(t, slots[0].ID, *session.SlotID)
		assert.Equal(t, domain.SlotStatusOccupied, f.slotStatus(t, slots[0].ID))
		assert.Equal(t, "3000.00", f.balance(t, user.ID))
		assert.Len(t, f.transactions(t, user.ID, domain.TransactionTypePayment), 1)
		f.requireConsistent(t, user.ID)
	})

	t.Run("Insufficient Funds", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UAX002", "500")

		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Contains(t, err.Error(), "required 1000.00")
		assert.Equal(t, domain.SlotStatusAvailable, f.slotStatus(t, slots[0].ID))
		assert.Equal(t, "500.00", f.balance(t, user.ID))
	})

	t.Run("Card Payment Skips Wallet", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UAX003", "0")

		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID,
			DurationHours: hours("1"), PaymentMethod: domain.PaymentMethodCard,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentMethodCard, session.PaymentMethod)
		assert.Equal(t, "0.00", f.balance(t, user.ID))
	})

	t.Run("Zone Full", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		first, firstVehicle := f.addDriver(t, "UAX004", "5000")
		second, secondVehicle := f.addDriver(t, "UAX005", "5000")

		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: first.ID, VehicleID: firstVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		_, err = f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: second.ID, VehicleID: secondVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		assert.ErrorIs(t, err, domain.ErrNoCapacity)
		assert.Equal(t, "5000.00", f.balance(t, second.ID))
	})

	t.Run("Capacity Without Slot Rows", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 0)
		first, firstVehicle := f.addDriver(t, "UAX006", "5000")
		second, secondVehicle := f.addDriver(t, "UAX007", "5000")

		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: first.ID, VehicleID: firstVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)
		assert.Nil(t, session.SlotID)

		_, err = f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: second.ID, VehicleID: secondVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		assert.ErrorIs(t, err, domain.ErrNoCapacity)
	})

	t.Run("Requested Slot Taken", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 2, 2)
		first, firstVehicle := f.addDriver(t, "UAX008", "5000")
		second, secondVehicle := f.addDriver(t, "UAX009", "5000")

		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: first.ID, VehicleID: firstVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"), SlotID: &slots[1].ID,
		})
		require.NoError(t, err)

		_, err = f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: second.ID, VehicleID: secondVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"), SlotID: &slots[1].ID,
		})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("Vehicle Of Another User", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, _ := f.addDriver(t, "UAX010", "5000")
		_, otherVehicle := f.addDriver(t, "UAX011", "5000")

		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: otherVehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Invalid Duration", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UAX012", "5000")

		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("0"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("25"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSessionService_Start_OneActivePerVehicle(t *testing.T) {
	f := newFixture(t)
	zone, _ := f.addZone(t, "1000", 10, 10)
	user, vehicle := f.addDriver(t, "UBB100", "100000")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sessions.Start(f.ctx, service.StartSessionRequest{
				UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrActiveSessionExists)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "99000.00", f.balance(t, user.ID))
	f.requireConsistent(t, user.ID)
}

func TestSessionService_Extend(t *testing.T) {
	t.Run("Not Charged By Default", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UCC001", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		extended, err := f.sessions.Extend(f.ctx, user.ID, session.ID, hours("0.5"))
		require.NoError(t, err)
		assert.Equal(t, fixtureStart.Add(90*time.Minute), extended.PlannedEndTime)
		assert.Equal(t, "1500.00", extended.EstimatedCost.StringFixed(2))
		assert.Equal(t, "4000.00", f.balance(t, user.ID))
	})

	t.Run("Charged When Enabled", func(t *testing.T) {
		f := newFixture(t, func(p *service.BillingPolicy) { p.ChargeExtensions = true })
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UCC002", "1200")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		_, err = f.sessions.Extend(f.ctx, user.ID, session.ID, hours("0.5"))
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		extended, err := f.sessions.Extend(f.ctx, user.ID, session.ID, hours("0.2"))
		require.NoError(t, err)
		assert.Equal(t, "1200.00", extended.EstimatedCost.StringFixed(2))
		assert.Equal(t, "0.00", f.balance(t, user.ID))
		assert.Len(t, f.transactions(t, user.ID, domain.TransactionTypePayment), 2)
		f.requireConsistent(t, user.ID)
	})

	t.Run("Not Active", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UCC003", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)
		_, err = f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)

		_, err = f.sessions.Extend(f.ctx, user.ID, session.ID, hours("1"))
		assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	})
}

func TestSessionService_End(t *testing.T) {
	t.Run("Refunds Unused Time", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD001", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("2"),
		})
		require.NoError(t, err)

		f.clock.Advance(30 * time.Minute)
		outcome, err := f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, outcome.Session.Status)
		assert.Equal(t, "500.00", outcome.AmountDue.StringFixed(2))
		assert.Equal(t, "1500.00", outcome.RefundAmount.StringFixed(2))
		assert.Equal(t, "4500.00", outcome.NewBalance.StringFixed(2))
		require.NotNil(t, outcome.Session.ActualEndTime)
		assert.Equal(t, fixtureStart.Add(30*time.Minute), *outcome.Session.ActualEndTime)
		assert.Equal(t, domain.SlotStatusAvailable, f.slotStatus(t, slots[0].ID))

		// final cost plus refund covers the prepaid estimate exactly
		assert.True(t, outcome.AmountDue.Add(outcome.RefundAmount).Equal(session.EstimatedCost))
		f.requireConsistent(t, user.ID)
	})

	t.Run("Minimum Billable Duration", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD002", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		f.clock.Advance(5 * time.Minute)
		outcome, err := f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "250.00", outcome.AmountDue.StringFixed(2))
		assert.Equal(t, "750.00", outcome.RefundAmount.StringFixed(2))
	})

	t.Run("Fractional Hours", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD003", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("2"),
		})
		require.NoError(t, err)

		f.clock.Advance(90 * time.Minute)
		outcome, err := f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "1500.00", outcome.AmountDue.StringFixed(2))
		assert.Equal(t, "500.00", outcome.RefundAmount.StringFixed(2))
	})

	t.Run("Past Planned End", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD004", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		outcome, err := f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "2000.00", outcome.AmountDue.StringFixed(2))
		assert.True(t, outcome.RefundAmount.IsZero())
		assert.Equal(t, "4000.00", f.balance(t, user.ID))
	})

	t.Run("Other Users Session", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD005", "5000")
		other, _ := f.addDriver(t, "UDD006", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		_, err = f.sessions.End(f.ctx, other.ID, session.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Twice", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UDD007", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		_, err = f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		_, err = f.sessions.End(f.ctx, user.ID, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotActive)
		assert.Len(t, f.transactions(t, user.ID, domain.TransactionTypeRefund), 1)
	})
}

func TestSessionService_Cancel(t *testing.T) {
	t.Run("Immediately After Start", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "2000", 1, 1)
		user, vehicle := f.addDriver(t, "UEE001", "10000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("2"),
		})
		require.NoError(t, err)
		assert.Equal(t, "4000.00", session.EstimatedCost.StringFixed(2))

		outcome, err := f.sessions.Cancel(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCancelled, outcome.Session.Status)
		assert.Equal(t, "4000.00", outcome.RefundAmount.StringFixed(2))
		assert.Equal(t, "0.00", outcome.Session.FinalCost.Decimal.StringFixed(2))
		assert.Equal(t, "10000.00", outcome.NewBalance.StringFixed(2))
		assert.Equal(t, domain.SlotStatusAvailable, f.slotStatus(t, slots[0].ID))
		f.requireConsistent(t, user.ID)
	})

	t.Run("Proportional Refund", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UEE002", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("2"),
		})
		require.NoError(t, err)

		f.clock.Advance(30 * time.Minute)
		outcome, err := f.sessions.Cancel(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "1500.00", outcome.RefundAmount.StringFixed(2))
		assert.Equal(t, "500.00", outcome.Session.FinalCost.Decimal.StringFixed(2))
		assert.Equal(t, "4500.00", f.balance(t, user.ID))
	})

	t.Run("After Planned End Behaves Like End", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UEE003", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		outcome, err := f.sessions.Cancel(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, outcome.Session.Status)
		assert.Equal(t, "1000.00", outcome.AmountDue.StringFixed(2))
		assert.True(t, outcome.RefundAmount.IsZero())
		assert.Empty(t, f.transactions(t, user.ID, domain.TransactionTypeRefund))
	})

	t.Run("After Planned End Following Extension Refunds Nothing", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UEE004", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("0.1"),
		})
		require.NoError(t, err)
		_, err = f.sessions.Extend(f.ctx, user.ID, session.ID, hours("0.1"))
		require.NoError(t, err)

		f.clock.Advance(13 * time.Minute)
		outcome, err := f.sessions.Cancel(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, outcome.Session.Status)
		assert.Equal(t, "350.00", outcome.Session.EstimatedCost.StringFixed(2))
		assert.Equal(t, "250.00", outcome.AmountDue.StringFixed(2))
		assert.True(t, outcome.RefundAmount.IsZero())
		assert.Equal(t, "4750.00", outcome.NewBalance.StringFixed(2))
		assert.Empty(t, f.transactions(t, user.ID, domain.TransactionTypeRefund))
		f.requireConsistent(t, user.ID)
	})
}

func TestSessionService_Expire(t *testing.T) {
	t.Run("Overdue With Insufficient Funds", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UFF001", "1500")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)
		assert.Equal(t, "500.00", f.balance(t, user.ID))

		f.clock.Advance(108 * time.Minute)
		count, err := f.sessions.ExpireOverdue(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		expired, err := f.sessions.Get(f.ctx, user.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusExpired, expired.Status)
		assert.Equal(t, "1800.00", expired.FinalCost.Decimal.StringFixed(2))
		assert.Equal(t, domain.SlotStatusAvailable, f.slotStatus(t, slots[0].ID))
		assert.Equal(t, "-300.00", f.balance(t, user.ID))

		payments := f.transactions(t, user.ID, domain.TransactionTypePayment)
		require.Len(t, payments, 2)
		amounts := []string{payments[0].Amount.StringFixed(2), payments[1].Amount.StringFixed(2)}
		assert.ElementsMatch(t, []string{"1000.00", "800.00"}, amounts)

		violations, total, err := f.violations.ListForUser(f.ctx, user.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
		require.Len(t, violations, 1)
		assert.Equal(t, domain.ViolationTypeExpired, violations[0].Type)
		assert.Equal(t, "800.00", violations[0].FineAmount.StringFixed(2))
		assert.False(t, violations[0].IsPaid)
		require.NotNil(t, violations[0].ParkingSessionID)
		assert.Equal(t, session.ID, *violations[0].ParkingSessionID)
		f.requireConsistent(t, user.ID)
	})

	t.Run("Overdue With Funds", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UFF002", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		f.clock.Advance(90 * time.Minute)
		outcome, err := f.sessions.Expire(f.ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, outcome)
		assert.Equal(t, "500.00", outcome.OverdueCharge.StringFixed(2))
		assert.Nil(t, outcome.Violation)
		assert.Equal(t, "3500.00", outcome.NewBalance.StringFixed(2))
	})

	t.Run("Not Yet Due", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 1, 1)
		user, vehicle := f.addDriver(t, "UFF003", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		f.clock.Advance(59 * time.Minute)
		outcome, err := f.sessions.Expire(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Nil(t, outcome)

		count, err := f.sessions.ExpireOverdue(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("Sweep Skips Finished Sessions", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 2, 2)
		user, vehicle := f.addDriver(t, "UFF004", "5000")
		session, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)
		_, err = f.sessions.End(f.ctx, user.ID, session.ID)
		require.NoError(t, err)

		f.clock.Advance(3 * time.Hour)
		count, err := f.sessions.ExpireOverdue(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		outcome, err := f.sessions.Expire(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Nil(t, outcome)
	})
}

func TestSessionService_SendExpiryAlerts(t *testing.T) {
	f := newFixture(t)
	zone, _ := f.addZone(t, "1000", 1, 1)
	user, vehicle := f.addDriver(t, "UGG001", "5000")
	_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
		UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
	})
	require.NoError(t, err)

	f.clock.Advance(50*time.Minute + 30*time.Second)
	sent, err := f.sessions.SendExpiryAlerts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// same window again is deduplicated
	sent, err = f.sessions.SendExpiryAlerts(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	f.clock.Advance(5 * time.Minute)
	sent, err = f.sessions.SendExpiryAlerts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	inbox, _, err := service.NewNotificationService(f.store).GetNotifications(f.ctx, user.ID, 1, 20)
	require.NoError(t, err)
	alerts := 0
	for _, n := range inbox {
		if n.Title == "Parking Expiring Soon" {
			alerts++
		}
	}
	assert.Equal(t, 2, alerts)
}

func TestSessionService_List(t *testing.T) {
	f := newFixture(t)
	zone, _ := f.addZone(t, "1000", 3, 3)
	user, vehicle := f.addDriver(t, "UHH001", "10000")
	repos := f.store.Repos()
	second := &domain.Vehicle{UserID: user.ID, PlateNumber: "UHH002", IsActive: true}
	require.NoError(t, repos.Vehicles.Create(f.ctx, second))

	first, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
		UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
	})
	require.NoError(t, err)
	_, err = f.sessions.End(f.ctx, user.ID, first.ID)
	require.NoError(t, err)
	_, err = f.sessions.Start(f.ctx, service.StartSessionRequest{
		UserID: user.ID, VehicleID: second.ID, ZoneID: zone.ID, DurationHours: hours("1"),
	})
	require.NoError(t, err)

	active, total, err := f.sessions.List(f.ctx, user.ID, service.SessionFilterActive, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].VehicleID)

	done, total, err := f.sessions.List(f.ctx, user.ID, service.SessionFilterCompleted, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, done, 1)
	assert.Equal(t, first.ID, done[0].ID)

	_, total, err = f.sessions.List(f.ctx, user.ID, service.SessionFilterAll, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), total)

	_, _, err = f.sessions.List(f.ctx, user.ID, "bogus", 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	current, err := f.sessions.ActiveForVehicle(f.ctx, user.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, current.Status)

	_, err = f.sessions.ActiveForVehicle(f.ctx, user.ID, vehicle.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
