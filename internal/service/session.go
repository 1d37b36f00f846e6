package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/utils"
)

// Minutes before the planned end at which drivers are reminded.
var expiryAlertMinutes = []int{10, 5}

const alertDedupWindow = 2 * time.Minute

type sessionService struct {
	store      repository.Store
	allocator  SlotAllocator
	ledger     WalletLedger
	violations ViolationIssuer
	notifier   Notifier
	clock      clock.Clock
	policy     BillingPolicy
	metrics    *metrics.Metrics
}

func NewSessionService(
	store repository.Store,
	allocator SlotAllocator,
	ledger WalletLedger,
	violations ViolationIssuer,
	notifier Notifier,
	clk clock.Clock,
	policy BillingPolicy,
	m *metrics.Metrics,
) SessionService {
	return &sessionService{
		store:      store,
		allocator:  allocator,
		ledger:     ledger,
		violations: violations,
		notifier:   notifier,
		clock:      clk,
		policy:     policy,
		metrics:    m,
	}
}

func (s *sessionService) Start(ctx context.Context, req StartSessionRequest) (*domain.ParkingSession, error) {
	logger.EnterMethod("sessionService.Start", "userID", req.UserID, "vehicleID", req.VehicleID, "zoneID", req.ZoneID)

	if !req.DurationHours.IsPositive() {
		return nil, fmt.Errorf("%w: duration_hours must be positive", domain.ErrInvalidInput)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodWallet
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, req.PaymentMethod)
	}

	now := s.clock.Now()
	var session *domain.ParkingSession
	var zoneName string

	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		if _, err := ownedVehicle(ctx, repos, req.UserID, req.VehicleID); err != nil {
			return err
		}
		zone, err := activeZone(ctx, repos, req.ZoneID)
		if err != nil {
			return err
		}
		zoneName = zone.Name
		if zone.MaxDurationHours > 0 && req.DurationHours.GreaterThan(decimal.NewFromInt32(zone.MaxDurationHours)) {
			return fmt.Errorf("%w: duration exceeds the zone maximum of %d hours", domain.ErrInvalidInput, zone.MaxDurationHours)
		}

		if _, err := repos.Sessions.FindActiveForVehicle(ctx, req.VehicleID); err == nil {
			return domain.ErrActiveSessionExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		cost := utils.CostForHours(zone.HourlyRate, req.DurationHours)
		if req.PaymentMethod == domain.PaymentMethodWallet {
			if _, err := s.ledger.EnsureFunds(ctx, repos, req.UserID, cost); err != nil {
				return err
			}
		}

		plannedEnd := now.Add(utils.DurationFromHours(req.DurationHours))
		if req.SlotID != nil {
			own, err := bookableSlot(ctx, repos, zone.ID, *req.SlotID, req.VehicleID, now, plannedEnd)
			if err != nil {
				return err
			}
			if err := s.releaseHeldSlot(ctx, repos, *req.SlotID, own); err != nil {
				return err
			}
		}
		slotID, err := s.allocator.Assign(ctx, repos, zone, req.SlotID, domain.SlotStatusOccupied)
		if err != nil {
			return err
		}

		session = &domain.ParkingSession{
			VehicleID:      req.VehicleID,
			UserID:         req.UserID,
			ZoneID:         zone.ID,
			SlotID:         slotID,
			StartTime:      now,
			PlannedEndTime: plannedEnd,
			Status:         domain.SessionStatusActive,
			PaymentMethod:  req.PaymentMethod,
			EstimatedCost:  cost,
			CreatedOn:      now,
			UpdatedOn:      now,
		}
		if err := repos.Sessions.Create(ctx, session); err != nil {
			return err
		}

		if req.PaymentMethod == domain.PaymentMethodWallet && cost.IsPositive() {
			_, err := s.ledger.Debit(ctx, repos, domain.LedgerEntry{
				UserID:           req.UserID,
				Amount:           cost,
				Type:             domain.TransactionTypePayment,
				Description:      fmt.Sprintf("Parking at %s", zone.Name),
				ParkingSessionID: &session.ID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("sessionService.Start", err, "vehicleID", req.VehicleID)
		return nil, err
	}

	s.metrics.SessionTransition("started")
	notify(ctx, s.notifier, Notice{
		UserID:     session.UserID,
		Title:      "Parking Started",
		Message:    fmt.Sprintf("Your parking at %s has started. It ends at %s.", zoneName, session.PlannedEndTime.Format("15:04")),
		Category:   domain.NotificationCategoryParking,
		Attributes: sessionAttributes(session),
	})

	logger.ExitMethod("sessionService.Start", "sessionID", session.ID, logger.Money("estimatedCost", session.EstimatedCost))
	return session, nil
}

func (s *sessionService) Extend(ctx context.Context, userID, sessionID int32, additionalHours decimal.Decimal) (*domain.ParkingSession, error) {
	logger.EnterMethod("sessionService.Extend", "sessionID", sessionID, "hours", additionalHours.String())

	if !additionalHours.IsPositive() {
		return nil, fmt.Errorf("%w: additional_hours must be positive", domain.ErrInvalidInput)
	}

	var session *domain.ParkingSession
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		var err error
		session, err = s.activeSessionForUpdate(ctx, repos, userID, sessionID)
		if err != nil {
			return err
		}
		zone, err := repos.Zones.GetByID(ctx, session.ZoneID)
		if err != nil {
			return fmt.Errorf("zone: %w", err)
		}

		extra := utils.ExtensionCost(zone.HourlyRate, additionalHours)
		if s.policy.ChargeExtensions && session.PaymentMethod == domain.PaymentMethodWallet && extra.IsPositive() {
			if _, err := s.ledger.EnsureFunds(ctx, repos, session.UserID, extra); err != nil {
				return err
			}
			if _, err := s.ledger.Debit(ctx, repos, domain.LedgerEntry{
				UserID:           session.UserID,
				Amount:           extra,
				Type:             domain.TransactionTypePayment,
				Description:      fmt.Sprintf("Parking extension at %s", zone.Name),
				ParkingSessionID: &session.ID,
			}); err != nil {
				return err
			}
		}

		session.PlannedEndTime = session.PlannedEndTime.Add(utils.DurationFromHours(additionalHours))
		session.EstimatedCost = session.EstimatedCost.Add(extra)
		session.UpdatedOn = s.clock.Now()
		return repos.Sessions.Update(ctx, session)
	})
	if err != nil {
		logger.ExitMethodWithError("sessionService.Extend", err, "sessionID", sessionID)
		return nil, err
	}

	s.metrics.SessionTransition("extended")
	logger.ExitMethod("sessionService.Extend", "sessionID", session.ID, "plannedEnd", session.PlannedEndTime)
	return session, nil
}

func (s *sessionService) End(ctx context.Context, userID, sessionID int32) (*domain.SessionOutcome, error) {
	logger.EnterMethod("sessionService.End", "sessionID", sessionID)

	var outcome *domain.SessionOutcome
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		session, err := s.activeSessionForUpdate(ctx, repos, userID, sessionID)
		if err != nil {
			return err
		}
		outcome, err = s.complete(ctx, repos, session, true)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("sessionService.End", err, "sessionID", sessionID)
		return nil, err
	}

	s.afterCompletion(ctx, outcome)
	logger.ExitMethod("sessionService.End", "sessionID", sessionID, logger.Money("finalCost", outcome.AmountDue))
	return outcome, nil
}

func (s *sessionService) Cancel(ctx context.Context, userID, sessionID int32) (*domain.SessionOutcome, error) {
	logger.EnterMethod("sessionService.Cancel", "sessionID", sessionID)

	var outcome *domain.SessionOutcome
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		session, err := s.activeSessionForUpdate(ctx, repos, userID, sessionID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if !now.Before(session.PlannedEndTime) {
			// Nothing left to refund once the planned window has run out.
			outcome, err = s.complete(ctx, repos, session, false)
			return err
		}

		refund := utils.ProportionalRefund(session.EstimatedCost, session.PlannedEndTime.Sub(now), session.PlannedDuration())
		session.ActualEndTime = &now
		session.FinalCost = decimal.NewNullDecimal(session.EstimatedCost.Sub(refund))
		session.Status = domain.SessionStatusCancelled
		session.UpdatedOn = now
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return err
		}
		if err := s.allocator.Release(ctx, repos, session.SlotID); err != nil {
			return err
		}

		outcome = &domain.SessionOutcome{
			Session:      session,
			AmountDue:    session.FinalCost.Decimal,
			RefundAmount: refund,
		}
		outcome.NewBalance, err = s.refund(ctx, repos, session, refund, "Refund for cancelled parking")
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("sessionService.Cancel", err, "sessionID", sessionID)
		return nil, err
	}

	if outcome.Session.Status == domain.SessionStatusCompleted {
		s.afterCompletion(ctx, outcome)
	} else {
		s.metrics.SessionTransition("cancelled")
		notify(ctx, s.notifier, Notice{
			UserID:     outcome.Session.UserID,
			Title:      "Parking Cancelled",
			Message:    fmt.Sprintf("Your parking was cancelled. %s was refunded to your wallet.", outcome.RefundAmount.StringFixed(2)),
			Category:   domain.NotificationCategoryWallet,
			Attributes: sessionAttributes(outcome.Session),
		})
	}

	logger.ExitMethod("sessionService.Cancel", "sessionID", sessionID, logger.Money("refund", outcome.RefundAmount))
	return outcome, nil
}

// releaseHeldSlot frees a slot held as reserved by one of the vehicle's
// confirmed reservations so that the holder can occupy it.
func (s *sessionService) releaseHeldSlot(ctx context.Context, repos repository.Repositories, slotID int32, own []domain.Reservation) error {
	for _, res := range own {
		if res.Status != domain.ReservationStatusConfirmed {
			continue
		}
		slot, err := repos.Slots.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status == domain.SlotStatusReserved {
			return s.allocator.Release(ctx, repos, &slotID)
		}
		return nil
	}
	return nil
}

// complete finalizes an active session at the current time. With
// refundUnused set, any prepaid amount above the final cost goes back to the
// wallet. The caller holds the session lock.
func (s *sessionService) complete(ctx context.Context, repos repository.Repositories, session *domain.ParkingSession, refundUnused bool) (*domain.SessionOutcome, error) {
	zone, err := repos.Zones.GetByID(ctx, session.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("zone: %w", err)
	}

	now := s.clock.Now()
	final := utils.CalculateCost(zone.HourlyRate, now.Sub(session.StartTime))
	session.ActualEndTime = &now
	session.FinalCost = decimal.NewNullDecimal(final)
	session.Status = domain.SessionStatusCompleted
	session.UpdatedOn = now
	if err := repos.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	if err := s.allocator.Release(ctx, repos, session.SlotID); err != nil {
		return nil, err
	}

	refund := decimal.Zero
	if refundUnused && session.EstimatedCost.GreaterThan(final) {
		refund = session.EstimatedCost.Sub(final)
	}

	outcome := &domain.SessionOutcome{
		Session:      session,
		AmountDue:    final,
		RefundAmount: refund,
	}
	outcome.NewBalance, err = s.refund(ctx, repos, session, refund, "Refund for unused parking time")
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// refund credits the wallet when amount is positive and returns the balance.
func (s *sessionService) refund(ctx context.Context, repos repository.Repositories, session *domain.ParkingSession, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return repos.Wallet.GetBalance(ctx, session.UserID)
	}
	tx, err := s.ledger.Credit(ctx, repos, domain.LedgerEntry{
		UserID:           session.UserID,
		Amount:           amount,
		Type:             domain.TransactionTypeRefund,
		Description:      description,
		ParkingSessionID: &session.ID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return tx.BalanceAfter, nil
}

func (s *sessionService) afterCompletion(ctx context.Context, outcome *domain.SessionOutcome) {
	s.metrics.SessionTransition("completed")
	message := fmt.Sprintf("Your parking has ended. Total cost: %s.", outcome.AmountDue.StringFixed(2))
	if outcome.RefundAmount.IsPositive() {
		message += fmt.Sprintf(" %s was refunded to your wallet.", outcome.RefundAmount.StringFixed(2))
	}
	notify(ctx, s.notifier, Notice{
		UserID:     outcome.Session.UserID,
		Title:      "Parking Ended",
		Message:    message,
		Category:   domain.NotificationCategoryParking,
		Attributes: sessionAttributes(outcome.Session),
	})
}

func (s *sessionService) Expire(ctx context.Context, sessionID int32) (*domain.SessionOutcome, error) {
	var outcome *domain.SessionOutcome
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		session, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !session.IsActive() || session.PlannedEndTime.After(now) {
			return nil
		}

		zone, err := repos.Zones.GetByID(ctx, session.ZoneID)
		if err != nil {
			return fmt.Errorf("zone: %w", err)
		}

		elapsed := now.Sub(session.StartTime)
		session.ActualEndTime = &now
		session.FinalCost = decimal.NewNullDecimal(utils.CalculateCost(zone.HourlyRate, elapsed))
		session.Status = domain.SessionStatusExpired
		session.UpdatedOn = now
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return err
		}
		if err := s.allocator.Release(ctx, repos, session.SlotID); err != nil {
			return err
		}

		outcome = &domain.SessionOutcome{
			Session:       session,
			AmountDue:     session.FinalCost.Decimal,
			OverdueCharge: utils.OverdueCharge(zone.HourlyRate, elapsed, session.PlannedDuration()),
		}
		if !outcome.OverdueCharge.IsPositive() {
			outcome.NewBalance, err = repos.Wallet.GetBalance(ctx, session.UserID)
			return err
		}

		before, err := repos.Wallet.LockBalance(ctx, session.UserID)
		if err != nil {
			return err
		}
		tx, err := s.ledger.Debit(ctx, repos, domain.LedgerEntry{
			UserID:           session.UserID,
			Amount:           outcome.OverdueCharge,
			Type:             domain.TransactionTypePayment,
			Description:      fmt.Sprintf("Overdue parking at %s", zone.Name),
			ParkingSessionID: &session.ID,
		})
		if err != nil {
			return err
		}
		outcome.NewBalance = tx.BalanceAfter

		if before.LessThan(outcome.OverdueCharge) {
			outcome.Violation, err = s.violations.Issue(ctx, repos, IssueViolationRequest{
				VehicleID:        session.VehicleID,
				ZoneID:           session.ZoneID,
				ParkingSessionID: &session.ID,
				Type:             domain.ViolationTypeExpired,
				FineAmount:       outcome.OverdueCharge,
				Description:      fmt.Sprintf("Parking exceeded planned time by %s", formatOverdue(elapsed-session.PlannedDuration())),
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}

	s.metrics.SessionTransition("expired")
	message := "Your parking time has expired."
	if outcome.OverdueCharge.IsPositive() {
		message += fmt.Sprintf(" An overdue charge of %s was applied.", outcome.OverdueCharge.StringFixed(2))
	}
	notify(ctx, s.notifier, Notice{
		UserID:     outcome.Session.UserID,
		Title:      "Parking Expired",
		Message:    message,
		Category:   domain.NotificationCategoryParking,
		Attributes: sessionAttributes(outcome.Session),
	})
	if v := outcome.Violation; v != nil {
		notify(ctx, s.notifier, Notice{
			UserID:   outcome.Session.UserID,
			Title:    "Parking Violation",
			Message:  fmt.Sprintf("A violation was issued: %s. Fine: %s.", v.Description, v.FineAmount.StringFixed(2)),
			Category: domain.NotificationCategoryViolation,
			Attributes: map[string]string{
				"violation_id":       strconv.Itoa(int(v.ID)),
				"parking_session_id": strconv.Itoa(int(outcome.Session.ID)),
			},
		})
	}
	return outcome, nil
}

func (s *sessionService) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.store.Repos().Sessions.ListActiveEndedBefore(ctx, s.clock.Now(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list overdue sessions: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		outcome, err := s.Expire(ctx, id)
		if err != nil {
			logger.Error("Failed to expire session", "sessionID", id, "error", err)
			continue
		}
		if outcome != nil {
			expired++
		}
	}
	return expired, nil
}

func (s *sessionService) SendExpiryAlerts(ctx context.Context) (int, error) {
	now := s.clock.Now()
	repos := s.store.Repos()
	sent := 0

	for _, minutes := range expiryAlertMinutes {
		from := now.Add(time.Duration(minutes-1) * time.Minute)
		to := now.Add(time.Duration(minutes) * time.Minute)
		sessions, err := repos.Sessions.ListActiveEndingBetween(ctx, from, to)
		if err != nil {
			return sent, fmt.Errorf("list sessions ending in %d minutes: %w", minutes, err)
		}

		for i := range sessions {
			session := &sessions[i]
			attrs := map[string]string{
				"parking_session_id": strconv.Itoa(int(session.ID)),
				"minutes_left":       strconv.Itoa(minutes),
			}
			exists, err := repos.Notifications.ExistsSince(ctx, session.UserID, attrs, now.Add(-alertDedupWindow))
			if err != nil {
				logger.Error("Failed to check expiry alert history", "sessionID", session.ID, "error", err)
				continue
			}
			if exists {
				continue
			}

			notify(ctx, s.notifier, Notice{
				UserID:     session.UserID,
				Title:      "Parking Expiring Soon",
				Message:    fmt.Sprintf("Your parking ends in %d minutes. Extend now to avoid a fine.", minutes),
				Category:   domain.NotificationCategoryParking,
				Attributes: attrs,
			})
			sent++
		}
	}
	return sent, nil
}

func (s *sessionService) Get(ctx context.Context, userID, sessionID int32) (*domain.ParkingSession, error) {
	session, err := s.store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && session.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *sessionService) ActiveForVehicle(ctx context.Context, userID, vehicleID int32) (*domain.ParkingSession, error) {
	repos := s.store.Repos()
	if _, err := ownedVehicle(ctx, repos, userID, vehicleID); err != nil {
		return nil, err
	}
	return repos.Sessions.FindActiveForVehicle(ctx, vehicleID)
}

func (s *sessionService) List(ctx context.Context, userID int32, filter string, page, pageSize int32) ([]domain.ParkingSession, int32, error) {
	var statuses []domain.SessionStatus
	switch filter {
	case SessionFilterActive:
		statuses = []domain.SessionStatus{domain.SessionStatusActive}
	case SessionFilterCompleted:
		statuses = []domain.SessionStatus{domain.SessionStatusCompleted, domain.SessionStatusExpired, domain.SessionStatusCancelled}
	case SessionFilterAll, "":
	default:
		return nil, 0, fmt.Errorf("%w: unknown session filter %q", domain.ErrInvalidInput, filter)
	}
	return s.store.Repos().Sessions.ListByUser(ctx, userID, statuses, page, pageSize)
}

func (s *sessionService) activeSessionForUpdate(ctx context.Context, repos repository.Repositories, userID, sessionID int32) (*domain.ParkingSession, error) {
	session, err := repos.Sessions.GetForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && session.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if !session.IsActive() {
		return nil, domain.ErrSessionNotActive
	}
	return session, nil
}

func ownedVehicle(ctx context.Context, repos repository.Repositories, userID, vehicleID int32) (*domain.Vehicle, error) {
	vehicle, err := repos.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}
	if vehicle.UserID != userID {
		return nil, fmt.Errorf("vehicle: %w", domain.ErrNotFound)
	}
	return vehicle, nil
}

func activeZone(ctx context.Context, repos repository.Repositories, zoneID int32) (*domain.Zone, error) {
	zone, err := repos.Zones.GetByID(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("zone: %w", err)
	}
	if !zone.IsActive {
		return nil, fmt.Errorf("zone: %w", domain.ErrNotFound)
	}
	return zone, nil
}

func sessionAttributes(session *domain.ParkingSession) map[string]string {
	return map[string]string{
		"parking_session_id": strconv.Itoa(int(session.ID)),
		"zone_id":            strconv.Itoa(int(session.ZoneID)),
	}
}

func formatOverdue(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
