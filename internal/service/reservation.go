package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/utils"
)

// Active sessions only compete with reservations that start within this window.
const nearTermWindow = time.Hour

const walletPaymentReference = "WALLET"

type reservationService struct {
	store     repository.Store
	allocator SlotAllocator
	ledger    WalletLedger
	notifier  Notifier
	scheduler ExpiryScheduler
	clock     clock.Clock
	policy    BillingPolicy
	metrics   *metrics.Metrics
}

func NewReservationService(
	store repository.Store,
	allocator SlotAllocator,
	ledger WalletLedger,
	notifier Notifier,
	scheduler ExpiryScheduler,
	clk clock.Clock,
	policy BillingPolicy,
	m *metrics.Metrics,
) ReservationService {
	return &reservationService{
		store:     store,
		allocator: allocator,
		ledger:    ledger,
		notifier:  notifier,
		scheduler: scheduler,
		clock:     clk,
		policy:    policy,
		metrics:   m,
	}
}

func (s *reservationService) CheckAvailability(ctx context.Context, zoneID int32, from, until time.Time) (bool, error) {
	repos := s.store.Repos()
	zone, err := activeZone(ctx, repos, zoneID)
	if err != nil {
		return false, err
	}
	return s.available(ctx, repos, zone, from, until)
}

func (s *reservationService) available(ctx context.Context, repos repository.Repositories, zone *domain.Zone, from, until time.Time) (bool, error) {
	capacity, err := s.allocator.Capacity(ctx, repos, zone)
	if err != nil {
		return false, err
	}
	if capacity <= 0 {
		return false, nil
	}

	held, err := repos.Reservations.CountOverlapping(ctx, zone.ID, from, until, domain.HoldingStatuses)
	if err != nil {
		return false, err
	}

	var active int32
	if from.Before(s.clock.Now().Add(nearTermWindow)) {
		active, err = repos.Sessions.CountActiveInZone(ctx, zone.ID)
		if err != nil {
			return false, err
		}
	}
	return capacity-(held+active) > 0, nil
}

func (s *reservationService) Create(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Create", "userID", req.UserID, "zoneID", req.ZoneID,
		"from", req.ReservedFrom, "until", req.ReservedUntil)

	if !req.ReservedUntil.After(req.ReservedFrom) {
		return nil, fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidInput)
	}
	now := s.clock.Now()
	if req.ReservedFrom.Before(now.Add(-s.policy.StartSkew)) {
		return nil, fmt.Errorf("%w: start time cannot be in the past", domain.ErrInvalidInput)
	}

	var reservation *domain.Reservation
	var zoneName string
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		if _, err := ownedVehicle(ctx, repos, req.UserID, req.VehicleID); err != nil {
			return err
		}
		zone, err := repos.Zones.LockForUpdate(ctx, req.ZoneID)
		if err != nil {
			return fmt.Errorf("zone: %w", err)
		}
		if !zone.IsActive {
			return fmt.Errorf("zone: %w", domain.ErrNotFound)
		}
		zoneName = zone.Name

		ok, err := s.available(ctx, repos, zone, req.ReservedFrom, req.ReservedUntil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoAvailability
		}

		var slotID *int32
		if req.SlotID != nil {
			if _, err := bookableSlot(ctx, repos, zone.ID, *req.SlotID, req.VehicleID, req.ReservedFrom, req.ReservedUntil); err != nil {
				return err
			}
			id := *req.SlotID
			slotID = &id
			// Far-off bookings are enforced by window overlap; the slot row
			// only turns reserved once the window is near.
			if req.ReservedFrom.Before(now.Add(nearTermWindow)) {
				if _, err := s.allocator.Assign(ctx, repos, zone, slotID, domain.SlotStatusReserved); err != nil {
					return err
				}
			}
		}

		reservation = &domain.Reservation{
			VehicleID:     req.VehicleID,
			UserID:        req.UserID,
			ZoneID:        zone.ID,
			SlotID:        slotID,
			ReservedFrom:  req.ReservedFrom,
			ReservedUntil: req.ReservedUntil,
			Cost:          utils.CalculateCost(zone.HourlyRate, req.ReservedUntil.Sub(req.ReservedFrom)),
			Status:        domain.ReservationStatusPendingPayment,
			IsActive:      true,
			CreatedOn:     now,
			UpdatedOn:     now,
		}
		return repos.Reservations.Create(ctx, reservation)
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.Create", err, "zoneID", req.ZoneID)
		return nil, err
	}

	s.metrics.ReservationTransition("created")
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleReservationExpiry(ctx, reservation.ID, s.policy.ReservationHold); err != nil {
			logger.Error("Failed to schedule reservation expiry", "reservationID", reservation.ID, "error", err)
		}
	}
	notify(ctx, s.notifier, Notice{
		UserID: reservation.UserID,
		Title:  "Reservation Created",
		Message: fmt.Sprintf("Your reservation at %s is held for %d minutes. Complete payment of %s to confirm it.",
			zoneName, int(s.policy.ReservationHold.Minutes()), reservation.Cost.StringFixed(2)),
		Category:   domain.NotificationCategoryReservation,
		Attributes: reservationAttributes(reservation),
	})

	logger.ExitMethod("reservationService.Create", "reservationID", reservation.ID, logger.Money("cost", reservation.Cost))
	return reservation, nil
}

func (s *reservationService) Confirm(ctx context.Context, userID, reservationID int32, method domain.PaymentMethod, paymentReference string) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Confirm", "reservationID", reservationID, "method", method)

	if method == "" {
		method = domain.PaymentMethodWallet
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, method)
	}

	var reservation *domain.Reservation
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		var err error
		reservation, err = s.reservationForUpdate(ctx, repos, userID, reservationID)
		if err != nil {
			return err
		}
		if reservation.Status != domain.ReservationStatusPendingPayment {
			return domain.ErrReservationNotPending
		}

		if method == domain.PaymentMethodWallet {
			if _, err := s.ledger.EnsureFunds(ctx, repos, reservation.UserID, reservation.Cost); err != nil {
				return err
			}
			if reservation.Cost.IsPositive() {
				if _, err := s.ledger.Debit(ctx, repos, domain.LedgerEntry{
					UserID:        reservation.UserID,
					Amount:        reservation.Cost,
					Type:          domain.TransactionTypePayment,
					Description:   "Parking reservation payment",
					ReservationID: &reservation.ID,
					Metadata:      map[string]string{"reservation_id": strconv.Itoa(int(reservation.ID))},
				}); err != nil {
					return err
				}
			}
			paymentReference = walletPaymentReference
		}

		reservation.Status = domain.ReservationStatusConfirmed
		reservation.IsActive = true
		reservation.PaymentMethod = method
		reservation.PaymentReference = paymentReference
		reservation.UpdatedOn = s.clock.Now()
		return repos.Reservations.Update(ctx, reservation)
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.Confirm", err, "reservationID", reservationID)
		return nil, err
	}

	s.metrics.ReservationTransition("confirmed")
	notify(ctx, s.notifier, Notice{
		UserID:     reservation.UserID,
		Title:      "Reservation Confirmed",
		Message:    fmt.Sprintf("Your reservation from %s is confirmed.", reservation.ReservedFrom.Format("Jan 2 15:04")),
		Category:   domain.NotificationCategoryReservation,
		Attributes: reservationAttributes(reservation),
	})

	logger.ExitMethod("reservationService.Confirm", "reservationID", reservation.ID)
	return reservation, nil
}

func (s *reservationService) Cancel(ctx context.Context, userID, reservationID int32) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Cancel", "reservationID", reservationID)

	var reservation *domain.Reservation
	var refunded bool
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		var err error
		reservation, err = s.reservationForUpdate(ctx, repos, userID, reservationID)
		if err != nil {
			return err
		}
		if reservation.IsTerminal() {
			return domain.ErrAlreadyTerminal
		}

		now := s.clock.Now()
		if reservation.Status == domain.ReservationStatusConfirmed && now.Before(reservation.ReservedFrom) && reservation.Cost.IsPositive() {
			if _, err := s.ledger.Credit(ctx, repos, domain.LedgerEntry{
				UserID:        reservation.UserID,
				Amount:        reservation.Cost,
				Type:          domain.TransactionTypeRefund,
				Description:   "Refund for cancelled reservation",
				ReservationID: &reservation.ID,
				Metadata:      map[string]string{"reservation_id": strconv.Itoa(int(reservation.ID))},
			}); err != nil {
				return err
			}
			refunded = true
		}

		if err := s.close(ctx, repos, reservation, domain.ReservationStatusCancelled); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.Cancel", err, "reservationID", reservationID)
		return nil, err
	}

	s.metrics.ReservationTransition("cancelled")
	message := "Your reservation was cancelled."
	category := domain.NotificationCategoryReservation
	if refunded {
		message += fmt.Sprintf(" %s was refunded to your wallet.", reservation.Cost.StringFixed(2))
		category = domain.NotificationCategoryWallet
	}
	notify(ctx, s.notifier, Notice{
		UserID:     reservation.UserID,
		Title:      "Reservation Cancelled",
		Message:    message,
		Category:   category,
		Attributes: reservationAttributes(reservation),
	})

	logger.ExitMethod("reservationService.Cancel", "reservationID", reservation.ID, "refunded", refunded)
	return reservation, nil
}

func (s *reservationService) ExpireUnpaid(ctx context.Context, reservationID int32) (bool, error) {
	expired := false
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		reservation, err := repos.Reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.Status != domain.ReservationStatusPendingPayment {
			return nil
		}
		expired = true
		return s.close(ctx, repos, reservation, domain.ReservationStatusExpired)
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.metrics.ReservationTransition("expired")
		logger.Info("Unpaid reservation expired", "reservationID", reservationID)
	}
	return expired, nil
}

func (s *reservationService) ExpireStaleUnpaid(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.policy.ReservationHold)
	ids, err := s.store.Repos().Reservations.ListPendingCreatedBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}

	count := 0
	for _, id := range ids {
		ok, err := s.ExpireUnpaid(ctx, id)
		if err != nil {
			logger.Error("Failed to expire reservation", "reservationID", id, "error", err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *reservationService) CompleteElapsed(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.store.Repos().Reservations.ListConfirmedEndedBefore(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list elapsed reservations: %w", err)
	}

	count := 0
	for _, id := range ids {
		completed := false
		err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
			reservation, err := repos.Reservations.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if reservation.Status != domain.ReservationStatusConfirmed || reservation.ReservedUntil.After(now) {
				return nil
			}
			completed = true
			return s.close(ctx, repos, reservation, domain.ReservationStatusCompleted)
		})
		if err != nil {
			logger.Error("Failed to complete reservation", "reservationID", id, "error", err)
			continue
		}
		if completed {
			s.metrics.ReservationTransition("completed")
			count++
		}
	}
	return count, nil
}

func (s *reservationService) Get(ctx context.Context, userID, reservationID int32) (*domain.Reservation, error) {
	reservation, err := s.store.Repos().Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && reservation.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return reservation, nil
}

func (s *reservationService) List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Reservation, int32, error) {
	return s.store.Repos().Reservations.ListByUser(ctx, userID, page, pageSize)
}

// close moves the reservation to a terminal status and frees its slot if it
// is still held as reserved. A slot the holder already parks in stays occupied.
func (s *reservationService) close(ctx context.Context, repos repository.Repositories, reservation *domain.Reservation, status domain.ReservationStatus) error {
	reservation.Status = status
	reservation.IsActive = false
	reservation.UpdatedOn = s.clock.Now()
	if err := repos.Reservations.Update(ctx, reservation); err != nil {
		return err
	}
	if reservation.SlotID == nil {
		return nil
	}
	slot, err := repos.Slots.GetByID(ctx, *reservation.SlotID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if slot.Status != domain.SlotStatusReserved {
		return nil
	}
	return s.allocator.Release(ctx, repos, reservation.SlotID)
}

// bookableSlot checks that the slot belongs to the zone, is in service, and
// is not booked by another vehicle for any part of [from, until). It returns
// the vehicle's own bookings on the slot in that range.
func bookableSlot(ctx context.Context, repos repository.Repositories, zoneID, slotID, vehicleID int32, from, until time.Time) ([]domain.Reservation, error) {
	slot, err := repos.Slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSlotUnavailable
		}
		return nil, err
	}
	if slot.ZoneID != zoneID || slot.Status == domain.SlotStatusDisabled {
		return nil, domain.ErrSlotUnavailable
	}

	booked, err := repos.Reservations.ListHoldingForSlot(ctx, slotID, from, until)
	if err != nil {
		return nil, err
	}
	var own []domain.Reservation
	for _, res := range booked {
		if res.VehicleID != vehicleID {
			return nil, domain.ErrSlotUnavailable
		}
		own = append(own, res)
	}
	return own, nil
}

func (s *reservationService) reservationForUpdate(ctx context.Context, repos repository.Repositories, userID, reservationID int32) (*domain.Reservation, error) {
	reservation, err := repos.Reservations.GetForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && reservation.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return reservation, nil
}

func reservationAttributes(r *domain.Reservation) map[string]string {
	return map[string]string{
		"reservation_id": strconv.Itoa(int(r.ID)),
		"zone_id":        strconv.Itoa(int(r.ZoneID)),
	}
}
