package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/utils"
)

type violationIssuer struct {
	store    repository.Store
	ledger   WalletLedger
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewViolationIssuer(store repository.Store, ledger WalletLedger, notifier Notifier, clk clock.Clock, m *metrics.Metrics) ViolationIssuer {
	return &violationIssuer{store: store, ledger: ledger, notifier: notifier, clock: clk, metrics: m}
}

func (v *violationIssuer) Issue(ctx context.Context, repos repository.Repositories, req IssueViolationRequest) (*domain.Violation, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown violation type %q", domain.ErrInvalidInput, req.Type)
	}
	if req.FineAmount.IsNegative() {
		return nil, fmt.Errorf("%w: fine must not be negative", domain.ErrInvalidInput)
	}

	violation := &domain.Violation{
		VehicleID:        req.VehicleID,
		ZoneID:           req.ZoneID,
		ParkingSessionID: req.ParkingSessionID,
		OfficerID:        req.OfficerID,
		Type:             req.Type,
		Description:      req.Description,
		FineAmount:       utils.RoundCurrency(req.FineAmount),
		CreatedOn:        v.clock.Now(),
	}
	if err := repos.Violations.Create(ctx, violation); err != nil {
		return nil, fmt.Errorf("create violation: %w", err)
	}

	source := "system"
	if req.OfficerID != nil {
		source = "officer"
	}
	v.metrics.ViolationIssued(source)
	logger.Info("Violation issued", "violationID", violation.ID, "vehicleID", violation.VehicleID,
		"type", violation.Type, "source", source, logger.Money("fine", violation.FineAmount))
	return violation, nil
}

// IssueByOfficer records an enforcement violation and settles the fine from
// the vehicle owner's wallet straight away. The balance may go negative.
func (v *violationIssuer) IssueByOfficer(ctx context.Context, officerID int32, req IssueViolationRequest) (*domain.Violation, error) {
	logger.EnterMethod("violationIssuer.IssueByOfficer", "officerID", officerID, "vehicleID", req.VehicleID)

	if !req.FineAmount.IsPositive() {
		return nil, fmt.Errorf("%w: fine must be positive", domain.ErrInvalidInput)
	}

	var violation *domain.Violation
	var ownerID int32
	err := v.store.RunInTx(ctx, func(repos repository.Repositories) error {
		vehicle, err := repos.Vehicles.GetByID(ctx, req.VehicleID)
		if err != nil {
			return fmt.Errorf("vehicle: %w", err)
		}
		if _, err := repos.Zones.GetByID(ctx, req.ZoneID); err != nil {
			return fmt.Errorf("zone: %w", err)
		}
		if req.ParkingSessionID != nil {
			session, err := repos.Sessions.GetByID(ctx, *req.ParkingSessionID)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: unknown parking session", domain.ErrInvalidInput)
			}
			if err != nil {
				return err
			}
			if session.VehicleID != req.VehicleID || session.ZoneID != req.ZoneID {
				return fmt.Errorf("%w: parking session does not match vehicle and zone", domain.ErrInvalidInput)
			}
		}
		ownerID = vehicle.UserID
		req.OfficerID = &officerID

		violation, err = v.Issue(ctx, repos, req)
		if err != nil {
			return err
		}

		_, err = v.ledger.Debit(ctx, repos, domain.LedgerEntry{
			UserID:           vehicle.UserID,
			Amount:           violation.FineAmount,
			Type:             domain.TransactionTypeFinePayment,
			Description:      fmt.Sprintf("Fine for %s violation", violation.Type),
			ParkingSessionID: violation.ParkingSessionID,
			Metadata:         map[string]string{"violation_id": strconv.Itoa(int(violation.ID))},
		})
		if err != nil {
			return err
		}

		paidAt := v.clock.Now()
		if err := repos.Violations.MarkPaid(ctx, violation.ID, paidAt); err != nil {
			return err
		}
		violation.IsPaid = true
		violation.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("violationIssuer.IssueByOfficer", err, "vehicleID", req.VehicleID)
		return nil, err
	}

	notify(ctx, v.notifier, Notice{
		UserID:   ownerID,
		Title:    "Parking Violation",
		Message:  fmt.Sprintf("A %s violation was recorded. A fine of %s was charged to your wallet.", violation.Type, violation.FineAmount.StringFixed(2)),
		Category: domain.NotificationCategoryViolation,
		Attributes: map[string]string{
			"violation_id": strconv.Itoa(int(violation.ID)),
		},
	})

	logger.ExitMethod("violationIssuer.IssueByOfficer", "violationID", violation.ID)
	return violation, nil
}

func (v *violationIssuer) ListForUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Violation, int32, error) {
	return v.store.Repos().Violations.ListByUser(ctx, userID, page, pageSize)
}
