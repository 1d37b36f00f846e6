package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

const reservationColumns = `id, vehicle_id, user_id, zone_id, slot_id, reserved_from, reserved_until, cost, status,
	is_active, payment_method, payment_reference, created_on, updated_on`

type reservationRepository struct {
	q Querier
}

func NewReservationRepository(q Querier) repository.ReservationRepository {
	return &reservationRepository{q: q}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var slotID sql.NullInt32
	var method, reference sql.NullString
	err := row.Scan(&res.ID, &res.VehicleID, &res.UserID, &res.ZoneID, &slotID, &res.ReservedFrom, &res.ReservedUntil,
		&res.Cost, &res.Status, &res.IsActive, &method, &reference, &res.CreatedOn, &res.UpdatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	res.SlotID = nullInt32(slotID)
	res.PaymentMethod = domain.PaymentMethod(method.String)
	res.PaymentReference = reference.String
	return res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `INSERT INTO reservations (vehicle_id, user_id, zone_id, slot_id, reserved_from, reserved_until, cost, status,
	              is_active, payment_method, payment_reference, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13) RETURNING id`
	return r.q.QueryRowContext(ctx, query, res.VehicleID, res.UserID, res.ZoneID, res.SlotID, res.ReservedFrom, res.ReservedUntil,
		res.Cost, res.Status, res.IsActive, string(res.PaymentMethod), res.PaymentReference, res.CreatedOn, res.UpdatedOn).Scan(&res.ID)
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return scanReservation(r.q.QueryRowContext(ctx, query, id))
}

func (r *reservationRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return scanReservation(r.q.QueryRowContext(ctx, query, id))
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `UPDATE reservations
	          SET status = $1, is_active = $2, payment_method = NULLIF($3, ''), payment_reference = NULLIF($4, ''), updated_on = $5
	          WHERE id = $6`
	result, err := r.q.ExecContext(ctx, query, res.Status, res.IsActive, string(res.PaymentMethod), res.PaymentReference, res.UpdatedOn, res.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *reservationRepository) CountOverlapping(ctx context.Context, zoneID int32, from, until time.Time, statuses []domain.ReservationStatus) (int32, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	query := `SELECT count(*) FROM reservations
	          WHERE zone_id = $1 AND status = ANY($2) AND reserved_from < $3 AND reserved_until > $4`
	var count int32
	err := r.q.QueryRowContext(ctx, query, zoneID, pq.Array(names), until, from).Scan(&count)
	return count, err
}

func (r *reservationRepository) ListHoldingForSlot(ctx context.Context, slotID int32, from, until time.Time) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE slot_id = $1 AND status IN ('pending_payment', 'confirmed') AND reserved_from < $2 AND reserved_until > $3
	          ORDER BY reserved_from`
	rows, err := r.q.QueryContext(ctx, query, slotID, until, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}

func (r *reservationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	query := `SELECT id FROM reservations
	          WHERE status = 'pending_payment' AND created_on <= $1
	          ORDER BY created_on
	          LIMIT $2`
	return queryIDs(ctx, r.q, query, cutoff, limit)
}

func (r *reservationRepository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	query := `SELECT id FROM reservations
	          WHERE status = 'confirmed' AND reserved_until <= $1
	          ORDER BY reserved_until
	          LIMIT $2`
	return queryIDs(ctx, r.q, query, cutoff, limit)
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Reservation, int32, error) {
	var count int32
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM reservations WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1
	          ORDER BY reserved_from DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.QueryContext(ctx, query, userID, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *res)
	}
	return list, count, rows.Err()
}
