package postgres

import (
	"context"
	"database/sql"
	"time"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

const violationColumns = `v.id, v.vehicle_id, v.zone_id, v.parking_session_id, v.officer_id, v.violation_type, v.description,
	v.fine_amount, v.is_paid, v.paid_at, v.created_on`

type violationRepository struct {
	q Querier
}

func NewViolationRepository(q Querier) repository.ViolationRepository {
	return &violationRepository{q: q}
}

func scanViolation(row rowScanner) (*domain.Violation, error) {
	v := &domain.Violation{}
	var sessionID, officerID sql.NullInt32
	var paidAt sql.NullTime
	err := row.Scan(&v.ID, &v.VehicleID, &v.ZoneID, &sessionID, &officerID, &v.Type, &v.Description,
		&v.FineAmount, &v.IsPaid, &paidAt, &v.CreatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	v.ParkingSessionID = nullInt32(sessionID)
	v.OfficerID = nullInt32(officerID)
	if paidAt.Valid {
		t := paidAt.Time
		v.PaidAt = &t
	}
	return v, nil
}

func (r *violationRepository) Create(ctx context.Context, v *domain.Violation) error {
	query := `INSERT INTO violations (vehicle_id, zone_id, parking_session_id, officer_id, violation_type, description,
	              fine_amount, is_paid, paid_at, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	return r.q.QueryRowContext(ctx, query, v.VehicleID, v.ZoneID, v.ParkingSessionID, v.OfficerID, v.Type, v.Description,
		v.FineAmount, v.IsPaid, v.PaidAt, v.CreatedOn).Scan(&v.ID)
}

func (r *violationRepository) GetByID(ctx context.Context, id int32) (*domain.Violation, error) {
	query := `SELECT ` + violationColumns + ` FROM violations v WHERE v.id = $1`
	return scanViolation(r.q.QueryRowContext(ctx, query, id))
}

func (r *violationRepository) MarkPaid(ctx context.Context, id int32, paidAt time.Time) error {
	result, err := r.q.ExecContext(ctx, `UPDATE violations SET is_paid = TRUE, paid_at = $1 WHERE id = $2`, paidAt, id)
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

// ListByUser returns violations recorded against any vehicle the user owns.
func (r *violationRepository) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Violation, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM violations v JOIN vehicles ve ON ve.id = v.vehicle_id WHERE ve.user_id = $1`
	if err := r.q.QueryRowContext(ctx, countQuery, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + violationColumns + `
	          FROM violations v JOIN vehicles ve ON ve.id = v.vehicle_id
	          WHERE ve.user_id = $1
	          ORDER BY v.created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.QueryContext(ctx, query, userID, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *v)
	}
	return list, count, rows.Err()
}
