package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/repository"
)

const (
	sessionColumns = `id, vehicle_id, user_id, zone_id, slot_id, start_time, planned_end_time, actual_end_time,
	status, payment_method, estimated_cost, final_cost, created_on, updated_on`

	activeSessionConstraint = "one_active_session_per_vehicle"
)

type sessionRepository struct {
	q Querier
}

func NewSessionRepository(q Querier) repository.SessionRepository {
	return &sessionRepository{q: q}
}

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	s := &domain.ParkingSession{}
	var slotID sql.NullInt32
	var actualEnd sql.NullTime
	err := row.Scan(&s.ID, &s.VehicleID, &s.UserID, &s.ZoneID, &slotID, &s.StartTime, &s.PlannedEndTime, &actualEnd,
		&s.Status, &s.PaymentMethod, &s.EstimatedCost, &s.FinalCost, &s.CreatedOn, &s.UpdatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	s.SlotID = nullInt32(slotID)
	if actualEnd.Valid {
		t := actualEnd.Time
		s.ActualEndTime = &t
	}
	return s, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.ParkingSession) error {
	logger.EnterMethod("sessionRepository.Create", "vehicleID", s.VehicleID, "zoneID", s.ZoneID)

	query := `INSERT INTO parking_sessions (vehicle_id, user_id, zone_id, slot_id, start_time, planned_end_time,
	              status, payment_method, estimated_cost, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, s.VehicleID, s.UserID, s.ZoneID, s.SlotID, s.StartTime, s.PlannedEndTime,
		s.Status, s.PaymentMethod, s.EstimatedCost, s.CreatedOn, s.UpdatedOn).Scan(&s.ID)
	if isUniqueViolation(err, activeSessionConstraint) {
		logger.ExitMethodWithError("sessionRepository.Create", err, "vehicleID", s.VehicleID)
		return domain.ErrActiveSessionExists
	}
	if err != nil {
		logger.ExitMethodWithError("sessionRepository.Create", err, "vehicleID", s.VehicleID)
		return err
	}

	logger.ExitMethod("sessionRepository.Create", "sessionID", s.ID)
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id int32) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	return scanSession(r.q.QueryRowContext(ctx, query, id))
}

func (r *sessionRepository) GetForUpdate(ctx context.Context, id int32) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.q.QueryRowContext(ctx, query, id))
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.ParkingSession) error {
	query := `UPDATE parking_sessions
	          SET planned_end_time = $1, actual_end_time = $2, status = $3, estimated_cost = $4, final_cost = $5, updated_on = $6
	          WHERE id = $7`
	result, err := r.q.ExecContext(ctx, query, s.PlannedEndTime, s.ActualEndTime, s.Status, s.EstimatedCost, s.FinalCost, s.UpdatedOn, s.ID)
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

func (r *sessionRepository) FindActiveForVehicle(ctx context.Context, vehicleID int32) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE vehicle_id = $1 AND status = 'active'`
	return scanSession(r.q.QueryRowContext(ctx, query, vehicleID))
}

func (r *sessionRepository) CountActiveInZone(ctx context.Context, zoneID int32) (int32, error) {
	var count int32
	err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM parking_sessions WHERE zone_id = $1 AND status = 'active'`, zoneID).Scan(&count)
	return count, err
}

func (r *sessionRepository) ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	query := `SELECT id FROM parking_sessions
	          WHERE status = 'active' AND planned_end_time <= $1
	          ORDER BY planned_end_time
	          LIMIT $2`
	return queryIDs(ctx, r.q, query, cutoff, limit)
}

func (r *sessionRepository) ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	          WHERE status = 'active' AND planned_end_time > $1 AND planned_end_time <= $2
	          ORDER BY planned_end_time`
	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID int32, statuses []domain.SessionStatus, page, pageSize int32) ([]domain.ParkingSession, int32, error) {
	where := ` FROM parking_sessions WHERE user_id = $1`
	args := []any{userID}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		where += ` AND status = ANY($2)`
		args = append(args, pq.Array(names))
	}

	var count int32
	if err := r.q.QueryRowContext(ctx, `SELECT count(*)`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sessionColumns + where +
		fmt.Sprintf(` ORDER BY start_time DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, pageOffset(page, pageSize))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, count, rows.Err()
}

func queryIDs(ctx context.Context, q Querier, query string, args ...any) ([]int32, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
