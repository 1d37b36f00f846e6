package postgres

import (
	"context"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/repository"
)

const slotColumns = `id, zone_id, slot_code, slot_type, status, created_on, updated_on`

type slotRepository struct {
	q Querier
}

func NewSlotRepository(q Querier) repository.SlotRepository {
	return &slotRepository{q: q}
}

func scanSlot(row rowScanner) (*domain.ParkingSlot, error) {
	s := &domain.ParkingSlot{}
	if err := row.Scan(&s.ID, &s.ZoneID, &s.SlotCode, &s.SlotType, &s.Status, &s.CreatedOn, &s.UpdatedOn); err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (r *slotRepository) GetByID(ctx context.Context, id int32) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE id = $1`
	return scanSlot(r.q.QueryRowContext(ctx, query, id))
}

func (r *slotRepository) CountByZone(ctx context.Context, zoneID int32) (int32, error) {
	var count int32
	err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM parking_slots WHERE zone_id = $1`, zoneID).Scan(&count)
	return count, err
}

func (r *slotRepository) CountByStatus(ctx context.Context, zoneID int32) (map[domain.SlotStatus]int32, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, count(*) FROM parking_slots WHERE zone_id = $1 GROUP BY status`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SlotStatus]int32)
	for rows.Next() {
		var status domain.SlotStatus
		var count int32
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *slotRepository) FindFirstAvailable(ctx context.Context, zoneID int32) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots
	          WHERE zone_id = $1 AND status = 'available'
	          ORDER BY created_on, id
	          LIMIT 1
	          FOR UPDATE SKIP LOCKED`
	return scanSlot(r.q.QueryRowContext(ctx, query, zoneID))
}

func (r *slotRepository) Claim(ctx context.Context, zoneID, slotID int32, status domain.SlotStatus) error {
	query := `UPDATE parking_slots SET status = $1, updated_on = NOW()
	          WHERE id = $2 AND zone_id = $3 AND status = 'available'`
	logger.DatabaseCall("UPDATE", "parking_slots", "slotID", slotID, "status", status)

	result, err := r.q.ExecContext(ctx, query, status, slotID, zoneID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSlotUnavailable
	}
	return nil
}

func (r *slotRepository) SetStatus(ctx context.Context, slotID int32, status domain.SlotStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE parking_slots SET status = $1, updated_on = NOW() WHERE id = $2`, status, slotID)
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

func (r *slotRepository) Create(ctx context.Context, s *domain.ParkingSlot) error {
	query := `INSERT INTO parking_slots (zone_id, slot_code, slot_type, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.q.QueryRowContext(ctx, query, s.ZoneID, s.SlotCode, s.SlotType, s.Status, s.CreatedOn, s.UpdatedOn).Scan(&s.ID)
}
