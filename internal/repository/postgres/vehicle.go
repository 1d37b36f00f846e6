package postgres

import (
	"context"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

type vehicleRepository struct {
	q Querier
}

func NewVehicleRepository(q Querier) repository.VehicleRepository {
	return &vehicleRepository{q: q}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, user_id, plate_number, is_active, created_on FROM vehicles WHERE id = $1`
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.UserID, &v.PlateNumber, &v.IsActive, &v.CreatedOn); err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (r *vehicleRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Vehicle, error) {
	query := `SELECT id, user_id, plate_number, is_active, created_on FROM vehicles WHERE user_id = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.PlateNumber, &v.IsActive, &v.CreatedOn); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (user_id, plate_number, is_active, created_on) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.q.QueryRowContext(ctx, query, v.UserID, v.PlateNumber, v.IsActive, v.CreatedOn).Scan(&v.ID)
}
