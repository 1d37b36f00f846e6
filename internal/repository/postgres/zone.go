package postgres

import (
	"context"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

const zoneColumns = `id, country_code, name, hourly_rate, total_slots, latitude, longitude,
	radius_meters, max_duration_hours, is_active, created_on, updated_on`

type zoneRepository struct {
	q Querier
}

func NewZoneRepository(q Querier) repository.ZoneRepository {
	return &zoneRepository{q: q}
}

func scanZone(row rowScanner) (*domain.Zone, error) {
	z := &domain.Zone{}
	err := row.Scan(&z.ID, &z.CountryCode, &z.Name, &z.HourlyRate, &z.TotalSlots, &z.Latitude, &z.Longitude,
		&z.RadiusMeters, &z.MaxDurationHours, &z.IsActive, &z.CreatedOn, &z.UpdatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	return z, nil
}

func (r *zoneRepository) GetByID(ctx context.Context, id int32) (*domain.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id = $1`
	return scanZone(r.q.QueryRowContext(ctx, query, id))
}

func (r *zoneRepository) LockForUpdate(ctx context.Context, id int32) (*domain.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id = $1 FOR UPDATE`
	return scanZone(r.q.QueryRowContext(ctx, query, id))
}

func (r *zoneRepository) ListActive(ctx context.Context, countryCode string) ([]domain.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE is_active = TRUE`
	args := []any{}
	if countryCode != "" {
		query += ` AND country_code = $1`
		args = append(args, countryCode)
	}
	query += ` ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

func (r *zoneRepository) Create(ctx context.Context, z *domain.Zone) error {
	query := `INSERT INTO zones (country_code, name, hourly_rate, total_slots, latitude, longitude, radius_meters,
	              max_duration_hours, is_active, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	return r.q.QueryRowContext(ctx, query, z.CountryCode, z.Name, z.HourlyRate, z.TotalSlots, z.Latitude, z.Longitude,
		z.RadiusMeters, z.MaxDurationHours, z.IsActive, z.CreatedOn, z.UpdatedOn).Scan(&z.ID)
}
