package service

import (
	"context"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/repository"
)

type zoneService struct {
	store     repository.Store
	allocator SlotAllocator
	cache     AvailabilityCache
}

func NewZoneService(store repository.Store, allocator SlotAllocator, cache AvailabilityCache) ZoneService {
	return &zoneService{store: store, allocator: allocator, cache: cache}
}

func (s *zoneService) ListActive(ctx context.Context, countryCode string) ([]domain.Zone, error) {
	return s.store.Repos().Zones.ListActive(ctx, countryCode)
}

func (s *zoneService) Availability(ctx context.Context, zoneID int32) (*domain.ZoneAvailability, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, zoneID)
		if err != nil {
			logger.Warn("Availability cache read failed", "zoneID", zoneID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	repos := s.store.Repos()
	zone, err := activeZone(ctx, repos, zoneID)
	if err != nil {
		return nil, err
	}

	capacity, err := s.allocator.Capacity(ctx, repos, zone)
	if err != nil {
		return nil, err
	}
	available, err := s.allocator.AvailableCount(ctx, repos, zone)
	if err != nil {
		return nil, err
	}
	occupied, err := s.allocator.OccupiedCount(ctx, repos, zone)
	if err != nil {
		return nil, err
	}
	rate, err := s.allocator.OccupancyRate(ctx, repos, zone)
	if err != nil {
		return nil, err
	}
	counts, err := repos.Slots.CountByStatus(ctx, zone.ID)
	if err != nil {
		return nil, err
	}

	availability := &domain.ZoneAvailability{
		ZoneID:        zone.ID,
		ZoneName:      zone.Name,
		Capacity:      capacity,
		Available:     available,
		Occupied:      occupied,
		Reserved:      counts[domain.SlotStatusReserved],
		Disabled:      counts[domain.SlotStatusDisabled],
		OccupancyRate: rate,
		HourlyRate:    zone.HourlyRate,
		Latitude:      zone.Latitude,
		Longitude:     zone.Longitude,
		RadiusMeters:  zone.RadiusMeters,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, availability); err != nil {
			logger.Warn("Availability cache write failed", "zoneID", zoneID, "error", err)
		}
	}
	return availability, nil
}
