package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

type slotAllocator struct{}

func NewSlotAllocator() SlotAllocator {
	return &slotAllocator{}
}

func (a *slotAllocator) Capacity(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error) {
	if zone.TotalSlots > 0 {
		return zone.TotalSlots, nil
	}
	return repos.Slots.CountByZone(ctx, zone.ID)
}

func (a *slotAllocator) OccupiedCount(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error) {
	if zone.TotalSlots > 0 {
		return repos.Sessions.CountActiveInZone(ctx, zone.ID)
	}
	counts, err := repos.Slots.CountByStatus(ctx, zone.ID)
	if err != nil {
		return 0, err
	}
	return counts[domain.SlotStatusOccupied], nil
}

func (a *slotAllocator) AvailableCount(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (int32, error) {
	if zone.TotalSlots > 0 {
		occupied, err := a.OccupiedCount(ctx, repos, zone)
		if err != nil {
			return 0, err
		}
		return max(0, zone.TotalSlots-occupied), nil
	}
	counts, err := repos.Slots.CountByStatus(ctx, zone.ID)
	if err != nil {
		return 0, err
	}
	return counts[domain.SlotStatusAvailable], nil
}

func (a *slotAllocator) OccupancyRate(ctx context.Context, repos repository.Repositories, zone *domain.Zone) (float64, error) {
	capacity, err := a.Capacity(ctx, repos, zone)
	if err != nil || capacity == 0 {
		return 0, err
	}
	occupied, err := a.OccupiedCount(ctx, repos, zone)
	if err != nil {
		return 0, err
	}
	rate := float64(occupied) / float64(capacity) * 100
	return math.Round(rate*100) / 100, nil
}

func (a *slotAllocator) Assign(ctx context.Context, repos repository.Repositories, zone *domain.Zone, slotID *int32, status domain.SlotStatus) (*int32, error) {
	if slotID != nil {
		if err := repos.Slots.Claim(ctx, zone.ID, *slotID, status); err != nil {
			return nil, err
		}
		id := *slotID
		return &id, nil
	}

	slot, err := repos.Slots.FindFirstAvailable(ctx, zone.ID)
	if err == nil {
		if err := repos.Slots.Claim(ctx, zone.ID, slot.ID, status); err != nil {
			if errors.Is(err, domain.ErrSlotUnavailable) {
				return nil, domain.ErrNoCapacity
			}
			return nil, err
		}
		return &slot.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	physical, err := repos.Slots.CountByZone(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	if physical > 0 || zone.TotalSlots <= 0 {
		return nil, domain.ErrNoCapacity
	}

	// Zones without slot rows are tracked by capacity alone.
	if _, err := repos.Zones.LockForUpdate(ctx, zone.ID); err != nil {
		return nil, fmt.Errorf("lock zone: %w", err)
	}
	active, err := repos.Sessions.CountActiveInZone(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	if active >= zone.TotalSlots {
		return nil, domain.ErrNoCapacity
	}
	return nil, nil
}

func (a *slotAllocator) Release(ctx context.Context, repos repository.Repositories, slotID *int32) error {
	if slotID == nil {
		return nil
	}
	err := repos.Slots.SetStatus(ctx, *slotID, domain.SlotStatusAvailable)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
