package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/service"
)

func TestZoneService_Availability(t *testing.T) {
	t.Run("Computed From Slots", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 0, 4)
		require.NoError(t, f.store.Repos().Slots.SetStatus(f.ctx, slots[3].ID, domain.SlotStatusDisabled))
		user, vehicle := f.addDriver(t, "ZAA001", "5000")
		_, err := f.sessions.Start(f.ctx, service.StartSessionRequest{
			UserID: user.ID, VehicleID: vehicle.ID, ZoneID: zone.ID, DurationHours: hours("1"),
		})
		require.NoError(t, err)

		view, err := f.zones.Availability(f.ctx, zone.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(4), view.Capacity)
		assert.Equal(t, int32(1), view.Occupied)
		assert.Equal(t, int32(2), view.Available)
		assert.Equal(t, int32(1), view.Disabled)
		assert.Equal(t, 25.0, view.OccupancyRate)
	})

	t.Run("Served From Cache", func(t *testing.T) {
		f := newFixture(t)
		cache := new(MockAvailabilityCache)
		cached := &domain.ZoneAvailability{ZoneID: 9, Capacity: 3}
		cache.On("Get", f.ctx, int32(9)).Return(cached, true, nil)

		svc := service.NewZoneService(f.store, f.allocator, cache)
		view, err := svc.Availability(f.ctx, 9)
		require.NoError(t, err)
		assert.Same(t, cached, view)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})

	t.Run("Cache Miss Stores Result", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 5, 0)
		cache := new(MockAvailabilityCache)
		cache.On("Get", f.ctx, zone.ID).Return(nil, false, nil)
		cache.On("Set", f.ctx, mock.MatchedBy(func(a *domain.ZoneAvailability) bool {
			return a.ZoneID == zone.ID && a.Capacity == 5 && a.Available == 5
		})).Return(nil)

		svc := service.NewZoneService(f.store, f.allocator, cache)
		_, err := svc.Availability(f.ctx, zone.ID)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("Cache Errors Fall Through", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 2, 2)
		cache := new(MockAvailabilityCache)
		cache.On("Get", f.ctx, zone.ID).Return(nil, false, assert.AnError)
		cache.On("Set", f.ctx, mock.Anything).Return(assert.AnError)

		svc := service.NewZoneService(f.store, f.allocator, cache)
		view, err := svc.Availability(f.ctx, zone.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), view.Available)
	})

	t.Run("Unknown Zone", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.zones.Availability(f.ctx, 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestZoneService_ListActive(t *testing.T) {
	f := newFixture(t)
	active, _ := f.addZone(t, "1000", 2, 0)
	require.NoError(t, f.store.Repos().Zones.Create(f.ctx, &domain.Zone{
		CountryCode: "UG", Name: "Closed Lot", HourlyRate: active.HourlyRate, TotalSlots: 2,
	}))

	zones, err := f.zones.ListActive(f.ctx, "UG")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, active.ID, zones[0].ID)

	zones, err = f.zones.ListActive(f.ctx, "KE")
	require.NoError(t, err)
	assert.Empty(t, zones)
}
