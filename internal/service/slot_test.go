package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark-backend/internal/domain"
)

func TestSlotAllocator_Assign(t *testing.T) {
	t.Run("First Available By Creation", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 0, 3)
		repos := f.store.Repos()

		id, err := f.allocator.Assign(f.ctx, repos, zone, nil, domain.SlotStatusOccupied)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, slots[0].ID, *id)

		id, err = f.allocator.Assign(f.ctx, repos, zone, nil, domain.SlotStatusReserved)
		require.NoError(t, err)
		assert.Equal(t, slots[1].ID, *id)
		assert.Equal(t, domain.SlotStatusReserved, f.slotStatus(t, slots[1].ID))

		available, err := f.allocator.AvailableCount(f.ctx, repos, zone)
		require.NoError(t, err)
		assert.Equal(t, int32(1), available)

		rate, err := f.allocator.OccupancyRate(f.ctx, repos, zone)
		require.NoError(t, err)
		assert.Equal(t, 33.33, rate)
	})

	t.Run("Release Frees Slot", func(t *testing.T) {
		f := newFixture(t)
		zone, slots := f.addZone(t, "1000", 0, 1)
		repos := f.store.Repos()

		id, err := f.allocator.Assign(f.ctx, repos, zone, nil, domain.SlotStatusOccupied)
		require.NoError(t, err)
		_, err = f.allocator.Assign(f.ctx, repos, zone, nil, domain.SlotStatusOccupied)
		assert.ErrorIs(t, err, domain.ErrNoCapacity)

		require.NoError(t, f.allocator.Release(f.ctx, repos, id))
		assert.Equal(t, domain.SlotStatusAvailable, f.slotStatus(t, slots[0].ID))

		missing := int32(999)
		assert.NoError(t, f.allocator.Release(f.ctx, repos, &missing))
		assert.NoError(t, f.allocator.Release(f.ctx, repos, nil))
	})

	t.Run("Configured Capacity Wins", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 10, 2)
		repos := f.store.Repos()

		capacity, err := f.allocator.Capacity(f.ctx, repos, zone)
		require.NoError(t, err)
		assert.Equal(t, int32(10), capacity)

		available, err := f.allocator.AvailableCount(f.ctx, repos, zone)
		require.NoError(t, err)
		assert.Equal(t, int32(10), available)
	})

	t.Run("Empty Zone", func(t *testing.T) {
		f := newFixture(t)
		zone, _ := f.addZone(t, "1000", 0, 0)
		repos := f.store.Repos()

		rate, err := f.allocator.OccupancyRate(f.ctx, repos, zone)
		require.NoError(t, err)
		assert.Zero(t, rate)

		_, err = f.allocator.Assign(f.ctx, repos, zone, nil, domain.SlotStatusOccupied)
		assert.ErrorIs(t, err, domain.ErrNoCapacity)
	})
}
