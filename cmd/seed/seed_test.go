package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository/memory"
	"smartpark-backend/internal/service"
)

const seedYAML = `
zones:
  - country_code: UG
    name: Kampala Road
    hourly_rate: "1000"
    radius_meters: 150
    slots:
      - code: A1
      - code: A2
        type: electric
users:
  - email: driver@smartpark.test
    password: secret123
    name: Dev Driver
    balance: "50000"
    vehicles: ["UAX 123B"]
  - email: officer@smartpark.test
    password: secret123
    name: Dev Officer
    roles: [officer]
`

func TestParseSeed(t *testing.T) {
	data, err := parseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, data.Zones, 1)
	assert.Len(t, data.Zones[0].Slots, 2)
	require.Len(t, data.Users, 2)
	assert.Equal(t, []string{"officer"}, data.Users[1].Roles)

	_, err = parseSeed([]byte("zones:\n  - name: Bad\n    hourly_rate: abc\n"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := service.NewWalletLedger(store, clock.New(), nil)

	data, err := parseSeed([]byte(seedYAML))
	require.NoError(t, err)

	result, err := apply(ctx, store, ledger, data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Zones)
	assert.Equal(t, 2, result.Slots)
	assert.Equal(t, 2, result.Users)
	assert.Equal(t, 1, result.Vehicles)

	driver := result.CreatedUsers[0]
	assert.Equal(t, []string{domain.RoleDriver}, driver.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte("secret123")))

	balance, err := ledger.Balance(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "50000.00", balance.StringFixed(2))

	rec, err := ledger.Reconcile(ctx, driver.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)

	zones, err := store.Repos().Zones.ListActive(ctx, "UG")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, int32(24), zones[0].MaxDurationHours)
}
