package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateCost(t *testing.T) {
	rate := dec("1000")

	tests := []struct {
		name     string
		elapsed  time.Duration
		expected string
	}{
		{"five minutes bills the minimum", 5 * time.Minute, "250"},
		{"zero duration bills the minimum", 0, "250"},
		{"exactly fifteen minutes", 15 * time.Minute, "250"},
		{"one and a half hours", 90 * time.Minute, "1500"},
		{"twenty minutes", 20 * time.Minute, "333.33"},
		{"forty minutes rounds up", 40 * time.Minute, "666.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := CalculateCost(rate, tt.elapsed)
			assert.True(t, dec(tt.expected).Equal(cost), "expected %s, got %s", tt.expected, cost)
		})
	}
}

func TestCostForHours(t *testing.T) {
	t.Run("Fractional hours", func(t *testing.T) {
		cost := CostForHours(dec("2000"), dec("2"))
		assert.Equal(t, "4000.00", cost.StringFixed(2))
	})

	t.Run("Below minimum", func(t *testing.T) {
		cost := CostForHours(dec("1200"), dec("0.1"))
		assert.Equal(t, "300.00", cost.StringFixed(2))
	})
}

func TestHoursConversion(t *testing.T) {
	assert.True(t, dec("1.5").Equal(HoursFromDuration(90*time.Minute)))
	assert.Equal(t, 45*time.Minute, DurationFromHours(dec("0.75")))
	assert.Equal(t, 2*time.Hour, DurationFromHours(dec("2")))
}

func TestProportionalRefund(t *testing.T) {
	prepaid := dec("4000")
	total := 2 * time.Hour

	t.Run("Nothing used", func(t *testing.T) {
		assert.Equal(t, "4000.00", ProportionalRefund(prepaid, total, total).StringFixed(2))
	})

	t.Run("Half used", func(t *testing.T) {
		assert.Equal(t, "2000.00", ProportionalRefund(prepaid, time.Hour, total).StringFixed(2))
	})

	t.Run("Rounded to currency", func(t *testing.T) {
		refund := ProportionalRefund(dec("1000"), 20*time.Minute, time.Hour)
		assert.Equal(t, "333.33", refund.StringFixed(2))
	})

	t.Run("Past planned end", func(t *testing.T) {
		assert.True(t, ProportionalRefund(prepaid, -time.Minute, total).IsZero())
	})

	t.Run("Zero window", func(t *testing.T) {
		assert.True(t, ProportionalRefund(prepaid, time.Minute, 0).IsZero())
	})
}

func TestOverdueCharge(t *testing.T) {
	rate := dec("1000")

	t.Run("Within planned time", func(t *testing.T) {
		assert.True(t, OverdueCharge(rate, 50*time.Minute, time.Hour).IsZero())
	})

	t.Run("Overdue by forty eight minutes", func(t *testing.T) {
		charge := OverdueCharge(rate, time.Hour+48*time.Minute, time.Hour)
		assert.Equal(t, "800.00", charge.StringFixed(2))
	})
}

func TestExtensionCost(t *testing.T) {
	assert.Equal(t, "500.00", ExtensionCost(dec("1000"), dec("0.5")).StringFixed(2))
	assert.Equal(t, "100.00", ExtensionCost(dec("1000"), dec("0.1")).StringFixed(2))
}
