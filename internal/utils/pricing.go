package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places money is kept at.
const CurrencyPlaces = 2

// MinimumBillableHours is the smallest duration a session or reservation is billed for.
var MinimumBillableHours = decimal.RequireFromString("0.25")

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// RoundCurrency rounds half away from zero to currency precision.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// HoursFromDuration converts a duration to fractional hours without float math.
func HoursFromDuration(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(nanosPerHour)
}

// DurationFromHours converts fractional hours to a duration, truncating below a nanosecond.
func DurationFromHours(hours decimal.Decimal) time.Duration {
	return time.Duration(hours.Mul(nanosPerHour).IntPart())
}

// BillableHours applies the minimum billable increment.
func BillableHours(hours decimal.Decimal) decimal.Decimal {
	if hours.LessThan(MinimumBillableHours) {
		return MinimumBillableHours
	}
	return hours
}

// CostForHours prices a requested number of hours at the given hourly rate.
func CostForHours(hourlyRate, hours decimal.Decimal) decimal.Decimal {
	return RoundCurrency(BillableHours(hours).Mul(hourlyRate))
}

// CalculateCost prices an elapsed duration at the given hourly rate.
func CalculateCost(hourlyRate decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	return CostForHours(hourlyRate, HoursFromDuration(elapsed))
}

// ExtensionCost prices additional hours without the minimum increment.
func ExtensionCost(hourlyRate, additionalHours decimal.Decimal) decimal.Decimal {
	return RoundCurrency(additionalHours.Mul(hourlyRate))
}

// ProportionalRefund returns the share of prepaid cost matching the unused
// fraction of the planned window. remaining is clamped to [0, total].
func ProportionalRefund(prepaid decimal.Decimal, remaining, total time.Duration) decimal.Decimal {
	if total <= 0 || remaining <= 0 {
		return decimal.Zero
	}
	if remaining > total {
		remaining = total
	}
	share := prepaid.Mul(decimal.NewFromInt(int64(remaining))).Div(decimal.NewFromInt(int64(total)))
	return RoundCurrency(share)
}

// OverdueCharge prices the time parked beyond the planned duration.
func OverdueCharge(hourlyRate decimal.Decimal, actual, planned time.Duration) decimal.Decimal {
	over := HoursFromDuration(actual).Sub(HoursFromDuration(planned))
	if !over.IsPositive() {
		return decimal.Zero
	}
	return RoundCurrency(over.Mul(hourlyRate))
}
