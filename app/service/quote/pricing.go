package quote

import "math"

// BaseHourlyRate is the agency rate in euros per hour.
const BaseHourlyRate = 120

// defaultMultiplier applies when the tier is absent or unrecognized.
const defaultMultiplier = 1.3

var tierMultipliers = map[Tier]float64{
	TierLow:      1.0,
	TierMedium:   1.3,
	TierHigh:     1.6,
	TierVeryHigh: 2.0,
}

func Multiplier(tier Tier) float64 {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}

	return defaultMultiplier
}

// Price derives the item price at the default rate. No hour estimate means
// price on request (0).
func Price(hours *float64, tier Tier) int {
	return PriceAt(BaseHourlyRate, hours, tier)
}

// PriceAt derives the item price at a configured hourly rate.
func PriceAt(hourlyRate int, hours *float64, tier Tier) int {
	if hours == nil {
		return 0
	}

	return int(math.Round(*hours * float64(hourlyRate) * Multiplier(tier)))
}
