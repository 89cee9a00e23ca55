package resolver

import (
	"math"
	"time"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
)

// Scoring weights and thresholds for the interval-match strategy.
const (
	priceWeight = 0.7
	dateWeight  = 0.3

	highThreshold   = 0.8
	mediumThreshold = 0.6

	// textMatchThreshold is the minimum keyword-token ratio for the text-match
	// fallback to resolve a product.
	textMatchThreshold = 0.7

	// dateDecayDays is how far outside an interval a receipt date can fall
	// before its date accuracy decays to zero.
	dateDecayDays = 30.0
)

// priceAccuracy measures how close the OCR'd rate is to a record's price,
// relative to the price: max(0, 1 - |rate-price|/price).
func priceAccuracy(rate, price float64) float64 {
	if price <= 0 {
		return 0
	}
	acc := 1 - math.Abs(rate-price)/price
	if acc < 0 {
		return 0
	}
	return acc
}

// dateAccuracy is 1.0 when the receipt date falls inside the record's validity
// interval (open records run through now), otherwise it decays linearly with
// the whole-day distance to the nearer boundary, reaching zero at dateDecayDays.
func dateAccuracy(date time.Time, rec *pricing.PriceRecord, now time.Time) float64 {
	if rec.Covers(date, now) {
		return 1
	}

	var outside time.Duration
	if date.Before(rec.ValidFrom) {
		outside = rec.ValidFrom.Sub(date)
	} else {
		outside = date.Sub(rec.ValidThrough(now))
	}

	daysOutside := math.Ceil(outside.Hours() / 24)
	acc := 1 - daysOutside/dateDecayDays
	if acc < 0 {
		return 0
	}
	return acc
}

// compositeScore combines price and date evidence; price dominates.
func compositeScore(priceAcc, dateAcc float64) float64 {
	return priceWeight*priceAcc + dateWeight*dateAcc
}
